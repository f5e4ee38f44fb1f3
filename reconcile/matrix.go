package reconcile

import (
	"github.com/Martin-d-abloh/proyecto-academia/model"
)

// CellKey identifies one cell of the presentation matrix: an upload
// logically belongs to the (student, requirement) pair matched by student
// id and document name.
type CellKey struct {
	StudentID    string
	DocumentName string
}

// Matrix is the student x document grid derived from a table's three
// collections. It is rebuilt from scratch after every load or mutation
// and never patched in place, so a cell can never hold a stale join.
type Matrix struct {
	rows  []model.Student
	cols  []model.DocumentRequirement
	cells map[CellKey]model.Upload
}

// BuildMatrix joins the three collections. The row set is exactly the
// student set and the column set exactly the requirement set, whatever
// the uploads contain.
func BuildMatrix(detail *model.TableDetail) *Matrix {
	m := &Matrix{
		rows:  make([]model.Student, len(detail.Students)),
		cols:  make([]model.DocumentRequirement, len(detail.Documents)),
		cells: make(map[CellKey]model.Upload, len(detail.Uploads)),
	}
	copy(m.rows, detail.Students)
	copy(m.cols, detail.Documents)

	for _, up := range detail.Uploads {
		m.cells[CellKey{StudentID: up.StudentID, DocumentName: up.DocumentName}] = up
	}
	return m
}

// Rows returns the students in server order.
func (m *Matrix) Rows() []model.Student {
	return m.rows
}

// Cols returns the document requirements in server order.
func (m *Matrix) Cols() []model.DocumentRequirement {
	return m.cols
}

// Cell returns the upload for a (student, requirement) pair. The second
// return is false when nothing was submitted, the not-submitted
// equivalent.
func (m *Matrix) Cell(studentID, documentName string) (model.Upload, bool) {
	up, ok := m.cells[CellKey{StudentID: studentID, DocumentName: documentName}]
	return up, ok
}

// AllDelivered is true iff every requirement has a matching upload for
// the student, regardless of review state: submitted, accepted and
// rejected all count as delivered, only absence does not.
func (m *Matrix) AllDelivered(studentID string) bool {
	for _, doc := range m.cols {
		if _, ok := m.Cell(studentID, doc.Name); !ok {
			return false
		}
	}
	return true
}
