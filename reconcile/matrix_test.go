package reconcile

import (
	"testing"

	"github.com/Martin-d-abloh/proyecto-academia/model"
)

func sampleDetail() *model.TableDetail {
	return &model.TableDetail{
		ID:   1,
		Name: "Prácticas",
		Documents: []model.DocumentRequirement{
			{ID: 1, Name: "DNI"},
			{ID: 2, Name: "Convenio"},
		},
		Students: []model.Student{
			{ID: "s-1", FirstName: "Ana", LastName: "García"},
			{ID: "s-2", FirstName: "Luis", LastName: "Pérez"},
		},
		Uploads: []model.Upload{
			{ID: 10, StudentID: "s-1", DocumentName: "DNI", State: model.StateSubmitted},
			{ID: 11, StudentID: "s-1", DocumentName: "Convenio", State: model.StateRejected},
		},
	}
}

func TestBuildMatrixDimensions(t *testing.T) {
	m := BuildMatrix(sampleDetail())

	if len(m.Rows()) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(m.Rows()))
	}
	if len(m.Cols()) != 2 {
		t.Errorf("Expected 2 columns, got %d", len(m.Cols()))
	}

	// Every (student, document) pair must be addressable, filled or not.
	for _, s := range m.Rows() {
		for _, d := range m.Cols() {
			up, ok := m.Cell(s.ID, d.Name)
			if ok && up.StudentID != s.ID {
				t.Errorf("Cell (%s, %s) holds upload for student %s", s.ID, d.Name, up.StudentID)
			}
		}
	}
}

func TestBuildMatrixIgnoresOrphanUploads(t *testing.T) {
	detail := sampleDetail()
	// An upload referencing a student no longer in the table must not add
	// a row.
	detail.Uploads = append(detail.Uploads, model.Upload{
		ID: 99, StudentID: "gone", DocumentName: "DNI", State: model.StateSubmitted,
	})

	m := BuildMatrix(detail)
	if len(m.Rows()) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(m.Rows()))
	}
}

func TestCell(t *testing.T) {
	m := BuildMatrix(sampleDetail())

	up, ok := m.Cell("s-1", "DNI")
	if !ok {
		t.Fatal("Expected cell (s-1, DNI) to be filled")
	}
	if up.ID != 10 || up.State != model.StateSubmitted {
		t.Errorf("Unexpected upload in cell: %+v", up)
	}

	if _, ok := m.Cell("s-2", "DNI"); ok {
		t.Error("Expected cell (s-2, DNI) to be empty")
	}
}

func TestAllDelivered(t *testing.T) {
	m := BuildMatrix(sampleDetail())

	tests := []struct {
		name      string
		studentID string
		want      bool
	}{
		// A rejected upload still counts as delivered; only absence does not.
		{name: "all uploads present including rejected", studentID: "s-1", want: true},
		{name: "no uploads", studentID: "s-2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.AllDelivered(tt.studentID); got != tt.want {
				t.Errorf("AllDelivered(%s) = %v, want %v", tt.studentID, got, tt.want)
			}
		})
	}
}

func TestAllDeliveredNoDocuments(t *testing.T) {
	detail := sampleDetail()
	detail.Documents = nil

	m := BuildMatrix(detail)
	if !m.AllDelivered("s-2") {
		t.Error("Expected AllDelivered to be true for a table with no requirements")
	}
}
