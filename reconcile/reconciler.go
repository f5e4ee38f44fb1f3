package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/model"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

// Strategy is how a mutation keeps local state consistent with the
// server. It is fixed per operation; callers never choose.
type Strategy int

const (
	// StrategyRefetch re-runs the full load after a successful mutation.
	// The server owns ordering and defaults, so its response is never
	// trusted as the new state.
	StrategyRefetch Strategy = iota
	// StrategyOptimisticWithRollback applies the change locally before the
	// request and restores a snapshot verbatim if it fails.
	StrategyOptimisticWithRollback
)

// Strategies documents the consistency strategy of every mutation.
var Strategies = map[string]Strategy{
	"AddDocumentRequirement":    StrategyRefetch,
	"RemoveDocumentRequirement": StrategyRefetch,
	"AddStudent":                StrategyRefetch,
	"RemoveStudent":             StrategyOptimisticWithRollback,
}

// ErrCancelled means the user declined the confirmation prompt; nothing
// was sent.
var ErrCancelled = errors.New("cancelled by user")

// Confirm asks the user to approve a destructive action.
type Confirm func(prompt string) bool

// Reconciler keeps one table's server-side collections joined into a
// presentation matrix and applies admin mutations against them. It is
// view-scoped: state lives for one view and is rebuilt on every load.
type Reconciler struct {
	client  *api.Client
	gate    *session.Gate
	role    session.Role
	tableID int
	confirm Confirm

	validate *validator.Validate

	table  *model.TableDetail
	matrix *Matrix
}

func NewReconciler(client *api.Client, gate *session.Gate, role session.Role, tableID int, confirm Confirm) *Reconciler {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}
	return &Reconciler{
		client:   client,
		gate:     gate,
		role:     role,
		tableID:  tableID,
		confirm:  confirm,
		validate: validator.New(),
	}
}

// Table returns the last loaded state, nil before the first load.
func (r *Reconciler) Table() *model.TableDetail {
	return r.table
}

// Matrix returns the derived grid, nil before the first load.
func (r *Reconciler) Matrix() *Matrix {
	return r.matrix
}

// Load fetches the table and rebuilds the matrix. On failure the prior
// state is left untouched: a failed reload never blanks the view.
func (r *Reconciler) Load(ctx context.Context) error {
	detail, err := r.client.GetTable(ctx, r.tableID)
	if err != nil {
		return r.gate.HandleAPIError(r.role, err)
	}
	r.table = detail
	r.matrix = BuildMatrix(detail)
	return nil
}

// AddDocumentRequirement creates a new requirement. Duplicate names
// (trimmed, case-insensitive) are rejected locally without a round trip.
// Strategy: refetch.
func (r *Reconciler) AddDocumentRequirement(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NewValidationError("el nombre del documento es obligatorio")
	}
	if r.table != nil {
		for _, doc := range r.table.Documents {
			if strings.EqualFold(strings.TrimSpace(doc.Name), name) {
				return model.NewValidationError("ya existe un documento con ese nombre en esta tabla")
			}
		}
	}

	if err := r.client.AddDocument(ctx, r.tableID, name); err != nil {
		return r.gate.HandleAPIError(r.role, err)
	}
	return r.Load(ctx)
}

// RemoveDocumentRequirement deletes a requirement after confirmation; the
// deletion cascades to every upload referencing it. Strategy: refetch.
func (r *Reconciler) RemoveDocumentRequirement(ctx context.Context, docID int) error {
	if !r.confirm("¿Eliminar este documento?") {
		return ErrCancelled
	}
	if err := r.client.RemoveDocument(ctx, r.tableID, docID); err != nil {
		return r.gate.HandleAPIError(r.role, err)
	}
	return r.Load(ctx)
}

type newStudent struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
}

// AddStudent enrolls a student; both name fields are required. Strategy:
// refetch.
func (r *Reconciler) AddStudent(ctx context.Context, firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := r.validate.Struct(newStudent{FirstName: firstName, LastName: lastName}); err != nil {
		return model.NewValidationError("faltan nombre o apellidos")
	}

	if err := r.client.AddStudent(ctx, r.tableID, firstName, lastName); err != nil {
		return r.gate.HandleAPIError(r.role, err)
	}
	return r.Load(ctx)
}

// RemoveStudent removes a student and, server-side, all their uploads.
// Strategy: optimistic with rollback. The student disappears locally
// before the request; on failure the snapshot is restored verbatim and
// the error is surfaced. An authorization failure additionally purges the
// credential via the gate, which the view treats as a forced credential
// reload.
func (r *Reconciler) RemoveStudent(ctx context.Context, studentID string) error {
	if !r.confirm("¿Eliminar este alumno permanentemente?") {
		return ErrCancelled
	}
	if r.table == nil {
		if err := r.Load(ctx); err != nil {
			return err
		}
	}

	snapshot := r.snapshot()
	r.applyStudentRemoval(studentID)

	if err := r.client.RemoveStudent(ctx, r.tableID, studentID); err != nil {
		r.restore(snapshot)
		return r.gate.HandleAPIError(r.role, err)
	}
	return nil
}

// snapshot deep-copies the current table state so a failed optimistic
// mutation can restore it exactly.
func (r *Reconciler) snapshot() *model.TableDetail {
	if r.table == nil {
		return nil
	}
	clone := &model.TableDetail{
		ID:        r.table.ID,
		Name:      r.table.Name,
		Documents: make([]model.DocumentRequirement, len(r.table.Documents)),
		Students:  make([]model.Student, len(r.table.Students)),
		Uploads:   make([]model.Upload, len(r.table.Uploads)),
	}
	copy(clone.Documents, r.table.Documents)
	copy(clone.Students, r.table.Students)
	copy(clone.Uploads, r.table.Uploads)
	return clone
}

func (r *Reconciler) restore(snapshot *model.TableDetail) {
	r.table = snapshot
	if snapshot != nil {
		r.matrix = BuildMatrix(snapshot)
	} else {
		r.matrix = nil
	}
}

func (r *Reconciler) applyStudentRemoval(studentID string) {
	students := r.table.Students[:0:0]
	for _, s := range r.table.Students {
		if s.ID != studentID {
			students = append(students, s)
		}
	}
	uploads := r.table.Uploads[:0:0]
	for _, up := range r.table.Uploads {
		if up.StudentID != studentID {
			uploads = append(uploads, up)
		}
	}
	r.table.Students = students
	r.table.Uploads = uploads
	r.matrix = BuildMatrix(r.table)
}
