package flow

import (
	"context"
	"io"
	"strings"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/model"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

// StudentFlow is the student panel: list the table's requirements with the
// student's own submission state, upload, delete and view.
type StudentFlow struct {
	client    *api.Client
	gate      *session.Gate
	studentID string
}

func NewStudentFlow(client *api.Client, gate *session.Gate, studentID string) *StudentFlow {
	return &StudentFlow{client: client, gate: gate, studentID: studentID}
}

// RequiredDocuments fetches the student's document list. A 403 purges the
// student token and redirects to the student login.
func (f *StudentFlow) RequiredDocuments(ctx context.Context) ([]model.RequiredDocument, error) {
	docs, err := f.client.StudentDocuments(ctx, f.studentID)
	if err != nil {
		return nil, f.gate.HandleAPIError(session.RoleStudent, err)
	}
	return docs, nil
}

// Upload submits a file against a requirement and returns the refetched
// document list. A missing file or document name is a local validation
// failure; no request is made.
func (f *StudentFlow) Upload(ctx context.Context, documentName, filename string, file io.Reader) ([]model.RequiredDocument, error) {
	if strings.TrimSpace(documentName) == "" {
		return nil, model.NewValidationError("falta el nombre del documento")
	}
	if file == nil || strings.TrimSpace(filename) == "" {
		return nil, model.NewValidationError("no se ha seleccionado ningún archivo")
	}

	if err := f.client.UploadDocument(ctx, f.studentID, documentName, filename, file); err != nil {
		return nil, f.gate.HandleAPIError(session.RoleStudent, err)
	}
	return f.RequiredDocuments(ctx)
}

// Delete removes a previously submitted upload and returns the refetched
// document list.
func (f *StudentFlow) Delete(ctx context.Context, uploadID int) ([]model.RequiredDocument, error) {
	if err := f.client.DeleteStudentUpload(ctx, f.studentID, uploadID); err != nil {
		return nil, f.gate.HandleAPIError(session.RoleStudent, err)
	}
	return f.RequiredDocuments(ctx)
}

// ViewURL builds the tokened inline-view URL. Opening it is best effort;
// failures surface in the browser, not here.
func (f *StudentFlow) ViewURL(uploadID int) (string, error) {
	return f.client.StudentDocumentViewURL(uploadID)
}
