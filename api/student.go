package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Martin-d-abloh/proyecto-academia/model"
)

// StudentInfo returns the student's own record.
func (c *Client) StudentInfo(ctx context.Context, studentID string) (*model.Student, error) {
	var student model.Student
	if err := c.doJSON(ctx, http.MethodGet, "/api/alumno/"+url.PathEscape(studentID), nil, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

type studentDocumentsResponse struct {
	Documents []model.RequiredDocument `json:"documentos"`
}

// StudentDocuments lists every requirement of the student's table with
// the state of the student's own upload, no_subido when absent.
func (c *Client) StudentDocuments(ctx context.Context, studentID string) ([]model.RequiredDocument, error) {
	var resp studentDocumentsResponse
	path := "/api/alumno/" + url.PathEscape(studentID) + "/documentos"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// UploadDocument submits a file against a requirement as multipart form
// data (fields archivo and nombre_documento). Replacing an existing
// upload is the server's business.
func (c *Client) UploadDocument(ctx context.Context, studentID, documentName, filename string, file io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("archivo", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read upload file: %w", err)
	}
	if err := writer.WriteField("nombre_documento", documentName); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}

	path := "/api/alumno/" + url.PathEscape(studentID) + "/subir"
	req, err := c.newRequest(ctx, http.MethodPost, path, &buf, writer.FormDataContentType())
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return apiErrorFrom(resp.StatusCode, data)
	}
	return nil
}

// DeleteStudentUpload removes a previously submitted upload.
func (c *Client) DeleteStudentUpload(ctx context.Context, studentID string, uploadID int) error {
	path := fmt.Sprintf("/api/alumno/%s/documentos/%d/eliminar", url.PathEscape(studentID), uploadID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// StudentDocumentViewURL builds the tokened inline-view URL for the
// student's own upload.
func (c *Client) StudentDocumentViewURL(uploadID int) (string, error) {
	return c.tokenedURL(fmt.Sprintf("/api/alumno/ver/%d", uploadID))
}
