package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Martin-d-abloh/proyecto-academia/model"
)

// --- tables ---

type tableListResponse struct {
	Tables []model.Table `json:"tablas"`
}

// ListTables returns the caller's tables. A superadmin may pass a nonzero
// adminID to list another admin's tables.
func (c *Client) ListTables(ctx context.Context, adminID int) ([]model.Table, error) {
	path := "/api/admin/tablas"
	if adminID != 0 {
		path += "?admin_id=" + strconv.Itoa(adminID)
	}
	var resp tableListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

func (c *Client) CreateTable(ctx context.Context, name string) error {
	body := map[string]string{"nombre": name}
	return c.doJSON(ctx, http.MethodPost, "/api/admin/tablas", body, nil)
}

func (c *Client) DeleteTable(ctx context.Context, tableID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/tabla/%d", tableID), nil, nil)
}

// GetTable fetches the three collections the presentation matrix is built
// from in a single request.
func (c *Client) GetTable(ctx context.Context, tableID int) (*model.TableDetail, error) {
	var detail model.TableDetail
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/admin/tabla/%d", tableID), nil, &detail); err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		detail.ID = tableID
	}
	return &detail, nil
}

// --- document requirements ---

func (c *Client) AddDocument(ctx context.Context, tableID int, name string) error {
	body := map[string]string{"nombre": name}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/admin/tabla/%d/documento", tableID), body, nil)
}

func (c *Client) RemoveDocument(ctx context.Context, tableID, docID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/tabla/%d/documento/%d", tableID, docID), nil, nil)
}

// --- students ---

func (c *Client) AddStudent(ctx context.Context, tableID int, firstName, lastName string) error {
	body := map[string]string{"nombre": firstName, "apellidos": lastName}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/admin/tabla/%d/alumnos", tableID), body, nil)
}

func (c *Client) RemoveStudent(ctx context.Context, tableID int, studentID string) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/tabla/%d/alumno/%s", tableID, url.PathEscape(studentID)), nil, nil)
}

// --- document review ---

// DownloadDocument streams an uploaded file. The caller must close the
// returned body.
func (c *Client) DownloadDocument(ctx context.Context, uploadID int) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/admin/documento/%d", uploadID), nil, "")
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Op: "download", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, "", apiErrorFrom(resp.StatusCode, data)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// AdminDocumentViewURL builds the tokened inline-view URL, opened in a
// separate browsing context rather than fetched by the client.
func (c *Client) AdminDocumentViewURL(uploadID int) (string, error) {
	return c.tokenedURL(fmt.Sprintf("/api/admin/documento/%d/ver", uploadID))
}

func (c *Client) tokenedURL(path string) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("no credential source configured")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return c.baseURL + path + "?token=" + url.QueryEscape(token), nil
}

// --- superadmin ---

type adminListResponse struct {
	Admins []model.Admin `json:"admins"`
}

func (c *Client) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var resp adminListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/superadmin/admins", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Admins, nil
}

func (c *Client) CreateAdmin(ctx context.Context, name, username, password string) error {
	body := map[string]string{"nombre": name, "usuario": username, "contrasena": password}
	return c.doJSON(ctx, http.MethodPost, "/api/superadmin/admins", body, nil)
}

func (c *Client) DeleteAdmin(ctx context.Context, adminID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/superadmin/admins/%d", adminID), nil, nil)
}

// AdminPanel returns every table owned by one admin, fully expanded.
func (c *Client) AdminPanel(ctx context.Context, adminID int) (*model.AdminPanel, error) {
	var panel model.AdminPanel
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/superadmin/panel_admin/%d", adminID), nil, &panel); err != nil {
		return nil, err
	}
	return &panel, nil
}
