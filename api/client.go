package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource supplies the bearer token for protected requests. An empty
// token means "no credential": the request goes out without a header and
// the server answers 403.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the document-collection REST API. One client serves one
// role family; build a second client for the other family's endpoints.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the JSON error envelope every endpoint uses.
type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w, body: %s", err, string(data))
		}
	}
	return nil
}

func apiErrorFrom(status int, body []byte) error {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &APIError{StatusCode: status, Message: envelope.Error}
	}
	return &APIError{StatusCode: status}
}

// --- authentication ---

type staffLoginRequest struct {
	Username string `json:"usuario"`
	Password string `json:"contrasena"`
}

type staffLoginResponse struct {
	Token        string `json:"token"`
	IsSuperadmin bool   `json:"es_superadmin"`
	Username     string `json:"usuario"`
}

// LoginStaff exchanges staff credentials for a bearer token. The token
// embeds es_superadmin for routing.
func (c *Client) LoginStaff(ctx context.Context, username, password string) (string, bool, error) {
	var resp staffLoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login_jwt", staffLoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return "", false, err
	}
	return resp.Token, resp.IsSuperadmin, nil
}

type studentLoginRequest struct {
	Credential string `json:"credencial"`
}

type studentLoginResponse struct {
	Token     string `json:"token"`
	StudentID string `json:"alumno_id"`
}

// LoginStudent exchanges the "nombre apellidos" credential for a student
// token plus the student's id.
func (c *Client) LoginStudent(ctx context.Context, credential string) (string, string, error) {
	var resp studentLoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login_alumno", studentLoginRequest{Credential: credential}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Token, resp.StudentID, nil
}
