package flow

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

// AdminFlow is the admin's review side: download an upload to disk or
// build the inline-view URL.
type AdminFlow struct {
	client *api.Client
	gate   *session.Gate
	role   session.Role
}

func NewAdminFlow(client *api.Client, gate *session.Gate, role session.Role) *AdminFlow {
	return &AdminFlow{client: client, gate: gate, role: role}
}

// Download fetches an upload and saves it under dir. The file is written
// to a temporary name first and renamed into place on success; the
// temporary file is always removed on error, so a failed download leaves
// nothing behind. Returns the final path.
func (f *AdminFlow) Download(ctx context.Context, uploadID int, suggestedName, dir string) (string, error) {
	body, contentType, err := f.client.DownloadDocument(ctx, uploadID)
	if err != nil {
		return "", f.gate.HandleAPIError(f.role, err)
	}
	defer body.Close()

	finalPath := filepath.Join(dir, downloadFilename(suggestedName, contentType))

	tmp, err := os.CreateTemp(dir, ".descarga-*")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}

	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}

	committed = true
	return finalPath, nil
}

// ViewURL builds the tokened inline-view URL for an upload.
func (f *AdminFlow) ViewURL(uploadID int) (string, error) {
	return f.client.AdminDocumentViewURL(uploadID)
}

// downloadFilename flattens whitespace the way the web frontend named its
// downloads and appends an extension derived from the content type.
func downloadFilename(suggested, contentType string) string {
	name := strings.Join(strings.Fields(strings.TrimSpace(suggested)), "_")
	if name == "" {
		name = "documento"
	}
	if filepath.Ext(name) != "" {
		return name
	}
	return name + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "application/pdf":
			return ".pdf"
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".pdf"
}
