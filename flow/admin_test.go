package flow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

func newAdminFlow(t *testing.T, handler http.Handler) (*AdminFlow, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	store := session.NewMemStore()
	store.Set(session.FamilyStaff, "tok")
	gate := session.NewGate(store)
	client := api.NewClient(server.URL, session.TokenSource{Store: store, Family: session.FamilyStaff})

	return NewAdminFlow(client, gate, session.RoleAdmin), server.Close
}

func TestDownloadWritesFile(t *testing.T) {
	flow, closeServer := newAdminFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 content"))
	}))
	defer closeServer()

	dir := t.TempDir()
	path, err := flow.Download(context.Background(), 12, "DNI Ana García", dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if filepath.Base(path) != "DNI_Ana_García.pdf" {
		t.Errorf("Unexpected filename %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != "%PDF-1.4 content" {
		t.Errorf("Unexpected file content %q", string(data))
	}
}

func TestDownloadFailureLeavesNothing(t *testing.T) {
	flow, closeServer := newAdminFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Documento no encontrado"}`))
	}))
	defer closeServer()

	dir := t.TempDir()
	if _, err := flow.Download(context.Background(), 12, "DNI", dir); err == nil {
		t.Fatal("Expected error for missing document")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory after failed download, found %d entries", len(entries))
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name        string
		suggested   string
		contentType string
		want        string
	}{
		{name: "spaces flattened", suggested: "DNI Ana García", contentType: "application/pdf", want: "DNI_Ana_García.pdf"},
		{name: "existing extension kept", suggested: "informe.docx", contentType: "application/pdf", want: "informe.docx"},
		{name: "png", suggested: "foto", contentType: "image/png", want: "foto.png"},
		{name: "jpeg", suggested: "foto", contentType: "image/jpeg; charset=binary", want: "foto.jpg"},
		{name: "empty falls back", suggested: "   ", contentType: "", want: "documento.pdf"},
		{name: "unknown type falls back to pdf", suggested: "x", contentType: "application/x-unknown-9z", want: "x.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := downloadFilename(tt.suggested, tt.contentType); got != tt.want {
				t.Errorf("downloadFilename(%q, %q) = %q, want %q", tt.suggested, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestViewURL(t *testing.T) {
	store := session.NewMemStore()
	store.Set(session.FamilyStaff, "tok-1")
	gate := session.NewGate(store)
	client := api.NewClient("http://backend:5001", session.TokenSource{Store: store, Family: session.FamilyStaff})
	flow := NewAdminFlow(client, gate, session.RoleAdmin)

	url, err := flow.ViewURL(12)
	if err != nil {
		t.Fatalf("Failed to build view URL: %v", err)
	}
	if url != "http://backend:5001/api/admin/documento/12/ver?token=tok-1" {
		t.Errorf("Unexpected URL %q", url)
	}
}

func TestDownloadDenialSurfacesAsDenied(t *testing.T) {
	flow, closeServer := newAdminFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "Acceso denegado"}`))
	}))
	defer closeServer()

	_, err := flow.Download(context.Background(), 12, "DNI", t.TempDir())
	if !session.IsDenied(err) {
		t.Errorf("Expected denial, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "admin") {
		t.Errorf("Expected role in denial message, got %q", err.Error())
	}
}
