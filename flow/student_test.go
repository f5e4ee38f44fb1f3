package flow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/model"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

func newStudentFlow(t *testing.T, handler http.Handler) (*StudentFlow, *session.MemStore, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	store := session.NewMemStore()
	store.Set(session.FamilyStudent, "tok")
	gate := session.NewGate(store)
	client := api.NewClient(server.URL, session.TokenSource{Store: store, Family: session.FamilyStudent})

	return NewStudentFlow(client, gate, "s-7"), store, server.Close
}

func TestUploadValidation(t *testing.T) {
	requests := 0
	flow, _, closeServer := newStudentFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer closeServer()

	tests := []struct {
		name     string
		docName  string
		filename string
		file     bool
	}{
		{name: "missing document name", docName: "", filename: "dni.pdf", file: true},
		{name: "missing file", docName: "DNI", filename: "dni.pdf", file: false},
		{name: "missing filename", docName: "DNI", filename: "", file: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reader *strings.Reader
			if tt.file {
				reader = strings.NewReader("%PDF-1.4")
			}
			var err error
			if reader == nil {
				_, err = flow.Upload(context.Background(), tt.docName, tt.filename, nil)
			} else {
				_, err = flow.Upload(context.Background(), tt.docName, tt.filename, reader)
			}

			var validation *model.ValidationError
			if !errors.As(err, &validation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if requests != 0 {
		t.Errorf("Validation failures must not hit the server, got %d requests", requests)
	}
}

func TestUploadRefetchesDocuments(t *testing.T) {
	mux := http.NewServeMux()
	uploaded := false
	mux.HandleFunc("/api/alumno/s-7/subir", func(w http.ResponseWriter, r *http.Request) {
		uploaded = true
		w.Write([]byte(`{"mensaje": "ok"}`))
	})
	mux.HandleFunc("/api/alumno/s-7/documentos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documentos": [{"nombre": "DNI", "estado": "subido", "subido": true, "id": 4}]}`))
	})

	flow, _, closeServer := newStudentFlow(t, mux)
	defer closeServer()

	docs, err := flow.Upload(context.Background(), "DNI", "dni.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !uploaded {
		t.Error("Expected upload request to be sent")
	}
	if len(docs) != 1 || docs[0].State != model.StateSubmitted {
		t.Errorf("Expected refetched list with submitted state, got %+v", docs)
	}
}

func TestStudentDenialPurgesStudentToken(t *testing.T) {
	flow, store, closeServer := newStudentFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "Acceso denegado"}`))
	}))
	defer closeServer()

	_, err := flow.RequiredDocuments(context.Background())
	if !session.IsDenied(err) {
		t.Fatalf("Expected denial, got %v", err)
	}

	var denied *session.DeniedError
	errors.As(err, &denied)
	if denied.LoginPath() != "/login-alumno" {
		t.Errorf("Expected student login path, got %q", denied.LoginPath())
	}
	if _, err := store.Get(session.FamilyStudent); !errors.Is(err, session.ErrNoToken) {
		t.Errorf("Expected student token purged, got %v", err)
	}
}
