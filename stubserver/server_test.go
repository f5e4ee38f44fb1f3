package stubserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/config"
	"github.com/Martin-d-abloh/proyecto-academia/model"
	"github.com/Martin-d-abloh/proyecto-academia/reconcile"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

// newTestServer boots the full stub (router, store, memory blobs) and
// returns clients wired the way the CLI wires them.
func newTestServer(t *testing.T) (*httptest.Server, *session.MemStore, *session.Gate) {
	t.Helper()

	cfg := &config.StubConfig{
		JWTSecret:        "test-secret-key",
		TokenExpireHours: 12,
		Superadmin:       config.SeedAdmin{Name: "Superadmin", Username: "superadmin", Password: "super-pw"},
		Admins: []config.SeedAdmin{
			{Name: "Ana", Username: "ana", Password: "ana-pw"},
		},
	}

	store := NewStore()
	if err := Seed(cfg, store); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	server := httptest.NewServer(NewRouter(cfg, store, NewMemoryBlobStore()))
	t.Cleanup(server.Close)

	tokens := session.NewMemStore()
	return server, tokens, session.NewGate(tokens)
}

func staffClientFor(server *httptest.Server, tokens session.Store) *api.Client {
	return api.NewClient(server.URL, session.TokenSource{Store: tokens, Family: session.FamilyStaff})
}

func studentClientFor(server *httptest.Server, tokens session.Store) *api.Client {
	return api.NewClient(server.URL, session.TokenSource{Store: tokens, Family: session.FamilyStudent})
}

func loginStaff(t *testing.T, client *api.Client, tokens session.Store, username, password string) bool {
	t.Helper()
	token, superadmin, err := client.LoginStaff(context.Background(), username, password)
	if err != nil {
		t.Fatalf("Staff login failed: %v", err)
	}
	if err := tokens.Set(session.FamilyStaff, token); err != nil {
		t.Fatalf("Failed to store token: %v", err)
	}
	return superadmin
}

func TestAdminEndToEnd(t *testing.T) {
	server, tokens, gate := newTestServer(t)
	client := staffClientFor(server, tokens)
	ctx := context.Background()

	if superadmin := loginStaff(t, client, tokens, "ana", "ana-pw"); superadmin {
		t.Error("Expected plain admin, got superadmin")
	}

	if err := client.CreateTable(ctx, "Prácticas 2026"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	tables, err := client.ListTables(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "Prácticas 2026" {
		t.Fatalf("Unexpected tables: %+v", tables)
	}

	rec := reconcile.NewReconciler(client, gate, session.RoleAdmin, tables[0].ID, func(string) bool { return true })
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}

	if err := rec.AddDocumentRequirement(ctx, "DNI"); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if err := rec.AddStudent(ctx, "Luis", "Pérez Gómez"); err != nil {
		t.Fatalf("Failed to add student: %v", err)
	}

	if len(rec.Table().Documents) != 1 || len(rec.Table().Students) != 1 {
		t.Fatalf("Unexpected state after mutations: %+v", rec.Table())
	}
	student := rec.Table().Students[0]
	if !strings.Contains(student.FullName(), "Luis") {
		t.Errorf("Unexpected student: %+v", student)
	}

	// The duplicate check is local and case-insensitive.
	if err := rec.AddDocumentRequirement(ctx, "dni"); err == nil {
		t.Error("Expected duplicate document rejection")
	}

	if err := rec.RemoveStudent(ctx, student.ID); err != nil {
		t.Fatalf("Failed to remove student: %v", err)
	}
	if len(rec.Table().Students) != 0 {
		t.Errorf("Expected no students, got %+v", rec.Table().Students)
	}
}

func TestStudentUploadRoundTrip(t *testing.T) {
	server, tokens, _ := newTestServer(t)
	staff := staffClientFor(server, tokens)
	ctx := context.Background()

	loginStaff(t, staff, tokens, "ana", "ana-pw")
	if err := staff.CreateTable(ctx, "Prácticas"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	tables, _ := staff.ListTables(ctx, 0)
	tableID := tables[0].ID
	if err := staff.AddDocument(ctx, tableID, "DNI"); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if err := staff.AddStudent(ctx, tableID, "Luis", "Pérez"); err != nil {
		t.Fatalf("Failed to add student: %v", err)
	}

	// Student side: login with the plain name credential.
	student := studentClientFor(server, tokens)
	token, studentID, err := student.LoginStudent(ctx, "Luis Pérez")
	if err != nil {
		t.Fatalf("Student login failed: %v", err)
	}
	tokens.Set(session.FamilyStudent, token)

	docs, err := student.StudentDocuments(ctx, studentID)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 1 || docs[0].State != model.StateNotSubmitted {
		t.Fatalf("Unexpected initial documents: %+v", docs)
	}

	if err := student.UploadDocument(ctx, studentID, "DNI", "dni.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	docs, _ = student.StudentDocuments(ctx, studentID)
	if docs[0].State != model.StateSubmitted || docs[0].UploadID == nil {
		t.Fatalf("Expected submitted state, got %+v", docs[0])
	}
	uploadID := *docs[0].UploadID

	// The admin sees the upload and can download its bytes.
	detail, err := staff.GetTable(ctx, tableID)
	if err != nil {
		t.Fatalf("Failed to get table: %v", err)
	}
	if len(detail.Uploads) != 1 || detail.Uploads[0].ID != uploadID {
		t.Fatalf("Unexpected uploads: %+v", detail.Uploads)
	}

	body, contentType, err := staff.DownloadDocument(ctx, uploadID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "%PDF-1.4" {
		t.Errorf("Unexpected content %q", string(data))
	}
	if !strings.Contains(contentType, "application/octet-stream") && !strings.Contains(contentType, "pdf") {
		t.Errorf("Unexpected content type %q", contentType)
	}

	// Re-uploading replaces, never duplicates.
	if err := student.UploadDocument(ctx, studentID, "DNI", "dni-v2.pdf", strings.NewReader("%PDF-1.5")); err != nil {
		t.Fatalf("Second upload failed: %v", err)
	}
	detail, _ = staff.GetTable(ctx, tableID)
	if len(detail.Uploads) != 1 {
		t.Fatalf("Expected 1 upload after replacement, got %d", len(detail.Uploads))
	}

	// The student deletes their own upload.
	if err := student.DeleteStudentUpload(ctx, studentID, detail.Uploads[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	docs, _ = student.StudentDocuments(ctx, studentID)
	if docs[0].State != model.StateNotSubmitted {
		t.Errorf("Expected not-submitted after delete, got %+v", docs[0])
	}
}

func TestStudentCannotTouchOtherStudents(t *testing.T) {
	server, tokens, _ := newTestServer(t)
	staff := staffClientFor(server, tokens)
	ctx := context.Background()

	loginStaff(t, staff, tokens, "ana", "ana-pw")
	staff.CreateTable(ctx, "Prácticas")
	tables, _ := staff.ListTables(ctx, 0)
	staff.AddDocument(ctx, tables[0].ID, "DNI")
	staff.AddStudent(ctx, tables[0].ID, "Luis", "Pérez")
	staff.AddStudent(ctx, tables[0].ID, "Marta", "Ruiz")

	detail, _ := staff.GetTable(ctx, tables[0].ID)
	var luisID, martaID string
	for _, s := range detail.Students {
		if s.FirstName == "Luis" {
			luisID = s.ID
		} else {
			martaID = s.ID
		}
	}

	student := studentClientFor(server, tokens)
	token, _, err := student.LoginStudent(ctx, "Luis Pérez")
	if err != nil {
		t.Fatalf("Student login failed: %v", err)
	}
	tokens.Set(session.FamilyStudent, token)

	// Luis's token must not open Marta's panel.
	_, err = student.StudentDocuments(ctx, martaID)
	if !api.IsAuthorizationDenied(err) {
		t.Errorf("Expected authorization denial, got %v", err)
	}
	if _, err := student.StudentDocuments(ctx, luisID); err != nil {
		t.Errorf("Own panel must work: %v", err)
	}
}

func TestAdminScopingAcrossAdmins(t *testing.T) {
	server, tokens, _ := newTestServer(t)
	staff := staffClientFor(server, tokens)
	ctx := context.Background()

	// Superadmin creates a second admin.
	loginStaff(t, staff, tokens, "superadmin", "super-pw")
	if err := staff.CreateAdmin(ctx, "Berta", "berta", "berta-pw"); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}

	// Ana creates a table.
	loginStaff(t, staff, tokens, "ana", "ana-pw")
	staff.CreateTable(ctx, "Tabla de Ana")
	tables, _ := staff.ListTables(ctx, 0)
	anaTable := tables[0].ID

	// Berta cannot see or touch it.
	loginStaff(t, staff, tokens, "berta", "berta-pw")
	bertaTables, err := staff.ListTables(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	if len(bertaTables) != 0 {
		t.Errorf("Expected Berta to see no tables, got %+v", bertaTables)
	}
	_, err = staff.GetTable(ctx, anaTable)
	if !api.IsAuthorizationDenied(err) {
		t.Errorf("Expected denial for foreign table, got %v", err)
	}

	// The superadmin can.
	loginStaff(t, staff, tokens, "superadmin", "super-pw")
	if _, err := staff.GetTable(ctx, anaTable); err != nil {
		t.Errorf("Superadmin must access any table: %v", err)
	}
}

func TestSuperadminEndpoints(t *testing.T) {
	server, tokens, _ := newTestServer(t)
	staff := staffClientFor(server, tokens)
	ctx := context.Background()

	// A plain admin is denied on superadmin routes.
	loginStaff(t, staff, tokens, "ana", "ana-pw")
	_, err := staff.ListAdmins(ctx)
	if !api.IsAuthorizationDenied(err) {
		t.Fatalf("Expected denial for plain admin, got %v", err)
	}

	if superadmin := loginStaff(t, staff, tokens, "superadmin", "super-pw"); !superadmin {
		t.Fatal("Expected superadmin flag")
	}

	admins, err := staff.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("Failed to list admins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("Expected 2 admins (superadmin + ana), got %d", len(admins))
	}

	// Build a table under ana, then inspect it through the panel.
	var anaID int
	for _, a := range admins {
		if a.Name == "Ana" {
			anaID = a.ID
		}
	}

	loginStaff(t, staff, tokens, "ana", "ana-pw")
	staff.CreateTable(ctx, "Prácticas")

	loginStaff(t, staff, tokens, "superadmin", "super-pw")
	panel, err := staff.AdminPanel(ctx, anaID)
	if err != nil {
		t.Fatalf("Failed to fetch panel: %v", err)
	}
	if panel.AdminName != "Ana" || len(panel.Tables) != 1 {
		t.Errorf("Unexpected panel: %+v", panel)
	}

	// Superadmin lists ana's tables directly via admin_id.
	anaTables, err := staff.ListTables(ctx, anaID)
	if err != nil {
		t.Fatalf("Failed to list via admin_id: %v", err)
	}
	if len(anaTables) != 1 {
		t.Errorf("Expected 1 table, got %d", len(anaTables))
	}

	if err := staff.DeleteAdmin(ctx, anaID); err != nil {
		t.Fatalf("Failed to delete admin: %v", err)
	}
	admins, _ = staff.ListAdmins(ctx)
	if len(admins) != 1 {
		t.Errorf("Expected 1 admin after delete, got %d", len(admins))
	}
}

func TestTokenedViewURLs(t *testing.T) {
	server, tokens, _ := newTestServer(t)
	staff := staffClientFor(server, tokens)
	ctx := context.Background()

	loginStaff(t, staff, tokens, "ana", "ana-pw")
	staff.CreateTable(ctx, "Prácticas")
	tables, _ := staff.ListTables(ctx, 0)
	staff.AddDocument(ctx, tables[0].ID, "DNI")
	staff.AddStudent(ctx, tables[0].ID, "Luis", "Pérez")

	student := studentClientFor(server, tokens)
	token, studentID, _ := student.LoginStudent(ctx, "Luis Pérez")
	tokens.Set(session.FamilyStudent, token)
	student.UploadDocument(ctx, studentID, "DNI", "dni.pdf", strings.NewReader("%PDF-1.4"))

	docs, _ := student.StudentDocuments(ctx, studentID)
	uploadID := *docs[0].UploadID

	adminURL, err := staff.AdminDocumentViewURL(uploadID)
	if err != nil {
		t.Fatalf("Failed to build admin view URL: %v", err)
	}
	resp, err := http.Get(adminURL)
	if err != nil {
		t.Fatalf("Failed to fetch admin view URL: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from admin view URL, got %d", resp.StatusCode)
	}

	studentURL, err := student.StudentDocumentViewURL(uploadID)
	if err != nil {
		t.Fatalf("Failed to build student view URL: %v", err)
	}
	resp, err = http.Get(studentURL)
	if err != nil {
		t.Fatalf("Failed to fetch student view URL: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from student view URL, got %d", resp.StatusCode)
	}

	// Without a token the view endpoints refuse.
	resp, err = http.Get(server.URL + "/api/alumno/ver/1")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
}
