package stubserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Martin-d-abloh/proyecto-academia/model"
)

// Store is the stub backend's in-memory state. It mimics the real
// backend's data model closely enough for the client to be developed and
// tested against it.
type Store struct {
	mu     sync.RWMutex
	admins map[int]*adminRecord
	tables map[int]*tableRecord

	nextAdminID  int
	nextTableID  int
	nextDocID    int
	nextUploadID int
}

type adminRecord struct {
	ID           int
	Name         string
	Username     string
	Password     string
	IsSuperadmin bool
}

type tableRecord struct {
	ID        int
	Name      string
	AdminID   int
	Documents []docRecord
	Students  []studentRecord
	Uploads   []uploadRecord
}

type docRecord struct {
	ID   int
	Name string
}

type studentRecord struct {
	ID         string
	FirstName  string
	LastName   string
	Credential string
}

type uploadRecord struct {
	ID           int
	StudentID    string
	DocumentName string
	State        model.UploadState
	Filename     string
	ContentType  string
	ObjectKey    string
}

func NewStore() *Store {
	return &Store{
		admins: make(map[int]*adminRecord),
		tables: make(map[int]*tableRecord),
	}
}

// CredentialHash derives the student login credential the way the
// backend does: first and last names normalized and hashed together.
func CredentialHash(firstName, lastName string) string {
	normalized := normalize(firstName) + " " + normalize(lastName)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// --- admins ---

func (s *Store) CreateAdmin(name, username, password string, superadmin bool) (*adminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.admins {
		if strings.EqualFold(a.Username, username) || strings.EqualFold(a.Name, name) {
			return nil, fmt.Errorf("nombre de admin o usuario ya registrado")
		}
	}

	s.nextAdminID++
	admin := &adminRecord{
		ID:           s.nextAdminID,
		Name:         name,
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Password:     password,
		IsSuperadmin: superadmin,
	}
	s.admins[admin.ID] = admin
	return admin, nil
}

func (s *Store) FindAdminByUsername(username string) (*adminRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username = strings.ToLower(strings.TrimSpace(username))
	for _, a := range s.admins {
		if a.Username == username {
			clone := *a
			return &clone, true
		}
	}
	return nil, false
}

func (s *Store) GetAdmin(id int) (*adminRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[id]
	if !ok {
		return nil, false
	}
	clone := *a
	return &clone, true
}

func (s *Store) DeleteAdmin(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[id]; !ok {
		return false
	}
	delete(s.admins, id)
	for tableID, table := range s.tables {
		if table.AdminID == id {
			delete(s.tables, tableID)
		}
	}
	return true
}

func (s *Store) ListAdmins() []model.Admin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		result = append(result, model.Admin{ID: a.ID, Name: a.Name})
	}
	sortAdmins(result)
	return result
}

// --- tables ---

func (s *Store) CreateTable(adminID int, name string) model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTableID++
	table := &tableRecord{ID: s.nextTableID, Name: name, AdminID: adminID}
	s.tables[table.ID] = table
	return model.Table{ID: table.ID, Name: table.Name}
}

// TableOwner reports the owning admin of a table.
func (s *Store) TableOwner(tableID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[tableID]
	if !ok {
		return 0, false
	}
	return table.AdminID, true
}

// DeleteTable removes the table and returns the object keys of every
// upload it held, so the caller can release the blobs.
func (s *Store) DeleteTable(tableID int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, false
	}
	keys := objectKeys(table.Uploads)
	delete(s.tables, tableID)
	return keys, true
}

func (s *Store) ListTables(adminID int) []model.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Table
	for _, table := range s.tables {
		if table.AdminID == adminID {
			result = append(result, model.Table{
				ID:           table.ID,
				Name:         table.Name,
				StudentCount: len(table.Students),
			})
		}
	}
	sortTables(result)
	return result
}

// TableDetail assembles the three collections the client joins into its
// presentation matrix.
func (s *Store) TableDetail(tableID int) (*model.TableDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, false
	}
	return s.detailLocked(table), true
}

func (s *Store) detailLocked(table *tableRecord) *model.TableDetail {
	detail := &model.TableDetail{
		ID:        table.ID,
		Name:      table.Name,
		Documents: make([]model.DocumentRequirement, 0, len(table.Documents)),
		Students:  make([]model.Student, 0, len(table.Students)),
		Uploads:   make([]model.Upload, 0, len(table.Uploads)),
	}
	for _, d := range table.Documents {
		detail.Documents = append(detail.Documents, model.DocumentRequirement{ID: d.ID, Name: d.Name})
	}
	for _, st := range table.Students {
		detail.Students = append(detail.Students, model.Student{ID: st.ID, FirstName: st.FirstName, LastName: st.LastName})
	}
	for _, up := range table.Uploads {
		student, _ := findStudent(table.Students, up.StudentID)
		detail.Uploads = append(detail.Uploads, model.Upload{
			ID:           up.ID,
			StudentID:    up.StudentID,
			DocumentName: up.DocumentName,
			StudentName:  student.FirstName + " " + student.LastName,
			State:        up.State,
		})
	}
	return detail
}

// --- document requirements ---

func (s *Store) AddDocument(tableID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return fmt.Errorf("tabla no encontrada")
	}
	for _, d := range table.Documents {
		if strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name)) {
			return fmt.Errorf("ya existe un documento con ese nombre")
		}
	}

	s.nextDocID++
	table.Documents = append(table.Documents, docRecord{ID: s.nextDocID, Name: strings.TrimSpace(name)})
	return nil
}

// RemoveDocument deletes a requirement and cascades to every upload
// submitted against its name. Returns the released object keys.
func (s *Store) RemoveDocument(tableID, docID int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, false
	}

	var name string
	found := false
	docs := table.Documents[:0:0]
	for _, d := range table.Documents {
		if d.ID == docID {
			name = d.Name
			found = true
			continue
		}
		docs = append(docs, d)
	}
	if !found {
		return nil, false
	}
	table.Documents = docs

	var keys []string
	uploads := table.Uploads[:0:0]
	for _, up := range table.Uploads {
		if strings.EqualFold(up.DocumentName, name) {
			keys = append(keys, up.ObjectKey)
			continue
		}
		uploads = append(uploads, up)
	}
	table.Uploads = uploads
	return keys, true
}

// --- students ---

func (s *Store) AddStudent(tableID int, firstName, lastName string) (*studentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("tabla no encontrada")
	}

	student := studentRecord{
		ID:         uuid.New().String(),
		FirstName:  strings.TrimSpace(firstName),
		LastName:   strings.TrimSpace(lastName),
		Credential: CredentialHash(firstName, lastName),
	}
	table.Students = append(table.Students, student)
	return &student, nil
}

// RemoveStudent drops a student and cascades to their uploads. Returns
// the released object keys.
func (s *Store) RemoveStudent(tableID int, studentID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return nil, false
	}

	found := false
	students := table.Students[:0:0]
	for _, st := range table.Students {
		if st.ID == studentID {
			found = true
			continue
		}
		students = append(students, st)
	}
	if !found {
		return nil, false
	}
	table.Students = students

	var keys []string
	uploads := table.Uploads[:0:0]
	for _, up := range table.Uploads {
		if up.StudentID == studentID {
			keys = append(keys, up.ObjectKey)
			continue
		}
		uploads = append(uploads, up)
	}
	table.Uploads = uploads
	return keys, true
}

// FindStudentByCredential resolves a login credential hash.
func (s *Store) FindStudentByCredential(hash string) (*studentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, table := range s.tables {
		for _, st := range table.Students {
			if st.Credential == hash {
				clone := st
				return &clone, true
			}
		}
	}
	return nil, false
}

func (s *Store) GetStudent(studentID string) (*studentRecord, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, table := range s.tables {
		if st, ok := findStudent(table.Students, studentID); ok {
			clone := st
			return &clone, table.ID, true
		}
	}
	return nil, 0, false
}

// RequiredDocuments builds the student-facing list: every requirement of
// the student's table with the state of their own upload.
func (s *Store) RequiredDocuments(studentID string) ([]model.RequiredDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, table := range s.tables {
		if _, ok := findStudent(table.Students, studentID); !ok {
			continue
		}

		own := make(map[string]uploadRecord)
		for _, up := range table.Uploads {
			if up.StudentID == studentID {
				own[up.DocumentName] = up
			}
		}

		result := make([]model.RequiredDocument, 0, len(table.Documents))
		for _, d := range table.Documents {
			item := model.RequiredDocument{Name: d.Name, State: model.StateNotSubmitted}
			if up, ok := own[d.Name]; ok {
				id := up.ID
				item.State = up.State
				item.Uploaded = true
				item.UploadID = &id
			}
			result = append(result, item)
		}
		return result, true
	}
	return nil, false
}

// --- uploads ---

// SaveUpload records a submission against a requirement, replacing any
// prior upload for the same (student, document) pair. At most one upload
// exists per pair. Returns the new record plus the replaced object key,
// if any.
func (s *Store) SaveUpload(studentID, documentName, filename, contentType, objectKey string) (*uploadRecord, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range s.tables {
		if _, ok := findStudent(table.Students, studentID); !ok {
			continue
		}

		required := false
		for _, d := range table.Documents {
			if d.Name == documentName {
				required = true
				break
			}
		}
		if !required {
			return nil, "", fmt.Errorf("documento no requerido para esta tabla")
		}

		replacedKey := ""
		uploads := table.Uploads[:0:0]
		for _, up := range table.Uploads {
			if up.StudentID == studentID && up.DocumentName == documentName {
				replacedKey = up.ObjectKey
				continue
			}
			uploads = append(uploads, up)
		}

		s.nextUploadID++
		record := uploadRecord{
			ID:           s.nextUploadID,
			StudentID:    studentID,
			DocumentName: documentName,
			State:        model.StateSubmitted,
			Filename:     filename,
			ContentType:  contentType,
			ObjectKey:    objectKey,
		}
		table.Uploads = append(uploads, record)
		return &record, replacedKey, nil
	}
	return nil, "", fmt.Errorf("alumno no encontrado")
}

func (s *Store) GetUpload(uploadID int) (*uploadRecord, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, table := range s.tables {
		for _, up := range table.Uploads {
			if up.ID == uploadID {
				clone := up
				return &clone, table.ID, true
			}
		}
	}
	return nil, 0, false
}

// DeleteUpload removes a submission and returns its object key.
func (s *Store) DeleteUpload(uploadID int) (*uploadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range s.tables {
		uploads := table.Uploads[:0:0]
		var removed *uploadRecord
		for _, up := range table.Uploads {
			if up.ID == uploadID {
				clone := up
				removed = &clone
				continue
			}
			uploads = append(uploads, up)
		}
		if removed != nil {
			table.Uploads = uploads
			return removed, true
		}
	}
	return nil, false
}

// SetUploadState applies a review decision. Used by stub seeding and
// tests; the client never assigns states.
func (s *Store) SetUploadState(uploadID int, state model.UploadState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range s.tables {
		for i := range table.Uploads {
			if table.Uploads[i].ID == uploadID {
				table.Uploads[i].State = state
				return true
			}
		}
	}
	return false
}

// --- helpers ---

func findStudent(students []studentRecord, id string) (studentRecord, bool) {
	for _, st := range students {
		if st.ID == id {
			return st, true
		}
	}
	return studentRecord{}, false
}

func objectKeys(uploads []uploadRecord) []string {
	keys := make([]string, 0, len(uploads))
	for _, up := range uploads {
		keys = append(keys, up.ObjectKey)
	}
	return keys
}

func sortTables(tables []model.Table) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
}

func sortAdmins(admins []model.Admin) {
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
}
