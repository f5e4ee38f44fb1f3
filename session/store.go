package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Family is a credential namespace. A staff session and a student session
// coexist independently; clearing one must never touch the other.
type Family string

const (
	FamilyStaff   Family = "staff"
	FamilyStudent Family = "student"
)

// storageKey maps a family to its key in the persisted key/value file,
// mirroring the localStorage keys the web frontend used.
func (f Family) storageKey() string {
	if f == FamilyStudent {
		return "token_alumno"
	}
	return "token"
}

// ErrNoToken means no credential is stored for the requested family.
var ErrNoToken = errors.New("no stored token")

// Store holds role-scoped bearer tokens. Written only at login and by the
// gate's denial-driven purge; read on every protected request.
type Store interface {
	Get(family Family) (string, error)
	Set(family Family, token string) error
	Clear(family Family) error
}

// FileStore persists tokens in a JSON key/value file, the CLI's stand-in
// for browser local storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(family Family) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	token := values[family.storageKey()]
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *FileStore) Set(family Family, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[family.storageKey()] = token
	return s.write(values)
}

func (s *FileStore) Clear(family Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	delete(values, family.storageKey())
	return s.write(values)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	values := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			// A corrupt session file behaves like an empty one; the next
			// write replaces it.
			return map[string]string{}, nil
		}
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	tokens map[Family]string
}

func NewMemStore() *MemStore {
	return &MemStore{tokens: make(map[Family]string)}
}

func (s *MemStore) Get(family Family) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[family]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *MemStore) Set(family Family, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[family] = token
	return nil
}

func (s *MemStore) Clear(family Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, family)
	return nil
}
