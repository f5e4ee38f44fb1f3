package model

import (
	"encoding/json"
	"fmt"
)

// UploadState is the review state of a submitted document. The server is
// the only writer of this value; the client observes it via refetch.
type UploadState string

const (
	StateNotSubmitted UploadState = "no_subido"
	StateSubmitted    UploadState = "subido"
	StateAccepted     UploadState = "aceptado"
	StateRejected     UploadState = "rechazado"
)

// ParseUploadState validates a server-provided state string. Unknown
// states are an error rather than something to render blindly.
func ParseUploadState(s string) (UploadState, error) {
	switch UploadState(s) {
	case StateNotSubmitted, StateSubmitted, StateAccepted, StateRejected:
		return UploadState(s), nil
	}
	return "", fmt.Errorf("unknown upload state %q", s)
}

func (s *UploadState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state, err := ParseUploadState(raw)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Table is a summary row from the table listing.
type Table struct {
	ID           int    `json:"id"`
	Name         string `json:"nombre"`
	StudentCount int    `json:"alumnos"`
}

// TableDetail is the full server-side state of one table: the three
// collections the presentation matrix is built from.
type TableDetail struct {
	ID        int                   `json:"id"`
	Name      string                `json:"nombre"`
	Documents []DocumentRequirement `json:"documentos"`
	Students  []Student             `json:"alumnos"`
	Uploads   []Upload              `json:"subidos"`
}

// DocumentRequirement is a named document type required within a table.
// Names are unique per table, case-insensitive.
type DocumentRequirement struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellidos"`
}

// FullName is the display name used for download filenames.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Upload is a student's submission against a document requirement. It is
// tied to the (student, requirement) pair by StudentID and DocumentName.
type Upload struct {
	ID           int         `json:"id"`
	StudentID    string      `json:"alumno_id"`
	DocumentName string      `json:"nombre"`
	StudentName  string      `json:"alumno_nombre,omitempty"`
	State        UploadState `json:"estado"`
}

// RequiredDocument is one entry of the student-facing document list:
// the requirement name plus the state of the student's own upload, if any.
type RequiredDocument struct {
	Name     string      `json:"nombre"`
	State    UploadState `json:"estado"`
	Uploaded bool        `json:"subido"`
	UploadID *int        `json:"id"`
}

type Admin struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre"`
	Username string `json:"usuario,omitempty"`
}

// AdminPanel is the superadmin view of one admin: every table they own,
// fully expanded.
type AdminPanel struct {
	AdminID   int           `json:"admin_id"`
	AdminName string        `json:"nombre"`
	Tables    []TableDetail `json:"tablas"`
}
