package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Martin-d-abloh/proyecto-academia/api"
)

// Role is what a protected view requires.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleStudent    Role = "alumno"
)

// Family returns the credential namespace the role is resolved against.
func (r Role) Family() Family {
	if r == RoleStudent {
		return FamilyStudent
	}
	return FamilyStaff
}

// LoginPath is where a denied caller is redirected.
func (r Role) LoginPath() string {
	if r == RoleStudent {
		return "/login-alumno"
	}
	return "/login"
}

// Claims are the token payload fields the backend embeds. They are decoded
// without signature verification: this is a capability check for routing
// only, the server re-authorizes every call.
type Claims struct {
	Username     string `json:"usuario,omitempty"`
	AdminID      int    `json:"id,omitempty"`
	IsSuperadmin bool   `json:"es_superadmin,omitempty"`
	StudentID    string `json:"alumno_id,omitempty"`
	jwt.RegisteredClaims
}

// DeniedError is terminal for the current view: the caller must redirect
// to LoginPath, never render partial content.
type DeniedError struct {
	Role   Role
	Reason string
	cause  error
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied for role %s: %s", e.Role, e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return e.cause
}

func (e *DeniedError) LoginPath() string {
	return e.Role.LoginPath()
}

// IsDenied reports whether err is a session denial.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}

// Gate resolves whether a caller holds a role-scoped credential. It is the
// only writer of the store besides login itself.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Resolve returns the decoded claims for the requested role, or a
// DeniedError. A malformed token is purged; a token valid for a lesser
// role (admin asked to act as superadmin) is denied but kept, since it
// still serves its own role.
func (g *Gate) Resolve(role Role) (*Claims, error) {
	token, err := g.store.Get(role.Family())
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, &DeniedError{Role: role, Reason: "no credential stored", cause: err}
		}
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		if clearErr := g.store.Clear(role.Family()); clearErr != nil {
			return nil, fmt.Errorf("failed to purge malformed credential: %w", clearErr)
		}
		return nil, &DeniedError{Role: role, Reason: "credential is malformed", cause: err}
	}

	switch role {
	case RoleStudent:
		if claims.StudentID == "" {
			return nil, &DeniedError{Role: role, Reason: "credential carries no student id"}
		}
	case RoleSuperadmin:
		if !claims.IsSuperadmin {
			return nil, &DeniedError{Role: role, Reason: "credential is not a superadmin credential"}
		}
	}

	return claims, nil
}

// HandleAPIError translates an authorization-denied API response into a
// purge of the current role family plus a terminal denial. Any other
// error passes through untouched. The other family's token is never
// cleared here.
func (g *Gate) HandleAPIError(role Role, err error) error {
	if err == nil {
		return nil
	}
	if !api.IsAuthorizationDenied(err) {
		return err
	}
	if clearErr := g.store.Clear(role.Family()); clearErr != nil {
		return fmt.Errorf("failed to purge credential after denial: %w", clearErr)
	}
	return &DeniedError{Role: role, Reason: "server rejected the credential", cause: err}
}

// TokenSource adapts the store to the API client's token interface for
// one role family.
type TokenSource struct {
	Store  Store
	Family Family
}

// Token returns the stored token, or empty when none is stored. The
// server answers an unauthenticated request with 403, which feeds the
// gate's purge path; there is nothing useful to fail locally.
func (t TokenSource) Token() (string, error) {
	token, err := t.Store.Get(t.Family)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}
