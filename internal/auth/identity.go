package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMissingIdentity is returned when an operation runs without a tenant-scoped caller.
var ErrMissingIdentity = errors.New("missing identity context")

// Identity is the authenticated caller. Every pipeline operation is scoped by OrganizationID.
type Identity struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Email          string
	Role           string
}

// NewIdentity parses raw identifiers into an Identity.
func NewIdentity(organizationID, userID, email, role string) (Identity, error) {
	org, err := uuid.Parse(strings.TrimSpace(organizationID))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: invalid organization id", ErrMissingIdentity)
	}
	user, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: invalid user id", ErrMissingIdentity)
	}
	id := Identity{OrganizationID: org, UserID: user, Email: strings.ToLower(strings.TrimSpace(email)), Role: role}
	return id, id.Validate()
}

// Validate reports whether the identity can scope datastore access.
func (i Identity) Validate() error {
	if i.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization id is required", ErrMissingIdentity)
	}
	if i.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrMissingIdentity)
	}
	return nil
}

// IsAdmin reports whether the caller carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// EmailDomain returns the domain part of the caller's email, used to classify internal attendees.
func (i Identity) EmailDomain() string {
	at := strings.LastIndex(i.Email, "@")
	if at < 0 {
		return ""
	}
	return i.Email[at+1:]
}

// Roles understood by the API.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
