package entity

import (
	"time"

	"github.com/google/uuid"
)

// Company is an organization-scoped account referenced by contacts.
type Company struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Domain         *string   `json:"domain,omitempty"`
	Industry       *string   `json:"industry,omitempty"`
	Size           *string   `json:"size,omitempty"`
	Description    *string   `json:"description,omitempty"`
	LogoURL        *string   `json:"logo_url,omitempty"`
	Website        *string   `json:"website,omitempty"`
	LinkedInURL    *string   `json:"linkedin_url,omitempty"`
	Technologies   []string  `json:"technologies"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
