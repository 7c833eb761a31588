package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultContactStatus is assigned to contacts created by enrichment.
const DefaultContactStatus = "warm"

// Contact is the canonical CRM person record, unique per organization and email.
type Contact struct {
	ID                     uuid.UUID              `json:"id"`
	OrganizationID         uuid.UUID              `json:"organization_id"`
	Email                  string                 `json:"email"`
	FullName               string                 `json:"full_name"`
	RoleTitle              *string                `json:"role_title,omitempty"`
	Location               *string                `json:"location,omitempty"`
	Phone                  *string                `json:"phone,omitempty"`
	AvatarURL              *string                `json:"avatar_url,omitempty"`
	Status                 string                 `json:"status"`
	Score                  int                    `json:"score"`
	Source                 *string                `json:"source,omitempty"`
	Interests              []string               `json:"interests"`
	AIInsights             *AIInsights            `json:"ai_insights,omitempty"`
	SocialProfiles         SocialProfiles         `json:"social_profiles"`
	ProfessionalBackground ProfessionalBackground `json:"professional_background"`
	CompanyID              *uuid.UUID             `json:"company_id,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// Enriched reports whether the contact already carries enrichment insights.
func (c *Contact) Enriched() bool {
	return c != nil && c.AIInsights != nil
}

// SocialProfiles stores canonical profile URLs.
type SocialProfiles struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
}

// ProfessionalBackground is the career summary merged from enrichment.
type ProfessionalBackground struct {
	Skills         []string `json:"skills,omitempty"`
	Experience     []Raw    `json:"experience,omitempty"`
	ProfileSummary string   `json:"profile_summary,omitempty"`
}

// MatchCandidate is the slice of a contact the matcher needs.
type MatchCandidate struct {
	ID       uuid.UUID
	Email    string
	FullName string
}
