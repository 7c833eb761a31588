package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus tracks how far a meeting participant has been resolved to a contact.
type ParticipantStatus string

// Participant statuses.
const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantMatched  ParticipantStatus = "matched"
	ParticipantEnriched ParticipantStatus = "enriched"
	ParticipantUnknown  ParticipantStatus = "unknown"
)

// Valid reports whether s is a known status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantPending, ParticipantMatched, ParticipantEnriched, ParticipantUnknown:
		return true
	}
	return false
}

// Linked reports whether the status requires a contact reference.
func (s ParticipantStatus) Linked() bool {
	return s == ParticipantMatched || s == ParticipantEnriched
}

// Participant is one attendee of one calendar meeting.
type Participant struct {
	ID                  uuid.UUID         `json:"id"`
	OrganizationID      uuid.UUID         `json:"organization_id"`
	MeetingID           string            `json:"meeting_id"`
	MeetingTitle        string            `json:"meeting_title"`
	MeetingDateTime     *time.Time        `json:"meeting_date_time,omitempty"`
	Email               string            `json:"email"`
	DisplayName         string            `json:"display_name"`
	ResponseStatus      string            `json:"response_status"`
	IsOrganizer         bool              `json:"is_organizer"`
	IsOptional          bool              `json:"is_optional"`
	Platform            string            `json:"platform"`
	ContactID           *uuid.UUID        `json:"contact_id,omitempty"`
	EnrichmentStatus    ParticipantStatus `json:"enrichment_status"`
	AutoMatchConfidence *float64          `json:"auto_match_confidence,omitempty"`
	EnrichmentSource    *string           `json:"enrichment_source,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// MeetingSummary is the per-meeting participant aggregate, recomputed after each import.
type MeetingSummary struct {
	OrganizationID  uuid.UUID  `json:"organization_id"`
	MeetingID       string     `json:"meeting_id"`
	MeetingTitle    string     `json:"meeting_title"`
	MeetingDateTime *time.Time `json:"meeting_date_time,omitempty"`
	Total           int        `json:"total_participants"`
	Known           int        `json:"known_participants"`
	Unknown         int        `json:"unknown_participants"`
	External        int        `json:"external_participants"`
	AcceptanceRate  float64    `json:"acceptance_rate"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Attendee is one row of an inbound calendar attendee batch.
type Attendee struct {
	MeetingID       string     `json:"meetingId"`
	MeetingTitle    string     `json:"meetingTitle"`
	MeetingDateTime *time.Time `json:"meetingDateTime,omitempty"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"displayName"`
	ResponseStatus  string     `json:"responseStatus"`
	IsOrganizer     bool       `json:"isOrganizer"`
	IsOptional      bool       `json:"isOptional"`
	Platform        string     `json:"platform"`
}
