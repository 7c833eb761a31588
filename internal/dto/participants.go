package dto

import (
	gcal "google.golang.org/api/calendar/v3"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// ImportParticipantsRequest is a calendar attendee batch. AutoMatch defaults to true.
type ImportParticipantsRequest struct {
	Participants []entity.Attendee `json:"participants"`
	AutoMatch    *bool             `json:"autoMatch,omitempty"`
}

// AutoMatchEnabled reports whether matching was requested.
func (r ImportParticipantsRequest) AutoMatchEnabled() bool {
	return r.AutoMatch == nil || *r.AutoMatch
}

// CalendarImportRequest carries raw Google Calendar events, as returned by events.list.
type CalendarImportRequest struct {
	Events    []*gcal.Event `json:"events"`
	AutoMatch *bool         `json:"autoMatch,omitempty"`
}

// AutoMatchEnabled reports whether matching was requested.
func (r CalendarImportRequest) AutoMatchEnabled() bool {
	return r.AutoMatch == nil || *r.AutoMatch
}

// LinkParticipantRequest links a participant to an existing contact by hand.
type LinkParticipantRequest struct {
	ContactID string `json:"contactId"`
}
