package entity

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentType distinguishes local matching from external lookups.
type EnrichmentType string

// Enrichment types.
const (
	EnrichmentContactMatch EnrichmentType = "contact_match"
	EnrichmentAPILookup    EnrichmentType = "api_lookup"
)

// EnrichmentStatus is the lifecycle state of a history entry.
type EnrichmentStatus string

// History statuses. A row leaves pending exactly once.
const (
	EnrichmentPending EnrichmentStatus = "pending"
	EnrichmentSuccess EnrichmentStatus = "success"
	EnrichmentFailed  EnrichmentStatus = "failed"
)

// Enrichment sources.
const (
	SourceLinkedIn = "linkedin"
	SourceClearbit = "clearbit"
	SourceApollo   = "apollo"
	SourceHunter   = "hunter"
	SourceManual   = "manual"
	SourceAuto     = "auto"
)

// SourceCostCents is the per-lookup cost reported when a provider omits one.
var SourceCostCents = map[string]int{
	SourceClearbit: 100,
	SourceApollo:   50,
	SourceLinkedIn: 200,
}

// ExternalSource reports whether s can be requested from the enrichment service.
func ExternalSource(s string) bool {
	switch s {
	case SourceLinkedIn, SourceClearbit, SourceApollo, SourceHunter, SourceManual:
		return true
	}
	return false
}

// EnrichmentHistoryEntry is the audit row of one enrichment attempt.
type EnrichmentHistoryEntry struct {
	ID               uuid.UUID        `json:"id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	ParticipantID    *uuid.UUID       `json:"participant_id,omitempty"`
	RequestEmail     string           `json:"request_email"`
	EnrichmentType   EnrichmentType   `json:"enrichment_type"`
	EnrichmentSource string           `json:"enrichment_source"`
	Status           EnrichmentStatus `json:"status"`
	ConfidenceScore  *float64         `json:"confidence_score,omitempty"`
	MatchedContactID *uuid.UUID       `json:"matched_contact_id,omitempty"`
	CostCents        int              `json:"cost_cents"`
	ErrorMessage     *string          `json:"error_message,omitempty"`
	PerformedBy      *uuid.UUID       `json:"performed_by,omitempty"`
	PerformedAt      time.Time        `json:"performed_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}
