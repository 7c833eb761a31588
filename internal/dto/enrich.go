package dto

import "encoding/json"

// EnrichRequest asks the enrichment service to look a contact up.
type EnrichRequest struct {
	Email          string          `json:"email"`
	LinkedInURL    string          `json:"linkedinUrl,omitempty"`
	FullName       string          `json:"fullName,omitempty"`
	CompanyName    string          `json:"companyName,omitempty"`
	Source         string          `json:"source,omitempty"`
	ParticipantID  string          `json:"participantId,omitempty"`
	AdditionalData *AdditionalData `json:"additionalData,omitempty"`
}

// AdditionalData carries caller hints forwarded to the lookup.
type AdditionalData struct {
	RoleTitle     string `json:"roleTitle,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Location      string `json:"location,omitempty"`
	CompanyDomain string `json:"companyDomain,omitempty"`
}

// EnrichResponse reports whether a lookup was dispatched or skipped.
type EnrichResponse struct {
	Outcome        string  `json:"outcome"`
	SkipEnrichment bool    `json:"skip_enrichment"`
	EnrichmentID   *string `json:"enrichment_id,omitempty"`
	ContactID      *string `json:"contact_id,omitempty"`
}

// EnrichmentWebhook is the asynchronous result posted by the enrichment service.
type EnrichmentWebhook struct {
	Success          bool            `json:"success"`
	Data             *EnrichedData   `json:"data,omitempty"`
	Error            string          `json:"error,omitempty"`
	Source           string          `json:"source"`
	ProcessingTimeMs *int            `json:"processingTimeMs,omitempty"`
	APICallsCost     *int            `json:"apiCallsCost,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// EnrichedData is the contact and company profile found by a provider.
type EnrichedData struct {
	Email       string `json:"email"`
	FullName    string `json:"fullName,omitempty"`
	RoleTitle   string `json:"roleTitle,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Domain      string `json:"companyDomain,omitempty"`
	Location    string `json:"location,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedinUrl,omitempty"`
	TwitterURL  string `json:"twitterUrl,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`

	CompanySize         string   `json:"companySize,omitempty"`
	CompanyIndustry     string   `json:"companyIndustry,omitempty"`
	CompanyDescription  string   `json:"companyDescription,omitempty"`
	CompanyLogo         string   `json:"companyLogo,omitempty"`
	CompanyWebsite      string   `json:"companyWebsite,omitempty"`
	CompanyLinkedIn     string   `json:"companyLinkedin,omitempty"`
	CompanyFunding      string   `json:"companyFunding,omitempty"`
	CompanyTechnologies []string `json:"companyTechnologies,omitempty"`

	ProfileSummary    string            `json:"profileSummary,omitempty"`
	Interests         []string          `json:"interests,omitempty"`
	Skills            []string          `json:"skills,omitempty"`
	Experience        []json.RawMessage `json:"experience,omitempty"`
	RecentActivity    []json.RawMessage `json:"recentActivity,omitempty"`
	MutualConnections []json.RawMessage `json:"mutualConnections,omitempty"`

	EnrichmentSource     string  `json:"enrichmentSource"`
	EnrichmentConfidence float64 `json:"enrichmentConfidence"`
	DataQuality          string  `json:"dataQuality,omitempty"`
	LastUpdated          string  `json:"lastUpdated,omitempty"`

	ParticipantID       string `json:"participantId,omitempty"`
	OrganizationID      string `json:"organizationId"`
	UserID              string `json:"userId,omitempty"`
	EnrichmentHistoryID string `json:"enrichmentHistoryId,omitempty"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Success            bool    `json:"success"`
	ContactID          *string `json:"contact_id,omitempty"`
	ParticipantUpdated bool    `json:"participant_updated"`
	CompanyCreated     bool    `json:"company_created"`
	CompanyID          *string `json:"company_id,omitempty"`
	HistoryUpdated     bool    `json:"history_updated"`
	Error              string  `json:"error,omitempty"`
}
