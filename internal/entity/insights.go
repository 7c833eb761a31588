package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// AIInsightsVersion is the schema version written by this service.
const AIInsightsVersion = 1

// Raw holds a provider-defined JSON item (experience entries, activity items).
type Raw = json.RawMessage

// AIInsights is the versioned enrichment record stored on a contact.
// Fields this version does not know are kept in Extra and written back unchanged.
type AIInsights struct {
	Version                 int            `json:"version"`
	Source                  string         `json:"enrichment_source"`
	ProfileSummary          string         `json:"profile_summary,omitempty"`
	DataQuality             string         `json:"data_quality,omitempty"`
	ConfidenceScore         float64        `json:"confidence_score"`
	Skills                  []string       `json:"skills,omitempty"`
	Experience              []Raw          `json:"experience,omitempty"`
	RecentActivity          []Raw          `json:"recent_activity,omitempty"`
	InterestsAnalyzed       int            `json:"interests_analyzed"`
	LinkedInProfileAnalyzed bool           `json:"linkedin_profile_analyzed"`
	EnrichedAt              time.Time      `json:"enriched_at"`
	Extra                   map[string]Raw `json:"-"`
}

type aiInsightsAlias AIInsights

var knownInsightKeys = map[string]struct{}{
	"version":                   {},
	"enrichment_source":         {},
	"profile_summary":           {},
	"data_quality":              {},
	"confidence_score":          {},
	"skills":                    {},
	"experience":                {},
	"recent_activity":           {},
	"interests_analyzed":        {},
	"linkedin_profile_analyzed": {},
	"enriched_at":               {},
}

// MarshalJSON flattens Extra next to the known fields.
func (a AIInsights) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(aiInsightsAlias(a))
	if err != nil {
		return nil, err
	}
	if len(a.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]Raw, len(a.Extra)+len(knownInsightKeys))
	for k, v := range a.Extra {
		if _, ok := knownInsightKeys[k]; !ok {
			merged[k] = v
		}
	}
	var fields map[string]Raw
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads known fields and collects the rest into Extra.
// Records written before versioning are treated as version 1.
func (a *AIInsights) UnmarshalJSON(data []byte) error {
	var alias aiInsightsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("decode ai insights: %w", err)
	}

	var fields map[string]Raw
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode ai insights fields: %w", err)
	}
	for k, v := range fields {
		if _, ok := knownInsightKeys[k]; ok {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]Raw)
		}
		alias.Extra[k] = v
	}
	if alias.Version == 0 {
		alias.Version = AIInsightsVersion
	}

	*a = AIInsights(alias)
	return nil
}
