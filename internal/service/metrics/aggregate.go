package metrics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

const (
	// DefaultWindowDays is the trailing window used when a caller does not pick one.
	DefaultWindowDays = 30

	highConfidence   = 0.9
	lowConfidence    = 0.7
	recentErrorLimit = 10
	dayLayout        = "2006-01-02"
)

// Snapshot is the raw data the aggregator summarizes. Rows outside the window are ignored.
type Snapshot struct {
	Participants []entity.Participant
	History      []entity.EnrichmentHistoryEntry
	Meetings     []entity.MeetingSummary
}

// SourceStats summarizes the attempts recorded for one enrichment source.
type SourceStats struct {
	Attempts         int     `json:"attempts"`
	Successes        int     `json:"successes"`
	Failures         int     `json:"failures"`
	Pending          int     `json:"pending"`
	SuccessRate      float64 `json:"success_rate"`
	AverageCostCents float64 `json:"average_cost_cents"`
	TotalCostCents   int     `json:"total_cost_cents"`
}

// DailyStat is one calendar day (UTC) of activity.
type DailyStat struct {
	Date                 string `json:"date"`
	ParticipantsAdded    int    `json:"participants_added"`
	ParticipantsMatched  int    `json:"participants_matched"`
	ParticipantsEnriched int    `json:"participants_enriched"`
	CostCents            int    `json:"cost_cents"`
}

// RecentError is a failed attempt surfaced on dashboards.
type RecentError struct {
	HistoryID     uuid.UUID  `json:"history_id"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	Email         string     `json:"email"`
	Source        string     `json:"source"`
	Type          string     `json:"enrichment_type"`
	Error         string     `json:"error,omitempty"`
	At            time.Time  `json:"at"`
}

// ParticipantMetrics is the aggregate view over a trailing window.
type ParticipantMetrics struct {
	WindowDays  int       `json:"window_days"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalParticipants    int     `json:"total_participants"`
	MatchedParticipants  int     `json:"matched_participants"`
	EnrichedParticipants int     `json:"enriched_participants"`
	UnknownParticipants  int     `json:"unknown_participants"`
	PendingParticipants  int     `json:"pending_participants"`
	LinkedParticipants   int     `json:"linked_participants"`
	OverallMatchRate     float64 `json:"overall_match_rate"`

	AutoMatchRate     float64 `json:"auto_match_rate"`
	ManualMatchRate   float64 `json:"manual_match_rate"`
	APIEnrichmentRate float64 `json:"api_enrichment_rate"`

	HighConfidenceMatches int `json:"high_confidence_matches"`
	LowConfidenceMatches  int `json:"low_confidence_matches"`

	EnrichmentBySource       map[string]SourceStats `json:"enrichment_by_source"`
	TotalAttempts            int                    `json:"total_attempts"`
	SuccessfulAttempts       int                    `json:"successful_attempts"`
	FailedAttempts           int                    `json:"failed_attempts"`
	ErrorRate                float64                `json:"error_rate"`
	TotalCostCents           int                    `json:"total_cost_cents"`
	AverageCostPerEnrichment float64                `json:"average_cost_per_enrichment"`

	MeetingsWithFullParticipantData int     `json:"meetings_with_full_participant_data"`
	MeetingsWithUnknownParticipants int     `json:"meetings_with_unknown_participants"`
	AverageParticipantsPerMeeting   float64 `json:"average_participants_per_meeting"`
	DuplicateEmails                 int     `json:"duplicate_emails_detected"`

	ParticipantsAddedLast24h    int `json:"participants_added_last_24h"`
	ParticipantsEnrichedLast24h int `json:"participants_enriched_last_24h"`

	DailyStats   []DailyStat   `json:"daily_stats"`
	RecentErrors []RecentError `json:"recent_errors"`
}

// LowConfidenceRate is the share of all participants whose match confidence is low, in percent.
func (m ParticipantMetrics) LowConfidenceRate() float64 {
	return percent(m.LowConfidenceMatches, m.TotalParticipants)
}

// LastDay returns the most recent entry of the daily series.
func (m ParticipantMetrics) LastDay() (DailyStat, bool) {
	if len(m.DailyStats) == 0 {
		return DailyStat{}, false
	}
	return m.DailyStats[len(m.DailyStats)-1], true
}

// Compute aggregates snap over the `days` UTC calendar days ending on now's day.
func Compute(snap Snapshot, now time.Time, days int) ParticipantMetrics {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))
	last24h := now.Add(-24 * time.Hour)

	m := ParticipantMetrics{
		WindowDays:         days,
		GeneratedAt:        now,
		EnrichmentBySource: make(map[string]SourceStats),
		DailyStats:         make([]DailyStat, days),
		RecentErrors:       []RecentError{},
	}
	dayIndex := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dayLayout)
		m.DailyStats[i] = DailyStat{Date: date}
		dayIndex[date] = i
	}

	participantEmails := make(map[uuid.UUID]string)
	emailCounts := make(map[string]int)
	for _, p := range snap.Participants {
		participantEmails[p.ID] = p.Email
		created := p.CreatedAt.UTC()
		if created.Before(start) || created.After(now) {
			continue
		}

		m.TotalParticipants++
		emailCounts[p.Email]++
		switch p.EnrichmentStatus {
		case entity.ParticipantMatched:
			m.MatchedParticipants++
		case entity.ParticipantEnriched:
			m.EnrichedParticipants++
		case entity.ParticipantUnknown:
			m.UnknownParticipants++
		default:
			m.PendingParticipants++
		}
		if p.ContactID != nil {
			m.LinkedParticipants++
		}
		if p.AutoMatchConfidence != nil {
			switch c := *p.AutoMatchConfidence; {
			case c > highConfidence:
				m.HighConfidenceMatches++
			case c < lowConfidence:
				m.LowConfidenceMatches++
			}
		}
		if created.After(last24h) {
			m.ParticipantsAddedLast24h++
		}
		if i, ok := dayIndex[created.Format(dayLayout)]; ok {
			m.DailyStats[i].ParticipantsAdded++
		}
	}
	m.OverallMatchRate = percent(m.LinkedParticipants, m.TotalParticipants)
	for _, count := range emailCounts {
		if count > 1 {
			m.DuplicateEmails++
		}
	}

	var autoMatches, manualMatches, apiEnrichments int
	var failed []entity.EnrichmentHistoryEntry
	for _, h := range snap.History {
		performed := h.PerformedAt.UTC()
		if performed.Before(start) || performed.After(now) {
			continue
		}

		source := h.EnrichmentSource
		if source == "" {
			source = "unknown"
		}
		stats := m.EnrichmentBySource[source]
		stats.Attempts++
		stats.TotalCostCents += h.CostCents
		m.TotalAttempts++
		m.TotalCostCents += h.CostCents

		day, inSeries := dayIndex[performed.Format(dayLayout)]
		if inSeries {
			m.DailyStats[day].CostCents += h.CostCents
		}

		switch h.Status {
		case entity.EnrichmentSuccess:
			stats.Successes++
			m.SuccessfulAttempts++
			switch {
			case h.EnrichmentType == entity.EnrichmentContactMatch && source == entity.SourceAuto:
				autoMatches++
			case h.EnrichmentType == entity.EnrichmentContactMatch && source == entity.SourceManual:
				manualMatches++
			case h.EnrichmentType == entity.EnrichmentAPILookup:
				apiEnrichments++
			}
			if inSeries {
				if h.EnrichmentType == entity.EnrichmentContactMatch {
					m.DailyStats[day].ParticipantsMatched++
				} else {
					m.DailyStats[day].ParticipantsEnriched++
				}
			}
			if performed.After(last24h) {
				m.ParticipantsEnrichedLast24h++
			}
		case entity.EnrichmentFailed:
			stats.Failures++
			m.FailedAttempts++
			failed = append(failed, h)
		default:
			stats.Pending++
		}
		m.EnrichmentBySource[source] = stats
	}

	for source, stats := range m.EnrichmentBySource {
		stats.SuccessRate = percent(stats.Successes, stats.Attempts)
		if stats.Successes > 0 {
			stats.AverageCostCents = float64(stats.TotalCostCents) / float64(stats.Successes)
		}
		m.EnrichmentBySource[source] = stats
	}
	m.ErrorRate = percent(m.FailedAttempts, m.TotalAttempts)
	if m.SuccessfulAttempts > 0 {
		m.AverageCostPerEnrichment = float64(m.TotalCostCents) / float64(m.SuccessfulAttempts)
	}

	totalMatches := autoMatches + manualMatches + apiEnrichments
	m.AutoMatchRate = percent(autoMatches, totalMatches)
	m.ManualMatchRate = percent(manualMatches, totalMatches)
	m.APIEnrichmentRate = percent(apiEnrichments, totalMatches)

	meetingParticipants := 0
	for _, s := range snap.Meetings {
		meetingParticipants += s.Total
		if s.Unknown == 0 {
			m.MeetingsWithFullParticipantData++
		} else {
			m.MeetingsWithUnknownParticipants++
		}
	}
	if len(snap.Meetings) > 0 {
		m.AverageParticipantsPerMeeting = float64(meetingParticipants) / float64(len(snap.Meetings))
	}

	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].PerformedAt.After(failed[j].PerformedAt)
	})
	for i, h := range failed {
		if i == recentErrorLimit {
			break
		}
		e := RecentError{
			HistoryID:     h.ID,
			ParticipantID: h.ParticipantID,
			Email:         h.RequestEmail,
			Source:        h.EnrichmentSource,
			Type:          string(h.EnrichmentType),
			At:            h.PerformedAt,
		}
		if h.ParticipantID != nil {
			if email, ok := participantEmails[*h.ParticipantID]; ok && e.Email == "" {
				e.Email = email
			}
		}
		if h.ErrorMessage != nil {
			e.Error = *h.ErrorMessage
		}
		m.RecentErrors = append(m.RecentErrors, e)
	}

	return m
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
