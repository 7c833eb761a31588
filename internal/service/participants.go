package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/calendar"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/matching"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/normalize"
)

// Defaults applied to attendee fields the calendar left empty.
const (
	DefaultMeetingTitle   = "Untitled Meeting"
	DefaultResponseStatus = "needsAction"
	DefaultPlatform       = calendar.PlatformGoogleMeet

	defaultListLimit = 100
	maxListLimit     = 500
)

// ImportResult summarises one attendee batch.
type ImportResult struct {
	TotalImported       int                     `json:"total_imported"`
	Inserted            int                     `json:"inserted"`
	Updated             int                     `json:"updated"`
	MatchedContacts     int                     `json:"matched_contacts"`
	UnknownParticipants int                     `json:"unknown_participants"`
	MeetingsProcessed   int                     `json:"meetings_processed"`
	AutoMatchEnabled    bool                    `json:"auto_match_enabled"`
	HistoryRows         int                     `json:"history_rows"`
	Participants        []entity.Participant    `json:"participants"`
	Summaries           []entity.MeetingSummary `json:"summaries"`
}

// CalendarImportResult adds the events the adapter skipped.
type CalendarImportResult struct {
	ImportResult
	EventsImported int            `json:"events_imported"`
	EventsSkipped  map[string]int `json:"events_skipped"`
}

// ListParticipantsQuery filters and pages participant listings.
type ListParticipantsQuery struct {
	MeetingID string
	Email     string
	Status    string
	ContactID *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	Limit     int
}

// ParticipantPage is one page of participants plus organization-wide counts.
type ParticipantPage struct {
	Participants []entity.Participant        `json:"participants"`
	Stats        repository.ParticipantStats `json:"stats"`
	Page         int                         `json:"page"`
	Limit        int                         `json:"limit"`
	Total        int                         `json:"total"`
	TotalPages   int                         `json:"total_pages"`
}

// ParticipantService ingests calendar attendees and resolves them to contacts.
type ParticipantService struct {
	participants repository.ParticipantsRepository
	contacts     repository.ContactsRepository
	summaries    repository.SummariesRepository
	matcher      *matching.Matcher
	normalizer   *normalize.Normalizer
	logger       *slog.Logger
}

// NewParticipantService wires the importer.
func NewParticipantService(
	participants repository.ParticipantsRepository,
	contacts repository.ContactsRepository,
	summaries repository.SummariesRepository,
	matcher *matching.Matcher,
	normalizer *normalize.Normalizer,
	logger *slog.Logger,
) *ParticipantService {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = matching.NewMatcher(matching.DefaultConfig())
	}
	if normalizer == nil {
		normalizer = normalize.New("")
	}
	return &ParticipantService{
		participants: participants,
		contacts:     contacts,
		summaries:    summaries,
		matcher:      matcher,
		normalizer:   normalizer,
		logger:       logger,
	}
}

// ImportBatch validates the whole batch before writing anything, matches every attendee
// against one contact snapshot, upserts the participants with their auto-match history
// in a single transaction and recomputes the summary of every meeting touched.
func (s *ParticipantService) ImportBatch(ctx context.Context, id auth.Identity, batch []entity.Attendee, autoMatch bool) (ImportResult, error) {
	result := ImportResult{AutoMatchEnabled: autoMatch}
	if err := requireIdentity(id); err != nil {
		return result, err
	}
	if len(batch) == 0 {
		return result, invalid("participants", "at least one participant is required")
	}
	for i, a := range batch {
		if strings.TrimSpace(a.Email) == "" {
			return result, invalid(fmt.Sprintf("participants[%d].email", i), "email is required")
		}
		if strings.TrimSpace(a.MeetingID) == "" {
			return result, invalid(fmt.Sprintf("participants[%d].meetingId", i), "meeting id is required")
		}
	}

	rows := s.prepare(batch)

	var snap *matching.Snapshot
	if autoMatch {
		emails, domains := matchKeys(rows)
		candidates, err := s.contacts.ListMatchCandidates(ctx, id.OrganizationID, emails, domains)
		if err != nil {
			return result, fmt.Errorf("load contact snapshot: %w", err)
		}
		snap = matching.NewSnapshot(candidates)
	}

	upserts := make([]repository.ParticipantUpsert, 0, len(rows))
	for _, p := range rows {
		if p.EnrichmentStatus == entity.ParticipantUnknown || !autoMatch {
			upserts = append(upserts, repository.ParticipantUpsert{Participant: p})
			continue
		}

		match, err := s.matcher.Match(p.Email, p.DisplayName, snap)
		if err != nil {
			s.logger.DebugContext(ctx, "participant match degraded",
				slog.String("org_id", id.OrganizationID.String()),
				slog.String("meeting_id", p.MeetingID),
				slog.String("error", err.Error()))
			p.EnrichmentStatus = entity.ParticipantUnknown
			upserts = append(upserts, repository.ParticipantUpsert{Participant: p})
			continue
		}
		if match.Matched() {
			source := entity.SourceAuto
			p.ContactID = match.ContactID
			p.AutoMatchConfidence = match.Confidence
			p.EnrichmentSource = &source
			p.EnrichmentStatus = entity.ParticipantMatched
		}
		upserts = append(upserts, repository.ParticipantUpsert{Participant: p, RecordMatch: match.Matched()})
	}

	performedBy := id.UserID
	written, err := s.participants.UpsertBatch(ctx, id.OrganizationID, &performedBy, upserts)
	if err != nil {
		return result, fmt.Errorf("persist participants: %w", err)
	}

	result.Participants = written.Participants
	result.TotalImported = len(written.Participants)
	result.Inserted = written.Inserted
	result.Updated = written.Updated
	result.HistoryRows = written.HistoryRows
	for _, p := range written.Participants {
		if p.ContactID != nil {
			result.MatchedContacts++
		}
	}
	result.UnknownParticipants = result.TotalImported - result.MatchedContacts

	meetings := meetingIDs(written.Participants)
	result.MeetingsProcessed = len(meetings)
	result.Summaries = s.recomputeSummaries(ctx, id, meetings)
	return result, nil
}

// ImportCalendarEvents converts Google Calendar events into an attendee batch and imports it.
func (s *ParticipantService) ImportCalendarEvents(ctx context.Context, id auth.Identity, events []*gcal.Event, autoMatch bool) (CalendarImportResult, error) {
	if err := requireIdentity(id); err != nil {
		return CalendarImportResult{}, err
	}
	converted := calendar.Convert(events)
	out := CalendarImportResult{EventsImported: converted.Events, EventsSkipped: converted.Skipped}
	if len(converted.Attendees) == 0 {
		return out, invalid("events", "no importable attendees in %d events", len(events))
	}

	res, err := s.ImportBatch(ctx, id, converted.Attendees, autoMatch)
	out.ImportResult = res
	return out, err
}

// List returns one page of participants and the organization's status counts.
func (s *ParticipantService) List(ctx context.Context, id auth.Identity, q ListParticipantsQuery) (ParticipantPage, error) {
	if err := requireIdentity(id); err != nil {
		return ParticipantPage{}, err
	}

	status := entity.ParticipantStatus(strings.TrimSpace(q.Status))
	if status != "" && !status.Valid() {
		return ParticipantPage{}, invalid("enrichmentStatus", "unknown status %q", q.Status)
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return ParticipantPage{}, invalid("dateTo", "must not be before dateFrom")
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	filter := repository.ParticipantFilter{
		MeetingID: strings.TrimSpace(q.MeetingID),
		Email:     strings.ToLower(strings.TrimSpace(q.Email)),
		Status:    status,
		ContactID: q.ContactID,
		DateFrom:  q.DateFrom,
		DateTo:    q.DateTo,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	participants, err := s.participants.List(ctx, id.OrganizationID, filter)
	if err != nil {
		return ParticipantPage{}, fmt.Errorf("list participants: %w", err)
	}
	stats, err := s.participants.Stats(ctx, id.OrganizationID, filter)
	if err != nil {
		return ParticipantPage{}, fmt.Errorf("participant stats: %w", err)
	}

	total := stats.Total
	if status != "" {
		total = stats.Count(status)
	}
	return ParticipantPage{
		Participants: participants,
		Stats:        stats,
		Page:         page,
		Limit:        limit,
		Total:        total,
		TotalPages:   int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Link attaches a participant to a contact of the same organization by hand. The link
// carries full confidence and is recorded as a manual contact_match history row.
func (s *ParticipantService) Link(ctx context.Context, id auth.Identity, participantID, contactID uuid.UUID) (*entity.Participant, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if participantID == uuid.Nil {
		return nil, invalid("id", "participant id is required")
	}
	if contactID == uuid.Nil {
		return nil, invalid("contactId", "contact id is required")
	}

	if _, err := s.contacts.FindByID(ctx, id.OrganizationID, contactID); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, fmt.Errorf("%w: contact %s", ErrNotFound, contactID)
		}
		return nil, fmt.Errorf("load contact: %w", err)
	}

	performedBy := id.UserID
	p, err := s.participants.LinkContact(ctx, id.OrganizationID, participantID, contactID, &performedBy)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
		}
		return nil, fmt.Errorf("link participant: %w", err)
	}

	s.logger.InfoContext(ctx, "participant linked",
		slog.String("org_id", id.OrganizationID.String()),
		slog.String("participant_id", participantID.String()),
		slog.String("contact_id", contactID.String()))
	s.recomputeSummaries(ctx, id, []string{p.MeetingID})
	return p, nil
}

// Summaries returns the stored meeting summaries of the organization.
func (s *ParticipantService) Summaries(ctx context.Context, id auth.Identity) ([]entity.MeetingSummary, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.summaries.List(ctx, id.OrganizationID)
}

// prepare applies field defaults and normalizes emails. Attendees whose email cannot be
// normalized are kept, lower-cased, as unknown. Later duplicates of a (meeting, email)
// pair are dropped.
func (s *ParticipantService) prepare(batch []entity.Attendee) []entity.Participant {
	type key struct{ meeting, email string }
	seen := make(map[key]struct{}, len(batch))
	rows := make([]entity.Participant, 0, len(batch))

	for _, a := range batch {
		status := entity.ParticipantPending
		email, err := s.normalizer.Email(a.Email)
		if err != nil {
			email = matching.NormalizeEmail(a.Email)
			status = entity.ParticipantUnknown
		}

		k := key{strings.TrimSpace(a.MeetingID), email}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		p := entity.Participant{
			MeetingID:        k.meeting,
			MeetingTitle:     strings.TrimSpace(a.MeetingTitle),
			MeetingDateTime:  a.MeetingDateTime,
			Email:            email,
			DisplayName:      s.normalizer.Name(a.DisplayName),
			ResponseStatus:   strings.TrimSpace(a.ResponseStatus),
			IsOrganizer:      a.IsOrganizer,
			IsOptional:       a.IsOptional,
			Platform:         strings.TrimSpace(a.Platform),
			EnrichmentStatus: status,
		}
		if p.MeetingTitle == "" {
			p.MeetingTitle = DefaultMeetingTitle
		}
		if p.DisplayName == "" {
			p.DisplayName = normalize.LocalPart(email)
		}
		if p.ResponseStatus == "" {
			p.ResponseStatus = DefaultResponseStatus
		}
		if p.Platform == "" {
			p.Platform = DefaultPlatform
		}
		if p.MeetingDateTime != nil {
			utc := p.MeetingDateTime.UTC()
			p.MeetingDateTime = &utc
		}
		rows = append(rows, p)
	}
	return rows
}

func (s *ParticipantService) recomputeSummaries(ctx context.Context, id auth.Identity, meetings []string) []entity.MeetingSummary {
	summaries := make([]entity.MeetingSummary, 0, len(meetings))
	for _, meetingID := range meetings {
		participants, err := s.participants.ListByMeeting(ctx, id.OrganizationID, meetingID)
		if err == nil {
			summary := Summarize(id.OrganizationID, meetingID, participants, id.EmailDomain())
			if err = s.summaries.Upsert(ctx, &summary); err == nil {
				summaries = append(summaries, summary)
				continue
			}
		}
		s.logger.WarnContext(ctx, "meeting summary not recomputed",
			slog.String("org_id", id.OrganizationID.String()),
			slog.String("meeting_id", meetingID),
			slog.String("error", err.Error()))
	}
	return summaries
}

// Summarize aggregates every persisted participant of one meeting. Known participants are
// linked to a contact; external ones have an email domain other than internalDomain, and
// none are counted external when internalDomain is empty.
func Summarize(orgID uuid.UUID, meetingID string, participants []entity.Participant, internalDomain string) entity.MeetingSummary {
	summary := entity.MeetingSummary{OrganizationID: orgID, MeetingID: meetingID}
	accepted := 0
	for _, p := range participants {
		if summary.MeetingTitle == "" {
			summary.MeetingTitle = p.MeetingTitle
		}
		if summary.MeetingDateTime == nil {
			summary.MeetingDateTime = p.MeetingDateTime
		}
		summary.Total++
		if p.ContactID != nil {
			summary.Known++
		}
		if internalDomain != "" {
			if domain, ok := matching.ExtractDomain(p.Email); ok && !strings.EqualFold(domain, internalDomain) {
				summary.External++
			}
		}
		if p.ResponseStatus == "accepted" {
			accepted++
		}
	}
	summary.Unknown = summary.Total - summary.Known
	if summary.Total > 0 {
		summary.AcceptanceRate = math.Round(float64(accepted)/float64(summary.Total)*10000) / 100
	}
	return summary
}

func matchKeys(rows []entity.Participant) (emails, domains []string) {
	emailSet := make(map[string]struct{}, len(rows))
	domainSet := make(map[string]struct{})
	for _, p := range rows {
		if p.EnrichmentStatus == entity.ParticipantUnknown {
			continue
		}
		emailSet[p.Email] = struct{}{}
		if domain, ok := matching.ExtractDomain(p.Email); ok {
			domainSet[domain] = struct{}{}
		}
	}
	return sortedKeys(emailSet), sortedKeys(domainSet)
}

func meetingIDs(participants []entity.Participant) []string {
	set := make(map[string]struct{})
	for _, p := range participants {
		set[p.MeetingID] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
