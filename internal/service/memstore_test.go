package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/matching"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/worker"
)

// memDB is an in-memory datastore. Every method takes the lock for its whole body so
// contact upserts are atomic like the ON CONFLICT statement they stand in for.
type memDB struct {
	mu           sync.Mutex
	contacts     map[uuid.UUID]*entity.Contact
	companies    map[uuid.UUID]*entity.Company
	participants map[uuid.UUID]*entity.Participant
	history      map[uuid.UUID]*entity.EnrichmentHistoryEntry
	summaries    map[string]entity.MeetingSummary
	now          func() time.Time

	listCandidatesCalls int
	upsertErr           error
}

func newMemDB() *memDB {
	return &memDB{
		contacts:     make(map[uuid.UUID]*entity.Contact),
		companies:    make(map[uuid.UUID]*entity.Company),
		participants: make(map[uuid.UUID]*entity.Participant),
		history:      make(map[uuid.UUID]*entity.EnrichmentHistoryEntry),
		summaries:    make(map[string]entity.MeetingSummary),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (db *memDB) addContact(orgID uuid.UUID, email, fullName string) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.contacts[id] = &entity.Contact{ID: id, OrganizationID: orgID, Email: email, FullName: fullName, Status: entity.DefaultContactStatus}
	return id
}

func (db *memDB) addParticipant(p entity.Participant) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.EnrichmentStatus == "" {
		p.EnrichmentStatus = entity.ParticipantPending
	}
	p.CreatedAt = db.now()
	p.UpdatedAt = p.CreatedAt
	db.participants[p.ID] = &p
	return p.ID
}

func (db *memDB) historyRows() []entity.EnrichmentHistoryEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]entity.EnrichmentHistoryEntry, 0, len(db.history))
	for _, h := range db.history {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PerformedAt.Before(out[j].PerformedAt) })
	return out
}

func (db *memDB) contactCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.contacts)
}

func (db *memDB) participant(id uuid.UUID) entity.Participant {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.participants[id]
}

type memContacts struct{ db *memDB }

func (r memContacts) FindByEmail(ctx context.Context, orgID uuid.UUID, email string) (*entity.Contact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c := r.db.contactByEmail(orgID, email); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrContactNotFound
}

func (r memContacts) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.contacts[id]; ok && c.OrganizationID == orgID {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrContactNotFound
}

func (r memContacts) ListMatchCandidates(ctx context.Context, orgID uuid.UUID, emails, domains []string) ([]entity.MatchCandidate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.listCandidatesCalls++
	var out []entity.MatchCandidate
	for _, c := range r.db.contacts {
		if c.OrganizationID != orgID {
			continue
		}
		email := strings.ToLower(c.Email)
		domain, _ := matching.ExtractDomain(email)
		if slices.Contains(emails, email) || slices.Contains(domains, domain) {
			out = append(out, entity.MatchCandidate{ID: c.ID, Email: c.Email, FullName: c.FullName})
		}
	}
	return out, nil
}

func (r memContacts) UpsertEnriched(ctx context.Context, contact *entity.Contact) (repository.UpsertContactResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.upsertErr != nil {
		return repository.UpsertContactResult{}, r.db.upsertErr
	}
	if existing := r.db.contactByEmail(contact.OrganizationID, contact.Email); existing != nil {
		id, created := existing.ID, existing.CreatedAt
		*existing = *contact
		existing.ID, existing.CreatedAt, existing.UpdatedAt = id, created, r.db.now()
		return repository.UpsertContactResult{ID: id}, nil
	}
	c := *contact
	c.ID = uuid.New()
	c.CreatedAt = r.db.now()
	c.UpdatedAt = c.CreatedAt
	r.db.contacts[c.ID] = &c
	return repository.UpsertContactResult{ID: c.ID, Created: true}, nil
}

func (r memContacts) BulkUpsert(ctx context.Context, orgID uuid.UUID, records []repository.BulkUpsertContactInput) (repository.BulkUpsertResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var res repository.BulkUpsertResult
	for _, rec := range records {
		if existing := r.db.contactByEmail(orgID, rec.Email); existing != nil {
			existing.FullName = rec.FullName
			existing.RoleTitle, existing.Phone, existing.Location = rec.RoleTitle, rec.Phone, rec.Location
			existing.CompanyID = rec.CompanyID
			res.Updated++
		} else {
			id := uuid.New()
			r.db.contacts[id] = &entity.Contact{
				ID: id, OrganizationID: orgID, Email: rec.Email, FullName: rec.FullName,
				RoleTitle: rec.RoleTitle, Phone: rec.Phone, Location: rec.Location,
				CompanyID: rec.CompanyID, Status: entity.DefaultContactStatus,
			}
			res.Inserted++
		}
		res.Total++
	}
	return res, nil
}

func (r memContacts) Delete(ctx context.Context, orgID, id uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.contacts[id]
	if !ok || c.OrganizationID != orgID {
		return 0, repository.ErrContactNotFound
	}
	reset := 0
	for _, p := range r.db.participants {
		if p.OrganizationID == orgID && p.ContactID != nil && *p.ContactID == id {
			p.ContactID, p.AutoMatchConfidence, p.EnrichmentSource = nil, nil, nil
			p.EnrichmentStatus = entity.ParticipantPending
			reset++
		}
	}
	delete(r.db.contacts, id)
	return reset, nil
}

func (r memContacts) List(ctx context.Context, orgID uuid.UUID, filter repository.ContactFilter) ([]entity.Contact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.db.filterContacts(orgID, filter)
	if filter.Offset >= len(out) {
		return []entity.Contact{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memContacts) Count(ctx context.Context, orgID uuid.UUID, filter repository.ContactFilter) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.filterContacts(orgID, filter)), nil
}

func (db *memDB) filterContacts(orgID uuid.UUID, filter repository.ContactFilter) []entity.Contact {
	term := strings.ToLower(strings.TrimSpace(filter.Q))
	out := make([]entity.Contact, 0)
	for _, c := range db.contacts {
		if c.OrganizationID != orgID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Email), term) && !strings.Contains(strings.ToLower(c.FullName), term) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.CompanyID != nil && (c.CompanyID == nil || *c.CompanyID != *filter.CompanyID) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (db *memDB) contactByEmail(orgID uuid.UUID, email string) *entity.Contact {
	for _, c := range db.contacts {
		if c.OrganizationID == orgID && strings.EqualFold(c.Email, strings.TrimSpace(email)) {
			return c
		}
	}
	return nil
}

type memCompanies struct {
	db  *memDB
	err error
}

func (r memCompanies) Resolve(ctx context.Context, company *entity.Company) (repository.ResolveCompanyResult, error) {
	if r.err != nil {
		return repository.ResolveCompanyResult{}, r.err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.companies {
		if c.OrganizationID == company.OrganizationID && strings.EqualFold(c.Name, company.Name) {
			return repository.ResolveCompanyResult{ID: c.ID}, nil
		}
	}
	c := *company
	c.ID = uuid.New()
	r.db.companies[c.ID] = &c
	return repository.ResolveCompanyResult{ID: c.ID, Created: true}, nil
}

func (r memCompanies) List(ctx context.Context, orgID uuid.UUID, filter repository.CompanyFilter) ([]entity.Company, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.Company
	for _, c := range r.db.companies {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type memParticipants struct{ db *memDB }

func (r memParticipants) UpsertBatch(ctx context.Context, orgID uuid.UUID, performedBy *uuid.UUID, rows []repository.ParticipantUpsert) (repository.UpsertParticipantsResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var res repository.UpsertParticipantsResult
	now := r.db.now()
	for _, row := range rows {
		in := row.Participant
		var stored *entity.Participant
		for _, p := range r.db.participants {
			if p.OrganizationID == orgID && p.MeetingID == in.MeetingID && p.Email == in.Email {
				stored = p
				break
			}
		}
		if stored == nil {
			in.ID = uuid.New()
			in.OrganizationID = orgID
			in.CreatedAt, in.UpdatedAt = now, now
			stored = &in
			r.db.participants[in.ID] = stored
			res.Inserted++
		} else {
			stored.MeetingTitle, stored.MeetingDateTime = in.MeetingTitle, in.MeetingDateTime
			stored.DisplayName, stored.ResponseStatus = in.DisplayName, in.ResponseStatus
			stored.IsOrganizer, stored.IsOptional, stored.Platform = in.IsOrganizer, in.IsOptional, in.Platform
			if !stored.EnrichmentStatus.Linked() {
				stored.ContactID, stored.AutoMatchConfidence = in.ContactID, in.AutoMatchConfidence
				stored.EnrichmentSource, stored.EnrichmentStatus = in.EnrichmentSource, in.EnrichmentStatus
			}
			stored.UpdatedAt = now
			res.Updated++
		}
		if row.RecordMatch && stored.ContactID != nil && in.ContactID != nil && *stored.ContactID == *in.ContactID {
			pid := stored.ID
			contactID := *stored.ContactID
			r.db.history[uuid.New()] = &entity.EnrichmentHistoryEntry{
				OrganizationID:   orgID,
				ParticipantID:    &pid,
				RequestEmail:     stored.Email,
				EnrichmentType:   entity.EnrichmentContactMatch,
				EnrichmentSource: entity.SourceAuto,
				Status:           entity.EnrichmentSuccess,
				ConfidenceScore:  stored.AutoMatchConfidence,
				MatchedContactID: &contactID,
				PerformedBy:      performedBy,
				PerformedAt:      now,
			}
			res.HistoryRows++
		}
		res.Participants = append(res.Participants, *stored)
	}
	return res, nil
}

func (r memParticipants) List(ctx context.Context, orgID uuid.UUID, filter repository.ParticipantFilter) ([]entity.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.db.filterParticipants(orgID, filter)
	if filter.Offset >= len(out) {
		return []entity.Participant{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memParticipants) Stats(ctx context.Context, orgID uuid.UUID, filter repository.ParticipantFilter) (repository.ParticipantStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var stats repository.ParticipantStats
	filter.Status = ""
	for _, p := range r.db.filterParticipants(orgID, filter) {
		stats.Total++
		switch p.EnrichmentStatus {
		case entity.ParticipantPending:
			stats.Pending++
		case entity.ParticipantMatched:
			stats.Matched++
		case entity.ParticipantEnriched:
			stats.Enriched++
		case entity.ParticipantUnknown:
			stats.Unknown++
		}
	}
	return stats, nil
}

func (r memParticipants) ListByMeeting(ctx context.Context, orgID uuid.UUID, meetingID string) ([]entity.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.filterParticipants(orgID, repository.ParticipantFilter{MeetingID: meetingID}), nil
}

func (r memParticipants) ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.filterParticipants(orgID, repository.ParticipantFilter{}), nil
}

func (r memParticipants) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.participants[id]; ok && p.OrganizationID == orgID {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrParticipantNotFound
}

func (r memParticipants) MarkEnriched(ctx context.Context, orgID, id, contactID uuid.UUID, source string, confidence float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[id]
	if !ok || p.OrganizationID != orgID {
		return repository.ErrParticipantNotFound
	}
	p.ContactID = &contactID
	p.EnrichmentStatus = entity.ParticipantEnriched
	p.AutoMatchConfidence = &confidence
	p.EnrichmentSource = &source
	return nil
}

func (r memParticipants) LinkContact(ctx context.Context, orgID, id, contactID uuid.UUID, performedBy *uuid.UUID) (*entity.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[id]
	if !ok || p.OrganizationID != orgID {
		return nil, repository.ErrParticipantNotFound
	}
	full := 1.0
	source := entity.SourceManual
	now := r.db.now()
	p.ContactID = &contactID
	p.EnrichmentStatus = entity.ParticipantMatched
	p.AutoMatchConfidence = &full
	p.EnrichmentSource = &source
	p.UpdatedAt = now

	pid := p.ID
	matched := contactID
	r.db.history[uuid.New()] = &entity.EnrichmentHistoryEntry{
		OrganizationID:   orgID,
		ParticipantID:    &pid,
		RequestEmail:     p.Email,
		EnrichmentType:   entity.EnrichmentContactMatch,
		EnrichmentSource: entity.SourceManual,
		Status:           entity.EnrichmentSuccess,
		ConfidenceScore:  &full,
		MatchedContactID: &matched,
		PerformedBy:      performedBy,
		PerformedAt:      now,
		CompletedAt:      &now,
	}
	cp := *p
	return &cp, nil
}

func (db *memDB) filterParticipants(orgID uuid.UUID, filter repository.ParticipantFilter) []entity.Participant {
	out := make([]entity.Participant, 0)
	for _, p := range db.participants {
		if p.OrganizationID != orgID {
			continue
		}
		if filter.MeetingID != "" && p.MeetingID != filter.MeetingID {
			continue
		}
		if filter.Status != "" && p.EnrichmentStatus != filter.Status {
			continue
		}
		if filter.Email != "" && !strings.Contains(p.Email, filter.Email) {
			continue
		}
		if filter.ContactID != nil && (p.ContactID == nil || *p.ContactID != *filter.ContactID) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

type memHistory struct{ db *memDB }

func (r memHistory) Create(ctx context.Context, entry *entity.EnrichmentHistoryEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = uuid.New()
	entry.PerformedAt = r.db.now()
	cp := *entry
	r.db.history[entry.ID] = &cp
	return nil
}

func (r memHistory) Finish(ctx context.Context, orgID, id uuid.UUID, outcome repository.HistoryCompletion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	h, ok := r.db.history[id]
	if !ok || h.OrganizationID != orgID {
		return repository.ErrHistoryNotFound
	}
	if h.Status != entity.EnrichmentPending {
		return repository.ErrHistoryFinished
	}
	now := r.db.now()
	h.Status = outcome.Status
	h.ConfidenceScore = outcome.ConfidenceScore
	h.MatchedContactID = outcome.MatchedContactID
	h.CostCents = outcome.CostCents
	h.ErrorMessage = outcome.ErrorMessage
	h.CompletedAt = &now
	return nil
}

func (r memHistory) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.EnrichmentHistoryEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if h, ok := r.db.history[id]; ok && h.OrganizationID == orgID {
		cp := *h
		return &cp, nil
	}
	return nil, repository.ErrHistoryNotFound
}

func (r memHistory) ListByParticipant(ctx context.Context, orgID, participantID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error) {
	var out []entity.EnrichmentHistoryEntry
	for _, h := range r.db.historyRows() {
		if h.OrganizationID == orgID && h.ParticipantID != nil && *h.ParticipantID == participantID {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memHistory) ListByContact(ctx context.Context, orgID, contactID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error) {
	rows := r.db.historyRows()
	out := make([]entity.EnrichmentHistoryEntry, 0)
	for i := len(rows) - 1; i >= 0; i-- {
		h := rows[i]
		if h.OrganizationID == orgID && h.MatchedContactID != nil && *h.MatchedContactID == contactID {
			out = append(out, h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memHistory) ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.EnrichmentHistoryEntry, error) {
	var out []entity.EnrichmentHistoryEntry
	for _, h := range r.db.historyRows() {
		if h.OrganizationID == orgID && !h.PerformedAt.Before(since) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memHistory) FailStale(ctx context.Context, orgID *uuid.UUID, olderThan time.Time, message string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, h := range r.db.history {
		if orgID != nil && h.OrganizationID != *orgID {
			continue
		}
		if h.Status == entity.EnrichmentPending && h.PerformedAt.Before(olderThan) {
			msg := message
			h.Status = entity.EnrichmentFailed
			h.ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

type memSummaries struct {
	db  *memDB
	err error
}

func (r memSummaries) Upsert(ctx context.Context, summary *entity.MeetingSummary) error {
	if r.err != nil {
		return r.err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.summaries[summary.OrganizationID.String()+"/"+summary.MeetingID] = *summary
	return nil
}

func (r memSummaries) List(ctx context.Context, orgID uuid.UUID) ([]entity.MeetingSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.MeetingSummary
	for _, s := range r.db.summaries {
		if s.OrganizationID == orgID {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	requests []worker.DispatchRequest
	err      error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req worker.DispatchRequest, requestID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return d.err
}

func (d *recordingDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

var errBoom = errors.New("boom")
