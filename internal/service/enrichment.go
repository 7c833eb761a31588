package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/normalize"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/scoring"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/worker"
)

// ReconcileMessage is recorded on pending rows that never received a callback.
const ReconcileMessage = "timed out waiting for enrichment callback"

const (
	statusHistoryLimit    = 10
	defaultPendingAfter   = 24 * time.Hour
	defaultFailureMessage = "enrichment failed"
)

// RequestOutcome distinguishes a dispatched lookup from an idempotent no-op.
type RequestOutcome string

// Request outcomes.
const (
	OutcomeDispatched RequestOutcome = "dispatched"
	OutcomeSkipped    RequestOutcome = "skip_enrichment"
)

// RequestResult is returned by RequestEnrichment.
type RequestResult struct {
	Outcome      RequestOutcome
	EnrichmentID *uuid.UUID
	ContactID    *uuid.UUID
}

// CompletionResult reports what a successful webhook merged.
type CompletionResult struct {
	ContactID          uuid.UUID
	ContactCreated     bool
	ParticipantUpdated bool
	CompanyCreated     bool
	CompanyID          *uuid.UUID
	HistoryUpdated     bool
}

// FailureResult reports whether a failure callback finalized a history row.
type FailureResult struct {
	HistoryUpdated bool
	Error          string
}

// WebhookResult is the outcome of one webhook delivery.
type WebhookResult struct {
	Success    bool
	Completion *CompletionResult
	Failure    *FailureResult
}

// StatusResult holds a single history row or the latest rows of a participant.
type StatusResult struct {
	Entry   *entity.EnrichmentHistoryEntry  `json:"enrichment,omitempty"`
	Entries []entity.EnrichmentHistoryEntry `json:"enrichments,omitempty"`
	Count   int                             `json:"count"`
}

// CoordinatorConfig holds the coordinator tunables.
type CoordinatorConfig struct {
	CallbackURL  string
	PendingAfter time.Duration
}

// EnrichmentCoordinator dispatches lookups and merges their asynchronous results.
type EnrichmentCoordinator struct {
	contacts     repository.ContactsRepository
	companies    repository.CompaniesRepository
	participants repository.ParticipantsRepository
	history      repository.HistoryRepository
	dispatcher   worker.Dispatcher
	normalizer   *normalize.Normalizer
	cfg          CoordinatorConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewEnrichmentCoordinator wires the coordinator.
func NewEnrichmentCoordinator(
	contacts repository.ContactsRepository,
	companies repository.CompaniesRepository,
	participants repository.ParticipantsRepository,
	history repository.HistoryRepository,
	dispatcher worker.Dispatcher,
	normalizer *normalize.Normalizer,
	cfg CoordinatorConfig,
	logger *slog.Logger,
) *EnrichmentCoordinator {
	if cfg.PendingAfter <= 0 {
		cfg.PendingAfter = defaultPendingAfter
	}
	if normalizer == nil {
		normalizer = normalize.New("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichmentCoordinator{
		contacts:     contacts,
		companies:    companies,
		participants: participants,
		history:      history,
		dispatcher:   dispatcher,
		normalizer:   normalizer,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// RequestEnrichment dispatches a lookup for req.Email unless the contact already carries
// insights. A pending history row is written before dispatch and failed if dispatch fails.
func (c *EnrichmentCoordinator) RequestEnrichment(ctx context.Context, id auth.Identity, req dto.EnrichRequest, requestID string) (RequestResult, error) {
	if err := requireIdentity(id); err != nil {
		return RequestResult{}, err
	}

	email, err := c.normalizer.Email(req.Email)
	if err != nil {
		return RequestResult{}, invalid("email", "a valid email is required for enrichment")
	}
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = entity.SourceLinkedIn
	}
	if !entity.ExternalSource(source) {
		return RequestResult{}, invalid("source", "unsupported enrichment source %q", req.Source)
	}
	linkedIn := ""
	if strings.TrimSpace(req.LinkedInURL) != "" {
		var ok bool
		if linkedIn, ok = c.normalizer.SocialURL(normalize.PlatformLinkedIn, req.LinkedInURL); !ok {
			return RequestResult{}, invalid("linkedinUrl", "not a LinkedIn profile URL")
		}
	}

	var participantID *uuid.UUID
	if raw := strings.TrimSpace(req.ParticipantID); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return RequestResult{}, invalid("participantId", "must be a UUID")
		}
		if _, err := c.participants.FindByID(ctx, id.OrganizationID, pid); err != nil {
			if errors.Is(err, repository.ErrParticipantNotFound) {
				return RequestResult{}, fmt.Errorf("%w: participant %s", ErrNotFound, pid)
			}
			return RequestResult{}, fmt.Errorf("load participant: %w", err)
		}
		participantID = &pid
	}

	existing, err := c.contacts.FindByEmail(ctx, id.OrganizationID, email)
	switch {
	case err == nil && existing.Enriched():
		contactID := existing.ID
		return RequestResult{Outcome: OutcomeSkipped, ContactID: &contactID}, nil
	case err != nil && !errors.Is(err, repository.ErrContactNotFound):
		return RequestResult{}, fmt.Errorf("load contact: %w", err)
	}

	performedBy := id.UserID
	entry := &entity.EnrichmentHistoryEntry{
		OrganizationID:   id.OrganizationID,
		ParticipantID:    participantID,
		RequestEmail:     email,
		EnrichmentType:   entity.EnrichmentAPILookup,
		EnrichmentSource: source,
		Status:           entity.EnrichmentPending,
		PerformedBy:      &performedBy,
	}
	if err := c.history.Create(ctx, entry); err != nil {
		return RequestResult{}, fmt.Errorf("record enrichment attempt: %w", err)
	}
	enrichmentID := entry.ID
	result := RequestResult{Outcome: OutcomeDispatched, EnrichmentID: &enrichmentID}

	job := worker.DispatchRequest{
		WebhookURL:          c.cfg.CallbackURL,
		ContactEmail:        email,
		LinkedInURL:         linkedIn,
		Source:              source,
		OrganizationID:      id.OrganizationID.String(),
		UserID:              id.UserID.String(),
		EnrichmentHistoryID: enrichmentID.String(),
		Metadata: worker.DispatchMetadata{
			FullName:       strings.TrimSpace(req.FullName),
			CompanyName:    strings.TrimSpace(req.CompanyName),
			AdditionalData: additionalData(req.AdditionalData),
			Timestamp:      c.now().UTC(),
		},
	}
	if participantID != nil {
		job.ParticipantID = participantID.String()
	}

	if err := c.dispatcher.Dispatch(ctx, job, requestID); err != nil {
		message := err.Error()
		if ferr := c.history.Finish(ctx, id.OrganizationID, enrichmentID, repository.HistoryCompletion{
			Status:       entity.EnrichmentFailed,
			ErrorMessage: &message,
		}); ferr != nil {
			c.logger.WarnContext(ctx, "failed to record dispatch failure",
				slog.String("org_id", id.OrganizationID.String()),
				slog.String("history_id", enrichmentID.String()),
				slog.String("error", ferr.Error()))
		}
		return result, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return result, nil
}

// HandleWebhook routes a delivery to FailEnrichment or CompleteEnrichment.
func (c *EnrichmentCoordinator) HandleWebhook(ctx context.Context, payload dto.EnrichmentWebhook) (WebhookResult, error) {
	if !payload.Success {
		failure, err := c.FailEnrichment(ctx, payload)
		if err != nil {
			return WebhookResult{}, err
		}
		return WebhookResult{Success: false, Failure: &failure}, nil
	}
	completion, err := c.CompleteEnrichment(ctx, payload)
	if err != nil {
		return WebhookResult{}, err
	}
	return WebhookResult{Success: true, Completion: &completion}, nil
}

// CompleteEnrichment merges a successful result. The company, participant and history
// steps are best-effort; only a failed contact upsert is returned as an error.
func (c *EnrichmentCoordinator) CompleteEnrichment(ctx context.Context, payload dto.EnrichmentWebhook) (CompletionResult, error) {
	var result CompletionResult
	data := payload.Data
	if data == nil {
		return result, invalid("data", "no enrichment data provided")
	}
	email, err := c.normalizer.Email(data.Email)
	if err != nil {
		return result, invalid("data.email", "a valid email is required")
	}
	orgID, err := uuid.Parse(strings.TrimSpace(data.OrganizationID))
	if err != nil {
		return result, invalid("data.organizationId", "must be a UUID")
	}
	historyID, err := optionalUUID("data.enrichmentHistoryId", data.EnrichmentHistoryID)
	if err != nil {
		return result, err
	}
	participantID, err := optionalUUID("data.participantId", data.ParticipantID)
	if err != nil {
		return result, err
	}

	source := strings.ToLower(strings.TrimSpace(data.EnrichmentSource))
	if source == "" {
		source = strings.ToLower(strings.TrimSpace(payload.Source))
	}
	confidence := clampUnit(data.EnrichmentConfidence)
	log := c.logger.With(slog.String("org_id", orgID.String()), slog.String("source", source))

	if name := strings.TrimSpace(data.CompanyName); name != "" {
		company := c.companyFromPayload(orgID, data)
		resolved, err := c.companies.Resolve(ctx, company)
		if err != nil {
			log.WarnContext(ctx, "company merge skipped", slog.String("company", name), slog.String("error", err.Error()))
		} else {
			result.CompanyID = &resolved.ID
			result.CompanyCreated = resolved.Created
		}
	}

	contact := c.contactFromPayload(orgID, email, source, confidence, data)
	contact.CompanyID = result.CompanyID
	upserted, err := c.contacts.UpsertEnriched(ctx, contact)
	if err != nil {
		if historyID != nil {
			message := fmt.Sprintf("contact merge failed: %v", err)
			if ferr := c.history.Finish(ctx, orgID, *historyID, repository.HistoryCompletion{
				Status:       entity.EnrichmentFailed,
				ErrorMessage: &message,
				CostCents:    c.cost(source, payload.APICallsCost),
			}); ferr != nil {
				log.WarnContext(ctx, "failed to record merge failure", slog.String("history_id", historyID.String()), slog.String("error", ferr.Error()))
			}
		}
		return result, fmt.Errorf("upsert enriched contact: %w", err)
	}
	result.ContactID = upserted.ID
	result.ContactCreated = upserted.Created

	if participantID != nil {
		if err := c.participants.MarkEnriched(ctx, orgID, *participantID, upserted.ID, source, confidence); err != nil {
			log.WarnContext(ctx, "participant update skipped", slog.String("participant_id", participantID.String()), slog.String("error", err.Error()))
		} else {
			result.ParticipantUpdated = true
		}
	}

	if historyID != nil {
		contactID := upserted.ID
		err := c.history.Finish(ctx, orgID, *historyID, repository.HistoryCompletion{
			Status:           entity.EnrichmentSuccess,
			ConfidenceScore:  &confidence,
			MatchedContactID: &contactID,
			CostCents:        c.cost(source, payload.APICallsCost),
		})
		switch {
		case err == nil:
			result.HistoryUpdated = true
		case errors.Is(err, repository.ErrHistoryFinished):
			log.InfoContext(ctx, "duplicate enrichment completion", slog.String("history_id", historyID.String()))
		default:
			log.WarnContext(ctx, "history update skipped", slog.String("history_id", historyID.String()), slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// FailEnrichment finalizes the history row of a failed lookup. Contacts and participants
// are left untouched.
func (c *EnrichmentCoordinator) FailEnrichment(ctx context.Context, payload dto.EnrichmentWebhook) (FailureResult, error) {
	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = defaultFailureMessage
	}
	result := FailureResult{Error: message}

	data := payload.Data
	if data == nil || strings.TrimSpace(data.EnrichmentHistoryID) == "" {
		return result, invalid("data.enrichmentHistoryId", "required to record a failed enrichment")
	}
	orgID, err := uuid.Parse(strings.TrimSpace(data.OrganizationID))
	if err != nil {
		return result, invalid("data.organizationId", "must be a UUID")
	}
	historyID, err := uuid.Parse(strings.TrimSpace(data.EnrichmentHistoryID))
	if err != nil {
		return result, invalid("data.enrichmentHistoryId", "must be a UUID")
	}

	cost := 0
	if payload.APICallsCost != nil && *payload.APICallsCost > 0 {
		cost = *payload.APICallsCost
	}
	err = c.history.Finish(ctx, orgID, historyID, repository.HistoryCompletion{
		Status:       entity.EnrichmentFailed,
		ErrorMessage: &message,
		CostCents:    cost,
	})
	switch {
	case err == nil:
		result.HistoryUpdated = true
	case errors.Is(err, repository.ErrHistoryFinished):
		c.logger.InfoContext(ctx, "failure callback for finished enrichment", slog.String("history_id", historyID.String()))
	case errors.Is(err, repository.ErrHistoryNotFound):
		return result, fmt.Errorf("%w: enrichment %s", ErrNotFound, historyID)
	default:
		return result, fmt.Errorf("record enrichment failure: %w", err)
	}
	return result, nil
}

// Status returns one history row by id, or the latest rows of a participant.
func (c *EnrichmentCoordinator) Status(ctx context.Context, id auth.Identity, enrichmentID, participantID *uuid.UUID) (StatusResult, error) {
	if err := requireIdentity(id); err != nil {
		return StatusResult{}, err
	}
	switch {
	case enrichmentID != nil:
		entry, err := c.history.FindByID(ctx, id.OrganizationID, *enrichmentID)
		if err != nil {
			if errors.Is(err, repository.ErrHistoryNotFound) {
				return StatusResult{}, fmt.Errorf("%w: enrichment record %s", ErrNotFound, *enrichmentID)
			}
			return StatusResult{}, err
		}
		return StatusResult{Entry: entry, Count: 1}, nil
	case participantID != nil:
		entries, err := c.history.ListByParticipant(ctx, id.OrganizationID, *participantID, statusHistoryLimit)
		if err != nil {
			return StatusResult{}, err
		}
		return StatusResult{Entries: entries, Count: len(entries)}, nil
	}
	return StatusResult{}, invalid("enrichmentId", "enrichmentId or participantId is required")
}

// Reconcile fails every pending row older than olderThan, or the configured interval when
// olderThan is not positive. A nil orgID sweeps all organizations. It returns the number of
// rows finalized.
func (c *EnrichmentCoordinator) Reconcile(ctx context.Context, orgID *uuid.UUID, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = c.cfg.PendingAfter
	}
	cutoff := c.now().Add(-olderThan)
	n, err := c.history.FailStale(ctx, orgID, cutoff, ReconcileMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		attrs := []any{slog.Int64("count", n), slog.Time("cutoff", cutoff)}
		if orgID != nil {
			attrs = append(attrs, slog.String("organization_id", orgID.String()))
		}
		c.logger.InfoContext(ctx, "stale enrichments failed", attrs...)
	}
	return n, nil
}

func (c *EnrichmentCoordinator) companyFromPayload(orgID uuid.UUID, data *dto.EnrichedData) *entity.Company {
	company := &entity.Company{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(data.CompanyName),
		Domain:         normalizeString(strings.ToLower(data.Domain)),
		Industry:       normalizeString(data.CompanyIndustry),
		Size:           normalizeString(data.CompanySize),
		Description:    normalizeString(data.CompanyDescription),
		LogoURL:        normalizeString(data.CompanyLogo),
		Website:        normalizeString(data.CompanyWebsite),
		Technologies:   data.CompanyTechnologies,
	}
	if url, ok := c.normalizer.SocialURL(normalize.PlatformLinkedIn, data.CompanyLinkedIn); ok {
		company.LinkedInURL = &url
	}
	return company
}

func (c *EnrichmentCoordinator) contactFromPayload(orgID uuid.UUID, email, source string, confidence float64, data *dto.EnrichedData) *entity.Contact {
	linkedIn, _ := c.normalizer.SocialURL(normalize.PlatformLinkedIn, data.LinkedInURL)
	twitter, _ := c.normalizer.SocialURL(normalize.PlatformTwitter, data.TwitterURL)
	phone := c.normalizer.Phone(data.Phone)
	summary := strings.TrimSpace(data.ProfileSummary)

	quality := strings.ToLower(strings.TrimSpace(data.DataQuality))
	if quality == "" {
		quality = scoring.DataQuality(scoring.ComputeCompleteness(scoring.ProfileFeatures{
			FullName:       data.FullName,
			RoleTitle:      data.RoleTitle,
			Location:       data.Location,
			Phone:          phone,
			AvatarURL:      data.AvatarURL,
			CompanyName:    data.CompanyName,
			CompanyWebsite: data.CompanyWebsite,
			Skills:         data.Skills,
			Experience:     len(data.Experience),
			ProfileSummary: summary,
			LinkedInURL:    linkedIn,
			TwitterURL:     twitter,
		}).Total)
	}

	insights := &entity.AIInsights{
		Version:                 entity.AIInsightsVersion,
		Source:                  source,
		ProfileSummary:          summary,
		DataQuality:             quality,
		ConfidenceScore:         confidence,
		Skills:                  data.Skills,
		Experience:              data.Experience,
		RecentActivity:          data.RecentActivity,
		InterestsAnalyzed:       len(data.Interests),
		LinkedInProfileAnalyzed: linkedIn != "",
		EnrichedAt:              c.now().UTC(),
	}
	insights.Extra = insightExtras(data)

	contact := &entity.Contact{
		OrganizationID: orgID,
		Email:          email,
		FullName:       c.normalizer.Name(data.FullName),
		RoleTitle:      normalizeString(data.RoleTitle),
		Location:       normalizeString(data.Location),
		Phone:          normalizeString(phone),
		AvatarURL:      normalizeString(data.AvatarURL),
		Status:         entity.DefaultContactStatus,
		Score:          scoring.ConfidenceScore(confidence),
		Interests:      data.Interests,
		AIInsights:     insights,
		SocialProfiles: entity.SocialProfiles{LinkedIn: linkedIn, Twitter: twitter},
		ProfessionalBackground: entity.ProfessionalBackground{
			Skills:         data.Skills,
			Experience:     data.Experience,
			ProfileSummary: summary,
		},
	}
	if contact.FullName == "" {
		contact.FullName = normalize.LocalPart(email)
	}
	if source != "" {
		contact.Source = &source
	}
	return contact
}

// cost is the reported API cost, or the source's list price when none was reported.
func (c *EnrichmentCoordinator) cost(source string, reported *int) int {
	if reported != nil {
		return max(*reported, 0)
	}
	return entity.SourceCostCents[source]
}

func insightExtras(data *dto.EnrichedData) map[string]entity.Raw {
	extra := make(map[string]entity.Raw)
	if len(data.MutualConnections) > 0 {
		if raw, err := json.Marshal(data.MutualConnections); err == nil {
			extra["mutual_connections"] = raw
		}
	}
	if funding := strings.TrimSpace(data.CompanyFunding); funding != "" {
		if raw, err := json.Marshal(funding); err == nil {
			extra["company_funding"] = raw
		}
	}
	if updated := strings.TrimSpace(data.LastUpdated); updated != "" {
		if raw, err := json.Marshal(updated); err == nil {
			extra["provider_last_updated"] = raw
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func additionalData(in *dto.AdditionalData) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string)
	for k, v := range map[string]string{
		"roleTitle":     in.RoleTitle,
		"phone":         in.Phone,
		"location":      in.Location,
		"companyDomain": in.CompanyDomain,
	} {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func optionalUUID(field, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid(field, "must be a UUID")
	}
	return &id, nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
