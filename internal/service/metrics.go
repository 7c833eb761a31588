package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/metrics"
)

const maxMetricsWindowDays = 365

// MetricsReport is the metrics payload together with the alerts it raised.
type MetricsReport struct {
	Metrics metrics.ParticipantMetrics `json:"metrics"`
	Alerts  []metrics.Alert            `json:"alerts"`
}

// MetricsService aggregates pipeline activity for one organization.
type MetricsService struct {
	participants repository.ParticipantsRepository
	history      repository.HistoryRepository
	summaries    repository.SummariesRepository
	thresholds   metrics.Thresholds
	defaultDays  int
	now          func() time.Time
}

// NewMetricsService wires the metrics service. defaultDays applies when a caller passes none.
func NewMetricsService(
	participants repository.ParticipantsRepository,
	history repository.HistoryRepository,
	summaries repository.SummariesRepository,
	thresholds metrics.Thresholds,
	defaultDays int,
) *MetricsService {
	if defaultDays <= 0 {
		defaultDays = metrics.DefaultWindowDays
	}
	return &MetricsService{
		participants: participants,
		history:      history,
		summaries:    summaries,
		thresholds:   thresholds,
		defaultDays:  defaultDays,
		now:          time.Now,
	}
}

// Collect loads the trailing window concurrently and computes metrics and alerts.
func (s *MetricsService) Collect(ctx context.Context, id auth.Identity, days int) (MetricsReport, error) {
	if err := requireIdentity(id); err != nil {
		return MetricsReport{}, err
	}
	if days < 0 || days > maxMetricsWindowDays {
		return MetricsReport{}, invalid("days", "must be between 1 and %d", maxMetricsWindowDays)
	}
	if days == 0 {
		days = s.defaultDays
	}

	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var (
		participants []entity.Participant
		history      []entity.EnrichmentHistoryEntry
		meetings     []entity.MeetingSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if participants, err = s.participants.ListSince(gctx, id.OrganizationID, since); err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if history, err = s.history.ListSince(gctx, id.OrganizationID, since); err != nil {
			return fmt.Errorf("load enrichment history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if meetings, err = s.summaries.List(gctx, id.OrganizationID); err != nil {
			return fmt.Errorf("load meeting summaries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MetricsReport{}, err
	}

	m := metrics.Compute(metrics.Snapshot{
		Participants: participants,
		History:      history,
		Meetings:     meetings,
	}, now, days)

	return MetricsReport{Metrics: m, Alerts: metrics.CheckAlerts(m, s.thresholds)}, nil
}
