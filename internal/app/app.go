package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/handler"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/router"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/matching"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/metrics"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/normalize"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/worker"
)

// Services holds every service built on top of one connection pool.
type Services struct {
	JWT          *auth.JWTManager
	Auth         *service.AuthService
	Users        *service.UserService
	Companies    *service.CompaniesService
	Contacts     *service.ContactsService
	Participants *service.ParticipantService
	Enrichment   *service.EnrichmentCoordinator
	Metrics      *service.MetricsService
}

// NewServices wires repositories, the enrichment client and the services.
func NewServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*Services, error) {
	usersRepo := repository.NewPGXUsersRepository(pool)
	companiesRepo := repository.NewPGXCompaniesRepository(pool)
	contactsRepo := repository.NewPGXContactsRepository(pool)
	participantsRepo := repository.NewPGXParticipantsRepository(pool)
	historyRepo := repository.NewPGXHistoryRepository(pool)
	summariesRepo := repository.NewPGXSummariesRepository(pool)

	dispatcher, err := worker.NewClient(ctx, cfg.Enrichment)
	if err != nil {
		return nil, fmt.Errorf("enrichment client: %w", err)
	}

	normalizer := normalize.New(cfg.Enrichment.PhoneRegion)
	matcher := matching.NewMatcher(matching.Config{
		FuzzyThreshold: cfg.Match.FuzzyThreshold,
		FuzzyWeight:    cfg.Match.FuzzyWeight,
	})
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	return &Services{
		JWT:          jwtManager,
		Auth:         service.NewAuthService(usersRepo, jwtManager),
		Users:        service.NewUserService(usersRepo),
		Companies:    service.NewCompaniesService(companiesRepo),
		Contacts:     service.NewContactsService(contactsRepo, companiesRepo, participantsRepo, historyRepo, normalizer, logger),
		Participants: service.NewParticipantService(participantsRepo, contactsRepo, summariesRepo, matcher, normalizer, logger),
		Enrichment: service.NewEnrichmentCoordinator(
			contactsRepo, companiesRepo, participantsRepo, historyRepo, dispatcher, normalizer,
			service.CoordinatorConfig{CallbackURL: cfg.Enrichment.CallbackURL, PendingAfter: cfg.Enrichment.PendingAfter},
			logger,
		),
		Metrics: service.NewMetricsService(participantsRepo, historyRepo, summariesRepo, alertThresholds(cfg.Alerts), cfg.MetricsDefaultDays),
	}, nil
}

func alertThresholds(a config.AlertConfig) metrics.Thresholds {
	return metrics.Thresholds{
		MaxErrorRate:         a.MaxErrorRate,
		MinMatchRate:         a.MinMatchRate,
		MaxCostPerEnrichment: a.MaxAvgCost,
		MaxLowConfidenceRate: a.MaxLowConfidenceRate,
		MaxDailyCostCents:    a.MaxDailyCost,
	}
}

// Handlers builds the HTTP handlers for s.
func (s *Services) Handlers() router.Handlers {
	return router.Handlers{
		Auth:         handler.NewAuthHandler(s.Auth),
		Users:        handler.NewUserAdminHandler(s.Users),
		Companies:    handler.NewCompaniesHandler(s.Companies),
		AdminUpload:  handler.NewAdminUploadHandler(s.Contacts, s.Enrichment),
		Participants: handler.NewParticipantsHandler(s.Participants),
		Contacts:     handler.NewContactsHandler(s.Enrichment, s.Contacts),
		Webhook:      handler.NewWebhookHandler(s.Enrichment),
		Metrics:      handler.NewMetricsHandler(s.Metrics),
	}
}
