package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/handler"
	middlewarepkg "github.com/matmuruaga/sales-advisor-app-sub002/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserAdminHandler
	Companies    *handler.CompaniesHandler
	AdminUpload  *handler.AdminUploadHandler
	Participants *handler.ParticipantsHandler
	Contacts     *handler.ContactsHandler
	Webhook      *handler.WebhookHandler
	Metrics      *handler.MetricsHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.POST("/auth/login", handlers.Auth.Login)

	e.GET("/webhooks/enrichment", handlers.Webhook.Health)
	e.POST("/webhooks/enrichment", handlers.Webhook.Receive, middlewarepkg.WebhookSecret(cfg.Enrichment.WebhookSecret))

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	secured.POST("/meeting-participants", handlers.Participants.Import)
	secured.POST("/meeting-participants/calendar", handlers.Participants.ImportCalendar)
	secured.GET("/meeting-participants", handlers.Participants.List)
	secured.GET("/meeting-participants/summaries", handlers.Participants.Summaries)
	secured.PUT("/meeting-participants/:id", handlers.Participants.Link)

	secured.GET("/companies", handlers.Companies.List)

	secured.POST("/contacts/enrich", handlers.Contacts.Enrich, middlewarepkg.EnrichRateLimiter(cfg.RateLimitEnrich))
	secured.GET("/contacts", handlers.Contacts.List)
	secured.GET("/contacts/enrich", handlers.Contacts.Status)
	secured.GET("/contacts/:email", handlers.Contacts.Get)
	secured.DELETE("/contacts/:id", handlers.Contacts.Delete)

	secured.GET("/metrics/participants", handlers.Metrics.Participants)

	admin := secured.Group("/admin", middlewarepkg.RequireRole(auth.RoleAdmin))
	admin.GET("/users", handlers.Users.List)
	admin.POST("/users", handlers.Users.Create)
	admin.POST("/contacts/import-csv", handlers.AdminUpload.UploadCSV)
	admin.POST("/enrichment/reconcile", handlers.AdminUpload.Reconcile)
}
