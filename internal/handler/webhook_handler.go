package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// WebhookProcessor merges enrichment results.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload dto.EnrichmentWebhook) (service.WebhookResult, error)
}

// WebhookHandler receives asynchronous enrichment results.
type WebhookHandler struct {
	processor WebhookProcessor
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Receive handles POST /webhooks/enrichment requests. Results that reference unknown or
// finalized history rows are acknowledged so the sender does not retry them.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var payload dto.EnrichmentWebhook
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.processor.HandleWebhook(c.Request().Context(), payload)
	if err != nil {
		return fail(c, err, "failed to process enrichment result")
	}

	resp := dto.WebhookResponse{Success: result.Success}
	switch {
	case result.Completion != nil:
		done := result.Completion
		resp.ContactID = uuidString(&done.ContactID)
		resp.ParticipantUpdated = done.ParticipantUpdated
		resp.CompanyCreated = done.CompanyCreated
		resp.CompanyID = uuidString(done.CompanyID)
		resp.HistoryUpdated = done.HistoryUpdated
	case result.Failure != nil:
		resp.HistoryUpdated = result.Failure.HistoryUpdated
		resp.Error = result.Failure.Error
	}
	return c.JSON(http.StatusOK, resp)
}

// Health handles GET /webhooks/enrichment requests.
func (h *WebhookHandler) Health(c echo.Context) error {
	return Success(c, http.StatusOK, "enrichment webhook ready", map[string]any{"status": "ok"})
}
