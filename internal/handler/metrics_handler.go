package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// MetricsCollector computes participant pipeline metrics.
type MetricsCollector interface {
	Collect(ctx context.Context, id auth.Identity, days int) (service.MetricsReport, error)
}

// MetricsHandler exposes pipeline health metrics.
type MetricsHandler struct {
	metrics MetricsCollector
}

// NewMetricsHandler constructs a MetricsHandler.
func NewMetricsHandler(metrics MetricsCollector) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Participants handles GET /metrics/participants requests.
func (h *MetricsHandler) Participants(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	days := 0
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			return Error(c, http.StatusBadRequest, "days must be an integer")
		}
	}

	report, err := h.metrics.Collect(c.Request().Context(), id, days)
	if err != nil {
		return fail(c, err, "failed to compute metrics")
	}
	return Success(c, http.StatusOK, "metrics computed", report)
}
