package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/middleware"
)

// APIResponse describes the standard envelope returned by the API. RequestID echoes
// the X-Request-ID of the call so clients can correlate dispatches and webhooks.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func envelope(c echo.Context, status int, outcome, message string, data any) error {
	return c.JSON(status, APIResponse{
		Status:    outcome,
		Message:   message,
		RequestID: middleware.RequestIDFromContext(c),
		Data:      data,
	})
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return envelope(c, status, "success", message, data)
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return envelope(c, status, "error", message, nil)
}
