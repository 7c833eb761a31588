package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderWebhookSecret carries the shared secret of the enrichment service.
const HeaderWebhookSecret = "X-Webhook-Secret"

// WebhookSecret admits only requests presenting the configured shared secret.
// An empty secret disables the endpoint.
func WebhookSecret(secret string) echo.MiddlewareFunc {
	want := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(want) == 0 {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "webhook secret not configured"})
			}
			got := []byte(c.Request().Header.Get(HeaderWebhookSecret))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid webhook secret"})
			}
			return next(c)
		}
	}
}
