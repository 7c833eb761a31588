package middleware

import (
	"github.com/labstack/echo/v4"

	authpkg "github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
)

// Context keys used to store authentication metadata.
const (
	ContextKeyIdentity  = "identity"
	ContextKeyUserID    = "user_id"
	ContextKeyOrgID     = "org_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
)

// IdentityFromContext returns the caller stored by JWT.
func IdentityFromContext(c echo.Context) (authpkg.Identity, bool) {
	id, ok := c.Get(ContextKeyIdentity).(authpkg.Identity)
	return id, ok
}
