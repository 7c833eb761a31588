package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
)

// JWT validates bearer tokens and stores the caller identity in the request context.
func JWT(manager *authpkg.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header"})
			}

			claims, err := manager.ParseToken(parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			identity, err := claims.Identity()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token is not bound to an organization"})
			}

			c.Set(ContextKeyIdentity, identity)
			c.Set(ContextKeyUserID, identity.UserID.String())
			c.Set(ContextKeyOrgID, identity.OrganizationID.String())
			c.Set(ContextKeyUserRole, identity.Role)

			return next(c)
		}
	}
}
