package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/middleware"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

var errMissingIdentity = errors.New("missing identity")

func identityFrom(c echo.Context) (auth.Identity, error) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		return auth.Identity{}, errMissingIdentity
	}
	return id, nil
}

// statusFor maps the service error taxonomy to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrDependency):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err using the shared envelope. Client errors expose the error text;
// server and upstream errors expose fallback only.
func fail(c echo.Context, err error, fallback string) error {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(c.Request().Context(), fallback,
			slog.String("request_id", middleware.RequestIDFromContext(c)),
			slog.String("error", err.Error()))
		return Error(c, status, fallback)
	case http.StatusBadGateway:
		return Error(c, status, fallback)
	}
	return Error(c, status, err.Error())
}
