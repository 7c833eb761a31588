package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// CompaniesHandler exposes company catalogue endpoints.
type CompaniesHandler struct {
	service *service.CompaniesService
}

// NewCompaniesHandler creates a new handler instance.
func NewCompaniesHandler(service *service.CompaniesService) *CompaniesHandler {
	return &CompaniesHandler{service: service}
}

// List handles GET /companies requests.
func (h *CompaniesHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	filter := dto.ListFilter{
		Q:       strings.TrimSpace(c.QueryParam("q")),
		Page:    parseIntDefault(c.QueryParam("page"), 1),
		PerPage: parseIntDefault(c.QueryParam("per_page"), 20),
	}

	companies, err := h.service.ListCompanies(c.Request().Context(), id, filter)
	if err != nil {
		return fail(c, err, "failed to list companies")
	}

	return Success(c, http.StatusOK, "companies retrieved", companies)
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
