package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/middleware"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// EnrichmentRequester starts lookups and reports their progress.
type EnrichmentRequester interface {
	RequestEnrichment(ctx context.Context, id auth.Identity, req dto.EnrichRequest, requestID string) (service.RequestResult, error)
	Status(ctx context.Context, id auth.Identity, enrichmentID, participantID *uuid.UUID) (service.StatusResult, error)
}

// ContactDirectory searches, reads and removes contacts.
type ContactDirectory interface {
	List(ctx context.Context, id auth.Identity, q service.ListContactsQuery) (service.ContactPage, error)
	Get(ctx context.Context, id auth.Identity, email string) (service.ContactDetail, error)
	Delete(ctx context.Context, id auth.Identity, contactID uuid.UUID) (service.DeleteContactResult, error)
}

// ContactsHandler exposes contact lookup, enrichment and removal.
type ContactsHandler struct {
	enrichment EnrichmentRequester
	contacts   ContactDirectory
}

// NewContactsHandler constructs a ContactsHandler.
func NewContactsHandler(enrichment EnrichmentRequester, contacts ContactDirectory) *ContactsHandler {
	return &ContactsHandler{enrichment: enrichment, contacts: contacts}
}

// List handles GET /contacts requests.
func (h *ContactsHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	companyID, err := optionalUUIDParam(c, "companyId")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid companyId")
	}

	page, err := h.contacts.List(c.Request().Context(), id, service.ListContactsQuery{
		Q:         c.QueryParam("q"),
		Status:    c.QueryParam("status"),
		CompanyID: companyID,
		Page:      parseIntDefault(c.QueryParam("page"), 1),
		Limit:     parseIntDefault(c.QueryParam("limit"), 0),
	})
	if err != nil {
		return fail(c, err, "failed to list contacts")
	}
	return Success(c, http.StatusOK, "contacts retrieved", page)
}

// Get handles GET /contacts/:email requests.
func (h *ContactsHandler) Get(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil || strings.TrimSpace(email) == "" {
		return Error(c, http.StatusBadRequest, "invalid email")
	}

	detail, err := h.contacts.Get(c.Request().Context(), id, email)
	if err != nil {
		return fail(c, err, "failed to load contact")
	}
	return Success(c, http.StatusOK, "contact retrieved", detail)
}

// Enrich handles POST /contacts/enrich requests.
func (h *ContactsHandler) Enrich(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	var req dto.EnrichRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.enrichment.RequestEnrichment(c.Request().Context(), id, req, middleware.RequestIDFromContext(c))
	if err != nil {
		return fail(c, err, "enrichment service unavailable")
	}

	resp := dto.EnrichResponse{
		Outcome:        string(result.Outcome),
		SkipEnrichment: result.Outcome == service.OutcomeSkipped,
		EnrichmentID:   uuidString(result.EnrichmentID),
		ContactID:      uuidString(result.ContactID),
	}
	if resp.SkipEnrichment {
		return Success(c, http.StatusOK, "contact already enriched", resp)
	}
	return Success(c, http.StatusAccepted, "enrichment requested", resp)
}

// Status handles GET /contacts/enrich requests.
func (h *ContactsHandler) Status(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	enrichmentID, err := optionalUUIDParam(c, "enrichmentId")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid enrichmentId")
	}
	participantID, err := optionalUUIDParam(c, "participantId")
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid participantId")
	}

	status, err := h.enrichment.Status(c.Request().Context(), id, enrichmentID, participantID)
	if err != nil {
		return fail(c, err, "failed to load enrichment status")
	}
	return Success(c, http.StatusOK, "enrichment status retrieved", status)
}

// Delete handles DELETE /contacts/:id requests.
func (h *ContactsHandler) Delete(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid contact id")
	}

	result, err := h.contacts.Delete(c.Request().Context(), id, contactID)
	if err != nil {
		return fail(c, err, "failed to delete contact")
	}
	return Success(c, http.StatusOK, "contact deleted", result)
}

func optionalUUIDParam(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
