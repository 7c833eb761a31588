package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// ContactImporter ingests contact spreadsheets.
type ContactImporter interface {
	ImportContactsCSV(ctx context.Context, id auth.Identity, r io.Reader) (service.UploadSummary, error)
}

// EnrichmentReconciler fails lookups whose callback never arrived.
type EnrichmentReconciler interface {
	Reconcile(ctx context.Context, orgID *uuid.UUID, olderThan time.Duration) (int64, error)
}

// AdminUploadHandler handles administrative contact ingestion and maintenance.
type AdminUploadHandler struct {
	contacts   ContactImporter
	reconciler EnrichmentReconciler
}

// NewAdminUploadHandler wires a handler backed by the contacts service and the enrichment coordinator.
func NewAdminUploadHandler(contacts ContactImporter, reconciler EnrichmentReconciler) *AdminUploadHandler {
	return &AdminUploadHandler{contacts: contacts, reconciler: reconciler}
}

// UploadCSV handles POST /admin/contacts/import-csv requests.
func (h *AdminUploadHandler) UploadCSV(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.contacts.ImportContactsCSV(c.Request().Context(), id, file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return fail(c, err, "failed to process csv")
	}

	return Success(c, http.StatusOK, "contacts CSV processed", summary)
}

// Reconcile handles POST /admin/enrichment/reconcile requests. Only the caller's
// organization is swept.
func (h *AdminUploadHandler) Reconcile(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	var olderThan time.Duration
	if raw := strings.TrimSpace(c.QueryParam("olderThan")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Error(c, http.StatusBadRequest, "olderThan must be a positive duration")
		}
		olderThan = d
	}

	orgID := id.OrganizationID
	n, err := h.reconciler.Reconcile(c.Request().Context(), &orgID, olderThan)
	if err != nil {
		return fail(c, err, "failed to reconcile enrichments")
	}
	return Success(c, http.StatusOK, "stale enrichments reconciled", map[string]int64{"failed": n})
}
