package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// ParticipantImporter is the subset of the participant service used over HTTP.
type ParticipantImporter interface {
	ImportBatch(ctx context.Context, id auth.Identity, batch []entity.Attendee, autoMatch bool) (service.ImportResult, error)
	ImportCalendarEvents(ctx context.Context, id auth.Identity, events []*gcal.Event, autoMatch bool) (service.CalendarImportResult, error)
	List(ctx context.Context, id auth.Identity, q service.ListParticipantsQuery) (service.ParticipantPage, error)
	Summaries(ctx context.Context, id auth.Identity) ([]entity.MeetingSummary, error)
	Link(ctx context.Context, id auth.Identity, participantID, contactID uuid.UUID) (*entity.Participant, error)
}

// ParticipantsHandler exposes meeting participant ingestion and listing.
type ParticipantsHandler struct {
	participants ParticipantImporter
}

// NewParticipantsHandler constructs a ParticipantsHandler.
func NewParticipantsHandler(participants ParticipantImporter) *ParticipantsHandler {
	return &ParticipantsHandler{participants: participants}
}

// Import handles POST /meeting-participants requests.
func (h *ParticipantsHandler) Import(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	var req dto.ImportParticipantsRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if len(req.Participants) == 0 {
		return Error(c, http.StatusBadRequest, "participants must be a non-empty array")
	}

	result, err := h.participants.ImportBatch(c.Request().Context(), id, req.Participants, req.AutoMatchEnabled())
	if err != nil {
		return fail(c, err, "failed to import participants")
	}
	return Success(c, http.StatusOK, "participants imported", result)
}

// ImportCalendar handles POST /meeting-participants/calendar requests.
func (h *ParticipantsHandler) ImportCalendar(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	var req dto.CalendarImportRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if len(req.Events) == 0 {
		return Error(c, http.StatusBadRequest, "events must be a non-empty array")
	}

	result, err := h.participants.ImportCalendarEvents(c.Request().Context(), id, req.Events, req.AutoMatchEnabled())
	if err != nil {
		return fail(c, err, "failed to import calendar events")
	}
	return Success(c, http.StatusOK, "calendar events imported", result)
}

// List handles GET /meeting-participants requests.
func (h *ParticipantsHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}

	q := service.ListParticipantsQuery{
		MeetingID: c.QueryParam("meetingId"),
		Email:     c.QueryParam("email"),
		Status:    c.QueryParam("enrichmentStatus"),
		Page:      parseIntDefault(c.QueryParam("page"), 1),
		Limit:     parseIntDefault(c.QueryParam("limit"), 0),
	}
	if raw := strings.TrimSpace(c.QueryParam("contactId")); raw != "" {
		contactID, err := uuid.Parse(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid contactId")
		}
		q.ContactID = &contactID
	}
	if q.DateFrom, err = parseDateParam(c.QueryParam("dateFrom")); err != nil {
		return Error(c, http.StatusBadRequest, "invalid dateFrom")
	}
	if q.DateTo, err = parseDateParam(c.QueryParam("dateTo")); err != nil {
		return Error(c, http.StatusBadRequest, "invalid dateTo")
	}

	page, err := h.participants.List(c.Request().Context(), id, q)
	if err != nil {
		return fail(c, err, "failed to list participants")
	}
	return Success(c, http.StatusOK, "participants retrieved", page)
}

// Summaries handles GET /meeting-participants/summaries requests.
func (h *ParticipantsHandler) Summaries(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	summaries, err := h.participants.Summaries(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "failed to list meeting summaries")
	}
	return Success(c, http.StatusOK, "meeting summaries retrieved", summaries)
}

// Link handles PUT /meeting-participants/:id requests.
func (h *ParticipantsHandler) Link(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid participant id")
	}
	var req dto.LinkParticipantRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	contactID, err := uuid.Parse(strings.TrimSpace(req.ContactID))
	if err != nil {
		return Error(c, http.StatusBadRequest, "contactId must be a valid uuid")
	}

	participant, err := h.participants.Link(c.Request().Context(), id, participantID, contactID)
	if err != nil {
		return fail(c, err, "failed to link participant")
	}
	return Success(c, http.StatusOK, "participant linked", participant)
}

// parseDateParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
