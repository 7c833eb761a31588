package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/matching"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service/normalize"
)

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// Unwrap lets handlers treat CSV problems as validation failures.
func (e CSVValidationError) Unwrap() error {
	return ErrValidation
}

// UploadSummary reports how many rows were inserted or updated during import.
type UploadSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
	Skipped  int `json:"skipped"`
}

// DeleteContactResult reports how many participants lost their link.
type DeleteContactResult struct {
	ContactID         uuid.UUID `json:"contact_id"`
	ParticipantsReset int       `json:"participants_reset"`
}

// Contact listing and detail limits.
const (
	defaultContactLimit  = 50
	maxContactLimit      = 200
	contactMeetingsLimit = 10
	contactHistoryLimit  = 5
)

// ListContactsQuery filters and pages contact listings.
type ListContactsQuery struct {
	Q         string
	Status    string
	CompanyID *uuid.UUID
	Page      int
	Limit     int
}

// ContactPage is one page of contacts.
type ContactPage struct {
	Contacts   []entity.Contact `json:"contacts"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// ContactDetail is a contact with the meetings it was seen in and the lookups that resolved to it.
type ContactDetail struct {
	Contact           entity.Contact                  `json:"contact"`
	RecentMeetings    []entity.Participant            `json:"recent_meetings"`
	EnrichmentHistory []entity.EnrichmentHistoryEntry `json:"enrichment_history"`
}

// ContactsService manages manually curated contacts.
type ContactsService struct {
	contacts     repository.ContactsRepository
	companies    repository.CompaniesRepository
	participants repository.ParticipantsRepository
	history      repository.HistoryRepository
	normalizer   *normalize.Normalizer
	logger       *slog.Logger
}

// NewContactsService wires the contacts service.
func NewContactsService(
	contacts repository.ContactsRepository,
	companies repository.CompaniesRepository,
	participants repository.ParticipantsRepository,
	history repository.HistoryRepository,
	normalizer *normalize.Normalizer,
	logger *slog.Logger,
) *ContactsService {
	if normalizer == nil {
		normalizer = normalize.New("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactsService{
		contacts:     contacts,
		companies:    companies,
		participants: participants,
		history:      history,
		normalizer:   normalizer,
		logger:       logger,
	}
}

// List searches the organization's contacts by email or name.
func (s *ContactsService) List(ctx context.Context, id auth.Identity, q ListContactsQuery) (ContactPage, error) {
	if err := requireIdentity(id); err != nil {
		return ContactPage{}, err
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultContactLimit
	}
	if limit > maxContactLimit {
		limit = maxContactLimit
	}

	filter := repository.ContactFilter{
		Q:         strings.TrimSpace(q.Q),
		Status:    strings.TrimSpace(q.Status),
		CompanyID: q.CompanyID,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	contacts, err := s.contacts.List(ctx, id.OrganizationID, filter)
	if err != nil {
		return ContactPage{}, fmt.Errorf("list contacts: %w", err)
	}
	total, err := s.contacts.Count(ctx, id.OrganizationID, filter)
	if err != nil {
		return ContactPage{}, fmt.Errorf("count contacts: %w", err)
	}
	return ContactPage{
		Contacts:   contacts,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Get loads a contact by email together with its recent meetings and enrichment history.
func (s *ContactsService) Get(ctx context.Context, id auth.Identity, email string) (ContactDetail, error) {
	if err := requireIdentity(id); err != nil {
		return ContactDetail{}, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return ContactDetail{}, invalid("email", "email is required")
	}

	contact, err := s.contacts.FindByEmail(ctx, id.OrganizationID, email)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return ContactDetail{}, fmt.Errorf("%w: contact %s", ErrNotFound, email)
		}
		return ContactDetail{}, fmt.Errorf("load contact: %w", err)
	}

	meetings, err := s.participants.List(ctx, id.OrganizationID, repository.ParticipantFilter{
		ContactID: &contact.ID,
		Limit:     contactMeetingsLimit,
	})
	if err != nil {
		return ContactDetail{}, fmt.Errorf("list contact meetings: %w", err)
	}
	history, err := s.history.ListByContact(ctx, id.OrganizationID, contact.ID, contactHistoryLimit)
	if err != nil {
		return ContactDetail{}, fmt.Errorf("list contact history: %w", err)
	}
	return ContactDetail{Contact: *contact, RecentMeetings: meetings, EnrichmentHistory: history}, nil
}

// Delete removes a contact and returns its participants to the unknown state.
func (s *ContactsService) Delete(ctx context.Context, id auth.Identity, contactID uuid.UUID) (DeleteContactResult, error) {
	if err := requireIdentity(id); err != nil {
		return DeleteContactResult{}, err
	}
	reset, err := s.contacts.Delete(ctx, id.OrganizationID, contactID)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return DeleteContactResult{}, fmt.Errorf("%w: contact %s", ErrNotFound, contactID)
		}
		return DeleteContactResult{}, err
	}
	s.logger.InfoContext(ctx, "contact deleted",
		slog.String("org_id", id.OrganizationID.String()),
		slog.String("contact_id", contactID.String()),
		slog.Int("participants_reset", reset))
	return DeleteContactResult{ContactID: contactID, ParticipantsReset: reset}, nil
}

// ImportContactsCSV ingests contacts from a CSV reader. Rows without a valid email are skipped;
// a company column is resolved to an organization company.
func (s *ContactsService) ImportContactsCSV(ctx context.Context, id auth.Identity, r io.Reader) (UploadSummary, error) {
	if err := requireIdentity(id); err != nil {
		return UploadSummary{}, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return UploadSummary{}, CSVValidationError{Message: "csv file is empty"}
		}
		return UploadSummary{}, fmt.Errorf("read csv header: %w", err)
	}

	indexMap, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return UploadSummary{}, valErr
	}

	var (
		records   []repository.BulkUpsertContactInput
		seen      = make(map[string]struct{})
		companies = make(map[string]*uuid.UUID)
		skipped   int
		rowNum    = 1
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return UploadSummary{}, fmt.Errorf("read csv row: %w", err)
		}
		rowNum++

		email, err := s.normalizer.Email(column(row, indexMap, "email"))
		if err != nil {
			skipped++
			continue
		}
		if _, dup := seen[email]; dup {
			skipped++
			continue
		}
		seen[email] = struct{}{}

		fullName := s.normalizer.Name(column(row, indexMap, "full_name"))
		if fullName == "" {
			fullName = normalize.LocalPart(email)
		}

		record := repository.BulkUpsertContactInput{
			Email:     email,
			FullName:  fullName,
			RoleTitle: normalizeString(column(row, indexMap, "role_title")),
			Phone:     normalizeString(s.normalizer.Phone(column(row, indexMap, "phone"))),
			Location:  normalizeString(column(row, indexMap, "location")),
		}

		if name := strings.TrimSpace(column(row, indexMap, "company")); name != "" {
			key := strings.ToLower(name)
			companyID, ok := companies[key]
			if !ok {
				companyID, err = s.resolveCompany(ctx, id.OrganizationID, name, email, rowNum)
				if err != nil {
					return UploadSummary{}, err
				}
				companies[key] = companyID
			}
			record.CompanyID = companyID
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return UploadSummary{Skipped: skipped}, nil
	}

	result, err := s.contacts.BulkUpsert(ctx, id.OrganizationID, records)
	if err != nil {
		return UploadSummary{}, err
	}

	return UploadSummary{
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Total:    result.Total,
		Skipped:  skipped,
	}, nil
}

func (s *ContactsService) resolveCompany(ctx context.Context, orgID uuid.UUID, name, email string, rowNum int) (*uuid.UUID, error) {
	company := &entity.Company{OrganizationID: orgID, Name: name}
	if domain, ok := matching.ExtractDomain(email); ok {
		company.Domain = &domain
	}
	resolved, err := s.companies.Resolve(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("resolve company on row %d: %w", rowNum, err)
	}
	return &resolved.ID, nil
}

var requiredCSVHeaders = []string{"email"}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func column(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func normalizeString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
