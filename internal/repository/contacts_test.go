package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

func contactRow(id uuid.UUID, email string, insights []byte) []any {
	now := time.Now()
	return []any{
		id, testOrgID, email, "Ana Lopez", (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		"warm", 92, (*string)(nil), []string{"saas"}, insights,
		[]byte(`{"linkedin":"https://www.linkedin.com/in/ana"}`), []byte(`{}`), (*uuid.UUID)(nil), now, now,
	}
}

func TestPGXContactsRepository_FindByEmail(t *testing.T) {
	id := uuid.New()

	t.Run("enriched contact", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXContactsRepository{pool: mock}
		mock.ExpectQuery(`SELECT .+ FROM contacts WHERE .+lower`).
			WithArgs(testOrgID, "ana@acme.com").
			WillReturnRows(pgxmock.NewRows(contactColumns).
				AddRow(contactRow(id, "ana@acme.com", []byte(`{"version":1,"enrichment_source":"linkedin","confidence_score":0.92,"custom":true}`))...))

		c, err := repo.FindByEmail(context.Background(), testOrgID, " ana@acme.com ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !c.Enriched() || c.AIInsights.Source != "linkedin" {
			t.Fatalf("expected decoded insights, got %+v", c.AIInsights)
		}
		if _, ok := c.AIInsights.Extra["custom"]; !ok {
			t.Fatalf("expected unknown insight keys to be preserved")
		}
		if c.SocialProfiles.LinkedIn != "https://www.linkedin.com/in/ana" {
			t.Fatalf("unexpected social profiles: %+v", c.SocialProfiles)
		}
		expectationsMet(t, mock)
	})

	t.Run("not enriched", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXContactsRepository{pool: mock}
		mock.ExpectQuery(`SELECT .+ FROM contacts`).
			WithArgs(testOrgID, "ana@acme.com").
			WillReturnRows(pgxmock.NewRows(contactColumns).AddRow(contactRow(id, "ana@acme.com", nil)...))

		c, err := repo.FindByEmail(context.Background(), testOrgID, "ana@acme.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Enriched() {
			t.Fatalf("expected contact without insights")
		}
		expectationsMet(t, mock)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXContactsRepository{pool: mock}
		mock.ExpectQuery(`SELECT .+ FROM contacts`).
			WithArgs(testOrgID, "nobody@acme.com").
			WillReturnError(pgx.ErrNoRows)

		if _, err := repo.FindByEmail(context.Background(), testOrgID, "nobody@acme.com"); !errors.Is(err, ErrContactNotFound) {
			t.Fatalf("expected ErrContactNotFound, got %v", err)
		}
		expectationsMet(t, mock)
	})
}

func TestPGXContactsRepository_ListMatchCandidates(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT id, email, full_name\s+FROM contacts`).
		WithArgs(testOrgID, []string{"ana@acme.com"}, []string{"acme.com"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name"}).
			AddRow(a, "ana@acme.com", "Ana Lopez").
			AddRow(b, "maria@acme.com", "Maria Gonzalez"))

	candidates, err := repo.ListMatchCandidates(context.Background(), testOrgID, []string{"ana@acme.com"}, []string{"acme.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 || candidates[1].FullName != "Maria Gonzalez" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
	expectationsMet(t, mock)
}

func TestPGXContactsRepository_ListMatchCandidates_NoKeys(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	candidates, err := repo.ListMatchCandidates(context.Background(), testOrgID, nil, nil)
	if err != nil || len(candidates) != 0 {
		t.Fatalf("expected empty result without a query, got %v %v", candidates, err)
	}
	expectationsMet(t, mock)
}

func TestPGXContactsRepository_UpsertEnriched(t *testing.T) {
	id := uuid.New()
	source := entity.SourceLinkedIn

	tests := []struct {
		name    string
		created bool
	}{
		{name: "insert", created: true},
		{name: "merge", created: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := &PGXContactsRepository{pool: mock}
			mock.ExpectQuery(`INSERT INTO contacts .+ ON CONFLICT \(organization_id, lower\(email\)\) DO UPDATE`).
				WithArgs(anyArgs(15)...).
				WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(id, tt.created))

			result, err := repo.UpsertEnriched(context.Background(), &entity.Contact{
				OrganizationID: testOrgID,
				Email:          "x@y.com",
				Score:          92,
				Source:         &source,
				AIInsights:     &entity.AIInsights{Version: 1, Source: source, ConfidenceScore: 0.92},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ID != id || result.Created != tt.created {
				t.Fatalf("unexpected result: %+v", result)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestPGXContactsRepository_UpsertEnriched_Errors(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	if _, err := repo.UpsertEnriched(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil contact")
	}

	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs(anyArgs(15)...).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "contacts_company_id_fkey"})

	_, err := repo.UpsertEnriched(context.Background(), &entity.Contact{OrganizationID: testOrgID, Email: "x@y.com"})
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPGXContactsRepository_BulkUpsert(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs(anyArgs(7)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs(anyArgs(7)...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	result, err := repo.BulkUpsert(context.Background(), testOrgID, []BulkUpsertContactInput{
		{Email: "a@acme.com", FullName: "A"},
		{Email: "b@acme.com", FullName: "B"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != (BulkUpsertResult{Inserted: 1, Updated: 1, Total: 2}) {
		t.Fatalf("unexpected result: %+v", result)
	}
	expectationsMet(t, mock)
}

func TestPGXContactsRepository_Delete(t *testing.T) {
	id := uuid.New()

	t.Run("resets participants then deletes", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXContactsRepository{pool: mock}
		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectExec(`UPDATE meeting_participants\s+SET contact_id = NULL, enrichment_status = 'pending'`).
			WithArgs(testOrgID, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))
		mock.ExpectExec(`DELETE FROM contacts`).
			WithArgs(testOrgID, id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		reset, err := repo.Delete(context.Background(), testOrgID, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reset != 3 {
			t.Fatalf("expected 3 participants reset, got %d", reset)
		}
		expectationsMet(t, mock)
	})

	t.Run("missing contact rolls back", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXContactsRepository{pool: mock}
		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectExec(`UPDATE meeting_participants`).
			WithArgs(testOrgID, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectExec(`DELETE FROM contacts`).
			WithArgs(testOrgID, id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		if _, err := repo.Delete(context.Background(), testOrgID, id); !errors.Is(err, ErrContactNotFound) {
			t.Fatalf("expected ErrContactNotFound, got %v", err)
		}
		expectationsMet(t, mock)
	})
}

func TestPGXContactsRepository_List(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	company := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE \(organization_id = \$1 AND \(email ILIKE \$2 OR full_name ILIKE \$3\) AND status = \$4 AND company_id = \$5\) ORDER BY updated_at DESC, email ASC LIMIT 20 OFFSET 40`).
		WithArgs(testOrgID, "%ana%", "%ana%", "hot", company).
		WillReturnRows(pgxmock.NewRows(contactColumns).
			AddRow(contactRow(uuid.New(), "ana@acme.com", nil)...).
			AddRow(contactRow(uuid.New(), "ana.b@acme.com", nil)...))

	contacts, err := repo.List(context.Background(), testOrgID, ContactFilter{Q: " ana ", Status: "hot", CompanyID: &company, Limit: 20, Offset: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 2 || contacts[1].Email != "ana.b@acme.com" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
	expectationsMet(t, mock)
}

func TestPGXContactsRepository_Count(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXContactsRepository{pool: mock}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts WHERE \(organization_id = \$1 AND \(email ILIKE \$2 OR full_name ILIKE \$3\)\)`).
		WithArgs(testOrgID, "%acme%", "%acme%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background(), testOrgID, ContactFilter{Q: "acme", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
	expectationsMet(t, mock)
}
