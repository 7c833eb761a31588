package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

func TestPGXCompaniesRepository_Resolve(t *testing.T) {
	id := uuid.New()
	domain := "acme.com"
	company := &entity.Company{OrganizationID: testOrgID, Name: "Acme", Domain: &domain, Technologies: []string{"go"}}

	t.Run("updates match", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXCompaniesRepository{pool: mock}
		mock.ExpectQuery(`SELECT id FROM companies`).
			WithArgs(testOrgID, "Acme", "acme.com").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
		mock.ExpectExec(`UPDATE companies SET`).
			WithArgs(anyArgs(9)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		result, err := repo.Resolve(context.Background(), company)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ID != id || result.Created {
			t.Fatalf("unexpected result: %+v", result)
		}
		expectationsMet(t, mock)
	})

	t.Run("inserts on miss", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXCompaniesRepository{pool: mock}
		mock.ExpectQuery(`SELECT id FROM companies`).
			WithArgs(testOrgID, "Acme", "acme.com").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO companies`).
			WithArgs(anyArgs(10)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(id, true))

		result, err := repo.Resolve(context.Background(), company)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Created {
			t.Fatalf("expected company to be created")
		}
		expectationsMet(t, mock)
	})

	t.Run("requires a name", func(t *testing.T) {
		mock := newMockPool(t)
		repo := &PGXCompaniesRepository{pool: mock}
		if _, err := repo.Resolve(context.Background(), &entity.Company{OrganizationID: testOrgID}); err == nil {
			t.Fatalf("expected error")
		}
		expectationsMet(t, mock)
	})
}

func TestPGXCompaniesRepository_List(t *testing.T) {
	mock := newMockPool(t)
	repo := &PGXCompaniesRepository{pool: mock}

	now := time.Now()
	domain := "acme.com"
	mock.ExpectQuery(`SELECT .+ FROM companies WHERE .+ ORDER BY name ASC LIMIT 20`).
		WithArgs(testOrgID, "%acme%", "%acme%").
		WillReturnRows(pgxmock.NewRows(companyColumns).
			AddRow(uuid.New(), testOrgID, "Acme", &domain, (*string)(nil), (*string)(nil), (*string)(nil),
				(*string)(nil), (*string)(nil), (*string)(nil), []string{"go"}, now, now))

	companies, err := repo.List(context.Background(), testOrgID, CompanyFilter{Q: "acme", Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || *companies[0].Domain != "acme.com" {
		t.Fatalf("unexpected companies: %+v", companies)
	}
	expectationsMet(t, mock)
}
