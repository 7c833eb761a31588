package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// CompaniesRepository describes persistence operations for companies.
type CompaniesRepository interface {
	Resolve(ctx context.Context, company *entity.Company) (ResolveCompanyResult, error)
	List(ctx context.Context, orgID uuid.UUID, filter CompanyFilter) ([]entity.Company, error)
}

// CompanyFilter narrows company listings.
type CompanyFilter struct {
	Q      string
	Limit  int
	Offset int
}

// ResolveCompanyResult identifies the company an enrichment refers to.
type ResolveCompanyResult struct {
	ID      uuid.UUID
	Created bool
}

// PGXCompaniesRepository implements CompaniesRepository using pgx.
type PGXCompaniesRepository struct {
	pool pgxPool
}

// NewPGXCompaniesRepository wires a pgx backed repository.
func NewPGXCompaniesRepository(pool *pgxpool.Pool) *PGXCompaniesRepository {
	return &PGXCompaniesRepository{pool: pool}
}

var companyColumns = []string{
	"id", "organization_id", "name", "domain", "industry", "size", "description",
	"logo_url", "website", "linkedin_url", "technologies", "created_at", "updated_at",
}

const findCompanySQL = `
        SELECT id FROM companies
        WHERE organization_id = $1
          AND (lower(name) = lower($2) OR ($3::text IS NOT NULL AND lower(domain) = lower($3::text)))
        ORDER BY (lower(name) = lower($2)) DESC, created_at ASC
        LIMIT 1
    `

const updateCompanySQL = `
        UPDATE companies SET
            domain = COALESCE($2, domain),
            industry = COALESCE($3, industry),
            size = COALESCE($4, size),
            description = COALESCE($5, description),
            logo_url = COALESCE($6, logo_url),
            website = COALESCE($7, website),
            linkedin_url = COALESCE($8, linkedin_url),
            technologies = CASE WHEN cardinality($9::text[]) > 0 THEN $9::text[] ELSE technologies END,
            updated_at = NOW()
        WHERE id = $1
    `

const insertCompanySQL = `
        INSERT INTO companies (
            organization_id, name, domain, industry, size, description, logo_url, website,
            linkedin_url, technologies, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (organization_id, lower(name)) DO UPDATE SET updated_at = NOW()
        RETURNING id, xmax = 0;
    `

// Resolve finds the company by name or domain within the organization, updating it with
// the non-empty fields of company, or inserts it when nothing matches.
func (r *PGXCompaniesRepository) Resolve(ctx context.Context, company *entity.Company) (ResolveCompanyResult, error) {
	var result ResolveCompanyResult
	if company == nil || strings.TrimSpace(company.Name) == "" {
		return result, fmt.Errorf("company name is required")
	}

	err := r.pool.QueryRow(ctx, findCompanySQL, company.OrganizationID, company.Name, stringOrNil(company.Domain)).Scan(&result.ID)
	switch {
	case err == nil:
		_, err = r.pool.Exec(ctx, updateCompanySQL,
			result.ID,
			stringOrNil(company.Domain),
			stringOrNil(company.Industry),
			stringOrNil(company.Size),
			stringOrNil(company.Description),
			stringOrNil(company.LogoURL),
			stringOrNil(company.Website),
			stringOrNil(company.LinkedInURL),
			stringSliceOrEmpty(company.Technologies),
		)
		if err != nil {
			return result, wrapPgError("update company", err)
		}
		return result, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return result, fmt.Errorf("find company: %w", err)
	}

	err = r.pool.QueryRow(ctx, insertCompanySQL,
		company.OrganizationID,
		strings.TrimSpace(company.Name),
		stringOrNil(company.Domain),
		stringOrNil(company.Industry),
		stringOrNil(company.Size),
		stringOrNil(company.Description),
		stringOrNil(company.LogoURL),
		stringOrNil(company.Website),
		stringOrNil(company.LinkedInURL),
		stringSliceOrEmpty(company.Technologies),
	).Scan(&result.ID, &result.Created)
	if err != nil {
		return result, wrapPgError("insert company", err)
	}
	return result, nil
}

// List returns the organization's companies ordered by name.
func (r *PGXCompaniesRepository) List(ctx context.Context, orgID uuid.UUID, filter CompanyFilter) ([]entity.Company, error) {
	q := psql.Select(companyColumns...).
		From("companies").
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("name ASC")
	if term := strings.TrimSpace(filter.Q); term != "" {
		pattern := "%" + term + "%"
		q = q.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"domain": pattern}})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build company query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]entity.Company, 0)
	for rows.Next() {
		var c entity.Company
		err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.Name,
			&c.Domain,
			&c.Industry,
			&c.Size,
			&c.Description,
			&c.LogoURL,
			&c.Website,
			&c.LinkedInURL,
			&c.Technologies,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}
