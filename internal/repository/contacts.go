package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// ContactsRepository persists CRM contacts. Contacts are unique per (organization, lower(email)).
type ContactsRepository interface {
	FindByEmail(ctx context.Context, orgID uuid.UUID, email string) (*entity.Contact, error)
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error)
	ListMatchCandidates(ctx context.Context, orgID uuid.UUID, emails, domains []string) ([]entity.MatchCandidate, error)
	UpsertEnriched(ctx context.Context, contact *entity.Contact) (UpsertContactResult, error)
	BulkUpsert(ctx context.Context, orgID uuid.UUID, records []BulkUpsertContactInput) (BulkUpsertResult, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) (int, error)
	List(ctx context.Context, orgID uuid.UUID, filter ContactFilter) ([]entity.Contact, error)
	Count(ctx context.Context, orgID uuid.UUID, filter ContactFilter) (int, error)
}

// ContactFilter narrows contact listings. Q matches email or full name.
type ContactFilter struct {
	Q         string
	Status    string
	CompanyID *uuid.UUID
	Limit     int
	Offset    int
}

func contactWhere(orgID uuid.UUID, filter ContactFilter) sq.And {
	where := sq.And{sq.Eq{"organization_id": orgID}}
	if term := strings.TrimSpace(filter.Q); term != "" {
		pattern := "%" + term + "%"
		where = append(where, sq.Or{sq.ILike{"email": pattern}, sq.ILike{"full_name": pattern}})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.CompanyID != nil {
		where = append(where, sq.Eq{"company_id": *filter.CompanyID})
	}
	return where
}

// UpsertContactResult identifies the row an enrichment merge wrote.
type UpsertContactResult struct {
	ID      uuid.UUID
	Created bool
}

// BulkUpsertContactInput is one manually imported contact.
type BulkUpsertContactInput struct {
	Email     string
	FullName  string
	RoleTitle *string
	Phone     *string
	Location  *string
	CompanyID *uuid.UUID
}

// BulkUpsertResult summarises the number of rows inserted or updated.
type BulkUpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}

// PGXContactsRepository implements ContactsRepository using pgx.
type PGXContactsRepository struct {
	pool pgxPool
}

// NewPGXContactsRepository wires a pgx backed repository.
func NewPGXContactsRepository(pool *pgxpool.Pool) *PGXContactsRepository {
	return &PGXContactsRepository{pool: pool}
}

var contactColumns = []string{
	"id", "organization_id", "email", "full_name", "role_title", "location", "phone", "avatar_url",
	"status", "score", "source", "interests", "ai_insights", "social_profiles",
	"professional_background", "company_id", "created_at", "updated_at",
}

// FindByEmail looks a contact up case-insensitively.
func (r *PGXContactsRepository) FindByEmail(ctx context.Context, orgID uuid.UUID, email string) (*entity.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.Expr("lower(email) = lower(?)", strings.TrimSpace(email))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}
	return r.findOne(ctx, "find contact by email", query, args)
}

// FindByID fetches a contact of the organization.
func (r *PGXContactsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"organization_id": orgID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}
	return r.findOne(ctx, "find contact by id", query, args)
}

func (r *PGXContactsRepository) findOne(ctx context.Context, op, query string, args []any) (*entity.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// ListMatchCandidates returns contacts whose email is in emails or whose email domain is in domains,
// ordered by id.
func (r *PGXContactsRepository) ListMatchCandidates(ctx context.Context, orgID uuid.UUID, emails, domains []string) ([]entity.MatchCandidate, error) {
	if len(emails) == 0 && len(domains) == 0 {
		return []entity.MatchCandidate{}, nil
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, email, full_name
        FROM contacts
        WHERE organization_id = $1
          AND (lower(email) = ANY($2) OR lower(split_part(email, '@', 2)) = ANY($3))
        ORDER BY id
    `, orgID, stringSliceOrEmpty(emails), stringSliceOrEmpty(domains))
	if err != nil {
		return nil, fmt.Errorf("list match candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]entity.MatchCandidate, 0)
	for rows.Next() {
		var c entity.MatchCandidate
		if err := rows.Scan(&c.ID, &c.Email, &c.FullName); err != nil {
			return nil, fmt.Errorf("scan match candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match candidates: %w", err)
	}
	return candidates, nil
}

// Enrichment merges are a single atomic write keyed on the unique expression index.
// Fields the payload leaves empty keep their stored values; status is never downgraded.
const upsertEnrichedContactSQL = `
        INSERT INTO contacts (
            organization_id, email, full_name, role_title, location, phone, avatar_url,
            status, score, source, interests, ai_insights, social_profiles,
            professional_background, company_id, updated_at
        ) VALUES (
            $1, lower($2), COALESCE(NULLIF($3, ''), split_part($2, '@', 1)), $4, $5, $6, $7,
            $8, $9, $10, $11, $12::jsonb, $13::jsonb, $14::jsonb, $15, NOW()
        )
        ON CONFLICT (organization_id, lower(email)) DO UPDATE SET
            full_name = COALESCE(NULLIF($3, ''), contacts.full_name),
            role_title = COALESCE(EXCLUDED.role_title, contacts.role_title),
            location = COALESCE(EXCLUDED.location, contacts.location),
            phone = COALESCE(EXCLUDED.phone, contacts.phone),
            avatar_url = COALESCE(EXCLUDED.avatar_url, contacts.avatar_url),
            score = EXCLUDED.score,
            source = COALESCE(EXCLUDED.source, contacts.source),
            interests = CASE WHEN cardinality(EXCLUDED.interests) > 0
                THEN EXCLUDED.interests ELSE contacts.interests END,
            ai_insights = EXCLUDED.ai_insights,
            social_profiles = contacts.social_profiles || EXCLUDED.social_profiles,
            professional_background = contacts.professional_background || EXCLUDED.professional_background,
            company_id = COALESCE(EXCLUDED.company_id, contacts.company_id),
            updated_at = NOW()
        RETURNING id, xmax = 0;
    `

// UpsertEnriched inserts or merges an enriched contact in one statement.
func (r *PGXContactsRepository) UpsertEnriched(ctx context.Context, contact *entity.Contact) (UpsertContactResult, error) {
	var result UpsertContactResult
	if contact == nil {
		return result, fmt.Errorf("contact payload is nil")
	}

	var insights any
	if contact.AIInsights != nil {
		raw, err := json.Marshal(contact.AIInsights)
		if err != nil {
			return result, fmt.Errorf("marshal ai insights: %w", err)
		}
		insights = string(raw)
	}
	socials, err := json.Marshal(contact.SocialProfiles)
	if err != nil {
		return result, fmt.Errorf("marshal social profiles: %w", err)
	}
	background, err := json.Marshal(contact.ProfessionalBackground)
	if err != nil {
		return result, fmt.Errorf("marshal professional background: %w", err)
	}

	status := contact.Status
	if status == "" {
		status = entity.DefaultContactStatus
	}

	err = r.pool.QueryRow(ctx, upsertEnrichedContactSQL,
		contact.OrganizationID,
		contact.Email,
		contact.FullName,
		stringOrNil(contact.RoleTitle),
		stringOrNil(contact.Location),
		stringOrNil(contact.Phone),
		stringOrNil(contact.AvatarURL),
		status,
		contact.Score,
		stringOrNil(contact.Source),
		stringSliceOrEmpty(contact.Interests),
		insights,
		string(socials),
		string(background),
		contact.CompanyID,
	).Scan(&result.ID, &result.Created)
	if err != nil {
		return result, wrapPgError("upsert enriched contact", err)
	}
	return result, nil
}

const bulkUpsertContactSQL = `
        INSERT INTO contacts (organization_id, email, full_name, role_title, phone, location, company_id, source, updated_at)
        VALUES ($1, lower($2), $3, $4, $5, $6, $7, 'manual', NOW())
        ON CONFLICT (organization_id, lower(email)) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            role_title = COALESCE(EXCLUDED.role_title, contacts.role_title),
            phone = COALESCE(EXCLUDED.phone, contacts.phone),
            location = COALESCE(EXCLUDED.location, contacts.location),
            company_id = COALESCE(EXCLUDED.company_id, contacts.company_id),
            updated_at = NOW()
        RETURNING xmax = 0;
    `

// BulkUpsert persists a batch of manually imported contacts with idempotent semantics.
func (r *PGXContactsRepository) BulkUpsert(ctx context.Context, orgID uuid.UUID, records []BulkUpsertContactInput) (BulkUpsertResult, error) {
	var result BulkUpsertResult
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start bulk upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, record := range records {
		var inserted bool
		err := tx.QueryRow(ctx, bulkUpsertContactSQL,
			orgID,
			record.Email,
			record.FullName,
			stringOrNil(record.RoleTitle),
			stringOrNil(record.Phone),
			stringOrNil(record.Location),
			record.CompanyID,
		).Scan(&inserted)
		if err != nil {
			return result, wrapPgError(fmt.Sprintf("bulk upsert contact %q", record.Email), err)
		}

		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		result.Total++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit bulk upsert tx: %w", err)
	}
	return result, nil
}

// Delete unlinks the contact's participants (back to pending) and removes the contact,
// atomically. It returns how many participants were reset.
func (r *PGXContactsRepository) Delete(ctx context.Context, orgID, id uuid.UUID) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("start contact delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	reset, err := tx.Exec(ctx, `
        UPDATE meeting_participants
        SET contact_id = NULL, enrichment_status = 'pending', auto_match_confidence = NULL,
            enrichment_source = NULL, updated_at = NOW()
        WHERE organization_id = $1 AND contact_id = $2
    `, orgID, id)
	if err != nil {
		return 0, wrapPgError("reset participants", err)
	}

	cmd, err := tx.Exec(ctx, `DELETE FROM contacts WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return 0, wrapPgError("delete contact", err)
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrContactNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit contact delete tx: %w", err)
	}
	return int(reset.RowsAffected()), nil
}

// List returns the organization's contacts, most recently updated first.
func (r *PGXContactsRepository) List(ctx context.Context, orgID uuid.UUID, filter ContactFilter) ([]entity.Contact, error) {
	q := psql.Select(contactColumns...).
		From("contacts").
		Where(contactWhere(orgID, filter)).
		OrderBy("updated_at DESC", "email ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact list query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]entity.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// Count returns how many contacts match filter, ignoring paging.
func (r *PGXContactsRepository) Count(ctx context.Context, orgID uuid.UUID, filter ContactFilter) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("contacts").
		Where(contactWhere(orgID, filter)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build contact count query: %w", err)
	}
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

func scanContact(row pgx.Row) (*entity.Contact, error) {
	var (
		c          entity.Contact
		insights   []byte
		socials    []byte
		background []byte
	)
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Email,
		&c.FullName,
		&c.RoleTitle,
		&c.Location,
		&c.Phone,
		&c.AvatarURL,
		&c.Status,
		&c.Score,
		&c.Source,
		&c.Interests,
		&insights,
		&socials,
		&background,
		&c.CompanyID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(insights) > 0 && string(insights) != "null" {
		c.AIInsights = &entity.AIInsights{}
		if err := json.Unmarshal(insights, c.AIInsights); err != nil {
			return nil, fmt.Errorf("unmarshal ai insights: %w", err)
		}
	}
	if len(socials) > 0 {
		if err := json.Unmarshal(socials, &c.SocialProfiles); err != nil {
			return nil, fmt.Errorf("unmarshal social profiles: %w", err)
		}
	}
	if len(background) > 0 {
		if err := json.Unmarshal(background, &c.ProfessionalBackground); err != nil {
			return nil, fmt.Errorf("unmarshal professional background: %w", err)
		}
	}
	return &c, nil
}
