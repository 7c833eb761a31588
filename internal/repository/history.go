package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// HistoryCompletion is the outcome recorded when a pending row finishes.
type HistoryCompletion struct {
	Status           entity.EnrichmentStatus
	ConfidenceScore  *float64
	MatchedContactID *uuid.UUID
	CostCents        int
	ErrorMessage     *string
}

// HistoryRepository stores the append-only enrichment audit trail.
type HistoryRepository interface {
	Create(ctx context.Context, entry *entity.EnrichmentHistoryEntry) error
	Finish(ctx context.Context, orgID, id uuid.UUID, outcome HistoryCompletion) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.EnrichmentHistoryEntry, error)
	ListByParticipant(ctx context.Context, orgID, participantID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error)
	ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.EnrichmentHistoryEntry, error)
	ListByContact(ctx context.Context, orgID, contactID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error)
	FailStale(ctx context.Context, orgID *uuid.UUID, olderThan time.Time, message string) (int64, error)
}

// PGXHistoryRepository implements HistoryRepository using pgx.
type PGXHistoryRepository struct {
	pool pgxPool
}

// NewPGXHistoryRepository wires a pgx backed repository.
func NewPGXHistoryRepository(pool *pgxpool.Pool) *PGXHistoryRepository {
	return &PGXHistoryRepository{pool: pool}
}

var historyColumns = []string{
	"id", "organization_id", "participant_id", "request_email", "enrichment_type", "enrichment_source",
	"status", "confidence_score", "matched_contact_id", "cost_cents", "error_message", "performed_by",
	"performed_at", "completed_at",
}

// Create inserts a new row and fills in its id and performed_at.
func (r *PGXHistoryRepository) Create(ctx context.Context, entry *entity.EnrichmentHistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is nil")
	}
	status := entry.Status
	if status == "" {
		status = entity.EnrichmentPending
	}

	err := r.pool.QueryRow(ctx, `
        INSERT INTO enrichment_history (
            organization_id, participant_id, request_email, enrichment_type, enrichment_source,
            status, confidence_score, matched_contact_id, cost_cents, error_message, performed_by
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, performed_at
    `,
		entry.OrganizationID,
		entry.ParticipantID,
		entry.RequestEmail,
		string(entry.EnrichmentType),
		entry.EnrichmentSource,
		string(status),
		entry.ConfidenceScore,
		entry.MatchedContactID,
		entry.CostCents,
		entry.ErrorMessage,
		entry.PerformedBy,
	).Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return wrapPgError("insert enrichment history", err)
	}
	entry.Status = status
	return nil
}

// Finish moves a pending row to its final status. Rows that already left pending are never
// rewritten; ErrHistoryFinished reports that case and ErrHistoryNotFound a missing row.
func (r *PGXHistoryRepository) Finish(ctx context.Context, orgID, id uuid.UUID, outcome HistoryCompletion) error {
	if outcome.Status != entity.EnrichmentSuccess && outcome.Status != entity.EnrichmentFailed {
		return fmt.Errorf("invalid final status %q", outcome.Status)
	}

	cmd, err := r.pool.Exec(ctx, `
        UPDATE enrichment_history
        SET status = $3, confidence_score = $4, matched_contact_id = $5, cost_cents = $6,
            error_message = $7, completed_at = NOW()
        WHERE organization_id = $1 AND id = $2 AND status = 'pending'
    `, orgID, id, string(outcome.Status), outcome.ConfidenceScore, outcome.MatchedContactID, outcome.CostCents, outcome.ErrorMessage)
	if err != nil {
		return wrapPgError("finish enrichment history", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.FindByID(ctx, orgID, id); err != nil {
		return err
	}
	return ErrHistoryFinished
}

// FindByID fetches one row of the organization.
func (r *PGXHistoryRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.EnrichmentHistoryEntry, error) {
	query, args, err := psql.Select(historyColumns...).
		From("enrichment_history").
		Where(sq.Eq{"organization_id": orgID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	entry, err := scanHistory(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("find enrichment history: %w", err)
	}
	return &entry, nil
}

// ListByParticipant returns the newest rows for a participant.
func (r *PGXHistoryRepository) ListByParticipant(ctx context.Context, orgID, participantID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error) {
	q := psql.Select(historyColumns...).
		From("enrichment_history").
		Where(sq.Eq{"organization_id": orgID, "participant_id": participantID}).
		OrderBy("performed_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, "list participant history", q)
}

// ListByContact returns the newest rows that resolved to contactID.
func (r *PGXHistoryRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID, limit int) ([]entity.EnrichmentHistoryEntry, error) {
	q := psql.Select(historyColumns...).
		From("enrichment_history").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.Eq{"matched_contact_id": contactID}).
		OrderBy("performed_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, "list contact history", q)
}

// ListSince returns rows performed at or after since.
func (r *PGXHistoryRepository) ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.EnrichmentHistoryEntry, error) {
	q := psql.Select(historyColumns...).
		From("enrichment_history").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"performed_at": since}).
		OrderBy("performed_at ASC")
	return r.list(ctx, "list recent history", q)
}

// FailStale marks pending rows performed before olderThan as failed. A nil orgID sweeps every organization.
func (r *PGXHistoryRepository) FailStale(ctx context.Context, orgID *uuid.UUID, olderThan time.Time, message string) (int64, error) {
	q := psql.Update("enrichment_history").
		Set("status", string(entity.EnrichmentFailed)).
		Set("error_message", message).
		Set("completed_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": string(entity.EnrichmentPending)}).
		Where(sq.Lt{"performed_at": olderThan})
	if orgID != nil {
		q = q.Where(sq.Eq{"organization_id": *orgID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build fail stale query: %w", err)
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("fail stale enrichment history: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *PGXHistoryRepository) list(ctx context.Context, op string, q sq.SelectBuilder) ([]entity.EnrichmentHistoryEntry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]entity.EnrichmentHistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrichment history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrichment history: %w", err)
	}
	return entries, nil
}

func scanHistory(row pgx.Row) (entity.EnrichmentHistoryEntry, error) {
	var (
		e      entity.EnrichmentHistoryEntry
		typ    string
		status string
	)
	err := row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.ParticipantID,
		&e.RequestEmail,
		&typ,
		&e.EnrichmentSource,
		&status,
		&e.ConfidenceScore,
		&e.MatchedContactID,
		&e.CostCents,
		&e.ErrorMessage,
		&e.PerformedBy,
		&e.PerformedAt,
		&e.CompletedAt,
	)
	e.EnrichmentType = entity.EnrichmentType(typ)
	e.Status = entity.EnrichmentStatus(status)
	return e, err
}
