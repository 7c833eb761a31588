package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// SummariesRepository stores per-meeting participant aggregates.
type SummariesRepository interface {
	Upsert(ctx context.Context, summary *entity.MeetingSummary) error
	List(ctx context.Context, orgID uuid.UUID) ([]entity.MeetingSummary, error)
}

// PGXSummariesRepository implements SummariesRepository using pgx.
type PGXSummariesRepository struct {
	pool pgxPool
}

// NewPGXSummariesRepository wires a pgx backed repository.
func NewPGXSummariesRepository(pool *pgxpool.Pool) *PGXSummariesRepository {
	return &PGXSummariesRepository{pool: pool}
}

// Upsert replaces the stored aggregate for the summary's meeting.
func (r *PGXSummariesRepository) Upsert(ctx context.Context, s *entity.MeetingSummary) error {
	if s == nil {
		return fmt.Errorf("meeting summary is nil")
	}
	err := r.pool.QueryRow(ctx, `
        INSERT INTO meeting_summaries (
            organization_id, meeting_id, meeting_title, meeting_date_time, total_participants,
            known_participants, unknown_participants, external_participants, acceptance_rate, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (organization_id, meeting_id) DO UPDATE SET
            meeting_title = EXCLUDED.meeting_title,
            meeting_date_time = EXCLUDED.meeting_date_time,
            total_participants = EXCLUDED.total_participants,
            known_participants = EXCLUDED.known_participants,
            unknown_participants = EXCLUDED.unknown_participants,
            external_participants = EXCLUDED.external_participants,
            acceptance_rate = EXCLUDED.acceptance_rate,
            updated_at = NOW()
        RETURNING updated_at
    `,
		s.OrganizationID,
		s.MeetingID,
		s.MeetingTitle,
		s.MeetingDateTime,
		s.Total,
		s.Known,
		s.Unknown,
		s.External,
		s.AcceptanceRate,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return wrapPgError("upsert meeting summary", err)
	}
	return nil
}

// List returns every meeting summary of the organization, most recent meeting first.
func (r *PGXSummariesRepository) List(ctx context.Context, orgID uuid.UUID) ([]entity.MeetingSummary, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT organization_id, meeting_id, meeting_title, meeting_date_time, total_participants,
            known_participants, unknown_participants, external_participants, acceptance_rate, updated_at
        FROM meeting_summaries
        WHERE organization_id = $1
        ORDER BY meeting_date_time DESC NULLS LAST, meeting_id ASC
    `, orgID)
	if err != nil {
		return nil, fmt.Errorf("list meeting summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]entity.MeetingSummary, 0)
	for rows.Next() {
		var s entity.MeetingSummary
		err := rows.Scan(&s.OrganizationID, &s.MeetingID, &s.MeetingTitle, &s.MeetingDateTime, &s.Total,
			&s.Known, &s.Unknown, &s.External, &s.AcceptanceRate, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan meeting summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meeting summaries: %w", err)
	}
	return summaries, nil
}
