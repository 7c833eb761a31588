package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// ParticipantFilter narrows participant listings. Zero values are ignored.
type ParticipantFilter struct {
	MeetingID string
	Email     string
	Status    entity.ParticipantStatus
	ContactID *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// ParticipantStats counts participants by enrichment status.
type ParticipantStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Matched  int `json:"matched"`
	Enriched int `json:"enriched"`
	Unknown  int `json:"unknown"`
}

// Count returns the bucket for status, or zero for an unknown status.
func (s ParticipantStats) Count(status entity.ParticipantStatus) int {
	switch status {
	case entity.ParticipantPending:
		return s.Pending
	case entity.ParticipantMatched:
		return s.Matched
	case entity.ParticipantEnriched:
		return s.Enriched
	case entity.ParticipantUnknown:
		return s.Unknown
	}
	return 0
}

// ParticipantUpsert is one row of an import. RecordMatch writes a contact_match
// history row when the persisted participant ends up linked to the matched contact.
type ParticipantUpsert struct {
	Participant entity.Participant
	RecordMatch bool
}

// UpsertParticipantsResult reports what an import wrote.
type UpsertParticipantsResult struct {
	Participants []entity.Participant
	Inserted     int
	Updated      int
	HistoryRows  int
}

// ParticipantsRepository persists meeting participants.
type ParticipantsRepository interface {
	UpsertBatch(ctx context.Context, orgID uuid.UUID, performedBy *uuid.UUID, rows []ParticipantUpsert) (UpsertParticipantsResult, error)
	List(ctx context.Context, orgID uuid.UUID, filter ParticipantFilter) ([]entity.Participant, error)
	Stats(ctx context.Context, orgID uuid.UUID, filter ParticipantFilter) (ParticipantStats, error)
	ListByMeeting(ctx context.Context, orgID uuid.UUID, meetingID string) ([]entity.Participant, error)
	ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.Participant, error)
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Participant, error)
	MarkEnriched(ctx context.Context, orgID, id, contactID uuid.UUID, source string, confidence float64) error
	LinkContact(ctx context.Context, orgID, id, contactID uuid.UUID, performedBy *uuid.UUID) (*entity.Participant, error)
}

// PGXParticipantsRepository implements ParticipantsRepository with pgx.
type PGXParticipantsRepository struct {
	pool pgxPool
}

// NewPGXParticipantsRepository wires a pgx backed repository.
func NewPGXParticipantsRepository(pool *pgxpool.Pool) *PGXParticipantsRepository {
	return &PGXParticipantsRepository{pool: pool}
}

var participantColumns = []string{
	"id", "organization_id", "meeting_id", "meeting_title", "meeting_date_time", "email",
	"display_name", "response_status", "is_organizer", "is_optional", "platform",
	"contact_id", "enrichment_status", "auto_match_confidence", "enrichment_source",
	"created_at", "updated_at",
}

// A linked participant keeps its contact, status and confidence on re-import.
const upsertParticipantSQL = `
        INSERT INTO meeting_participants (
            organization_id, meeting_id, meeting_title, meeting_date_time, email, display_name,
            response_status, is_organizer, is_optional, platform,
            contact_id, enrichment_status, auto_match_confidence, enrichment_source
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (organization_id, meeting_id, email) DO UPDATE SET
            meeting_title = EXCLUDED.meeting_title,
            meeting_date_time = EXCLUDED.meeting_date_time,
            display_name = EXCLUDED.display_name,
            response_status = EXCLUDED.response_status,
            is_organizer = EXCLUDED.is_organizer,
            is_optional = EXCLUDED.is_optional,
            platform = EXCLUDED.platform,
            contact_id = COALESCE(meeting_participants.contact_id, EXCLUDED.contact_id),
            enrichment_status = CASE WHEN meeting_participants.contact_id IS NOT NULL
                THEN meeting_participants.enrichment_status ELSE EXCLUDED.enrichment_status END,
            auto_match_confidence = CASE WHEN meeting_participants.contact_id IS NOT NULL
                THEN meeting_participants.auto_match_confidence ELSE EXCLUDED.auto_match_confidence END,
            enrichment_source = CASE WHEN meeting_participants.contact_id IS NOT NULL
                THEN meeting_participants.enrichment_source ELSE EXCLUDED.enrichment_source END,
            updated_at = NOW()
        RETURNING id, contact_id, enrichment_status, auto_match_confidence, enrichment_source,
            created_at, updated_at, xmax = 0;
    `

const insertMatchHistorySQL = `
        INSERT INTO enrichment_history (
            organization_id, participant_id, request_email, enrichment_type, enrichment_source,
            status, confidence_score, matched_contact_id, cost_cents, performed_by, completed_at
        ) VALUES ($1, $2, $3, 'contact_match', 'auto', 'success', $4, $5, 0, $6, NOW());
    `

// UpsertBatch writes all rows and their auto-match history in one transaction.
func (r *PGXParticipantsRepository) UpsertBatch(ctx context.Context, orgID uuid.UUID, performedBy *uuid.UUID, rows []ParticipantUpsert) (UpsertParticipantsResult, error) {
	var result UpsertParticipantsResult
	if len(rows) == 0 {
		return result, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start participant upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result.Participants = make([]entity.Participant, 0, len(rows))
	for _, row := range rows {
		p := row.Participant
		p.OrganizationID = orgID

		var (
			status   string
			inserted bool
		)
		err := tx.QueryRow(ctx, upsertParticipantSQL,
			orgID,
			p.MeetingID,
			p.MeetingTitle,
			p.MeetingDateTime,
			p.Email,
			p.DisplayName,
			p.ResponseStatus,
			p.IsOrganizer,
			p.IsOptional,
			p.Platform,
			p.ContactID,
			string(p.EnrichmentStatus),
			p.AutoMatchConfidence,
			p.EnrichmentSource,
		).Scan(&p.ID, &p.ContactID, &status, &p.AutoMatchConfidence, &p.EnrichmentSource, &p.CreatedAt, &p.UpdatedAt, &inserted)
		if err != nil {
			return result, wrapPgError(fmt.Sprintf("upsert participant %q", p.Email), err)
		}
		p.EnrichmentStatus = entity.ParticipantStatus(status)
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}

		matched := row.Participant.ContactID
		if row.RecordMatch && matched != nil && p.ContactID != nil && *p.ContactID == *matched {
			if _, err := tx.Exec(ctx, insertMatchHistorySQL, orgID, p.ID, p.Email, p.AutoMatchConfidence, *matched, performedBy); err != nil {
				return result, wrapPgError("insert auto-match history", err)
			}
			result.HistoryRows++
		}
		result.Participants = append(result.Participants, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit participant upsert tx: %w", err)
	}
	return result, nil
}

func participantWhere(orgID uuid.UUID, filter ParticipantFilter, withStatus bool) sq.And {
	where := sq.And{sq.Eq{"organization_id": orgID}}
	if filter.MeetingID != "" {
		where = append(where, sq.Eq{"meeting_id": filter.MeetingID})
	}
	if filter.Email != "" {
		where = append(where, sq.ILike{"email": "%" + filter.Email + "%"})
	}
	if withStatus && filter.Status != "" {
		where = append(where, sq.Eq{"enrichment_status": string(filter.Status)})
	}
	if filter.ContactID != nil {
		where = append(where, sq.Eq{"contact_id": *filter.ContactID})
	}
	if filter.DateFrom != nil {
		where = append(where, sq.GtOrEq{"meeting_date_time": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		where = append(where, sq.LtOrEq{"meeting_date_time": *filter.DateTo})
	}
	return where
}

// List returns participants matching filter, newest meetings first.
func (r *PGXParticipantsRepository) List(ctx context.Context, orgID uuid.UUID, filter ParticipantFilter) ([]entity.Participant, error) {
	q := psql.Select(participantColumns...).
		From("meeting_participants").
		Where(participantWhere(orgID, filter, true)).
		OrderBy("meeting_date_time DESC NULLS LAST", "created_at DESC", "email ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return r.query(ctx, "list participants", q)
}

// Stats counts participants by status. The status filter is ignored so every bucket is reported.
func (r *PGXParticipantsRepository) Stats(ctx context.Context, orgID uuid.UUID, filter ParticipantFilter) (ParticipantStats, error) {
	var stats ParticipantStats
	query, args, err := psql.Select("enrichment_status", "COUNT(*)").
		From("meeting_participants").
		Where(participantWhere(orgID, filter, false)).
		GroupBy("enrichment_status").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build participant stats query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("participant stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan participant stats: %w", err)
		}
		stats.Total += count
		switch entity.ParticipantStatus(status) {
		case entity.ParticipantPending:
			stats.Pending = count
		case entity.ParticipantMatched:
			stats.Matched = count
		case entity.ParticipantEnriched:
			stats.Enriched = count
		case entity.ParticipantUnknown:
			stats.Unknown = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate participant stats: %w", err)
	}
	return stats, nil
}

// ListByMeeting returns every persisted participant of one meeting.
func (r *PGXParticipantsRepository) ListByMeeting(ctx context.Context, orgID uuid.UUID, meetingID string) ([]entity.Participant, error) {
	q := psql.Select(participantColumns...).
		From("meeting_participants").
		Where(sq.Eq{"organization_id": orgID, "meeting_id": meetingID}).
		OrderBy("email ASC")
	return r.query(ctx, "list meeting participants", q)
}

// ListSince returns participants created at or after since.
func (r *PGXParticipantsRepository) ListSince(ctx context.Context, orgID uuid.UUID, since time.Time) ([]entity.Participant, error) {
	q := psql.Select(participantColumns...).
		From("meeting_participants").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at ASC")
	return r.query(ctx, "list recent participants", q)
}

// FindByID fetches one participant of the organization.
func (r *PGXParticipantsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Participant, error) {
	query, args, err := psql.Select(participantColumns...).
		From("meeting_participants").
		Where(sq.Eq{"organization_id": orgID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build participant query: %w", err)
	}

	p, err := scanParticipant(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return &p, nil
}

// MarkEnriched links the participant to an enriched contact.
func (r *PGXParticipantsRepository) MarkEnriched(ctx context.Context, orgID, id, contactID uuid.UUID, source string, confidence float64) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE meeting_participants
        SET contact_id = $3, enrichment_status = 'enriched', enrichment_source = $4,
            auto_match_confidence = $5, updated_at = NOW()
        WHERE organization_id = $1 AND id = $2
    `, orgID, id, contactID, source, confidence)
	if err != nil {
		return wrapPgError("mark participant enriched", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

var linkParticipantSQL = `
        UPDATE meeting_participants
        SET contact_id = $3, enrichment_status = 'matched', auto_match_confidence = 1.0,
            enrichment_source = 'manual', updated_at = NOW()
        WHERE organization_id = $1 AND id = $2
        RETURNING ` + strings.Join(participantColumns, ", ")

const insertManualLinkHistorySQL = `
        INSERT INTO enrichment_history (
            organization_id, participant_id, request_email, enrichment_type, enrichment_source,
            status, confidence_score, matched_contact_id, cost_cents, performed_by, completed_at
        ) VALUES ($1, $2, $3, 'contact_match', 'manual', 'success', 1.0, $4, 0, $5, NOW());
    `

// LinkContact links the participant to contactID with full confidence and records a
// manual contact_match history row in the same transaction.
func (r *PGXParticipantsRepository) LinkContact(ctx context.Context, orgID, id, contactID uuid.UUID, performedBy *uuid.UUID) (*entity.Participant, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start participant link tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanParticipant(tx.QueryRow(ctx, linkParticipantSQL, orgID, id, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, wrapPgError("link participant", err)
	}

	if _, err := tx.Exec(ctx, insertManualLinkHistorySQL, orgID, p.ID, p.Email, contactID, performedBy); err != nil {
		return nil, wrapPgError("insert manual link history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit participant link tx: %w", err)
	}
	return &p, nil
}

func (r *PGXParticipantsRepository) query(ctx context.Context, op string, q sq.SelectBuilder) ([]entity.Participant, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	participants := make([]entity.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func scanParticipant(row pgx.Row) (entity.Participant, error) {
	var (
		p      entity.Participant
		status string
	)
	err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.MeetingID,
		&p.MeetingTitle,
		&p.MeetingDateTime,
		&p.Email,
		&p.DisplayName,
		&p.ResponseStatus,
		&p.IsOrganizer,
		&p.IsOptional,
		&p.Platform,
		&p.ContactID,
		&status,
		&p.AutoMatchConfidence,
		&p.EnrichmentSource,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.EnrichmentStatus = entity.ParticipantStatus(status)
	return p, err
}
