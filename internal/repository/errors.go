package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Lookup sentinels.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrContactNotFound     = errors.New("contact not found")
	ErrCompanyNotFound     = errors.New("company not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrHistoryNotFound     = errors.New("enrichment history entry not found")
)

// Constraint sentinels, mapped from Postgres SQLSTATE codes.
var (
	ErrDuplicate       = errors.New("duplicate key")
	ErrForeignKey      = errors.New("referenced row does not exist")
	ErrCheckViolation  = errors.New("check constraint violated")
	ErrHistoryFinished = errors.New("enrichment history entry is no longer pending")
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

// wrapPgError annotates err with op and, for constraint violations, the matching sentinel.
func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrDuplicate, pgErr.ConstraintName)
		case sqlStateForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrForeignKey, pgErr.ConstraintName)
		case sqlStateCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrCheckViolation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
