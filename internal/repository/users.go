package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// ErrEmailDuplicate is returned when a user email is already registered.
var ErrEmailDuplicate = errors.New("email already exists")

// UsersRepository declares operations for operator accounts.
type UsersRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	Create(ctx context.Context, orgID uuid.UUID, email, passwordHash, role string) (*entity.User, error)
	List(ctx context.Context, orgID uuid.UUID) ([]entity.User, error)
	CreateOrganization(ctx context.Context, name string) (uuid.UUID, error)
}

// PGXUsersRepository implements UsersRepository with pgx.
type PGXUsersRepository struct {
	pool pgxPool
}

// NewPGXUsersRepository instantiates a users repository.
func NewPGXUsersRepository(pool *pgxpool.Pool) *PGXUsersRepository {
	return &PGXUsersRepository{pool: pool}
}

const userColumns = `id, organization_id, email, password_hash, role, created_at, updated_at`

// FindByEmail fetches a user by email if present.
func (r *PGXUsersRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row, "query user by email")
}

// FindByID retrieves a user by identifier.
func (r *PGXUsersRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "query user by id")
}

// Create inserts a new user row.
func (r *PGXUsersRepository) Create(ctx context.Context, orgID uuid.UUID, email, passwordHash, role string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO users (organization_id, email, password_hash, role)
        VALUES ($1, lower($2), $3, $4)
        RETURNING `+userColumns, orgID, email, passwordHash, role)

	user, err := scanUser(row, "insert user")
	if err != nil {
		err = wrapPgError("insert user", err)
		if errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrEmailDuplicate, err)
		}
		return nil, err
	}
	return user, nil
}

// List returns the organization's users ordered by creation date (desc).
func (r *PGXUsersRepository) List(ctx context.Context, orgID uuid.UUID) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]entity.User, 0)
	for rows.Next() {
		var user entity.User
		if err := rows.Scan(&user.ID, &user.OrganizationID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CreateOrganization registers a tenant and returns its id.
func (r *PGXUsersRepository) CreateOrganization(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, `INSERT INTO organizations (name) VALUES ($1) RETURNING id`, strings.TrimSpace(name)).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("insert organization: %w", err)
	}
	return id, nil
}

func scanUser(row pgx.Row, op string) (*entity.User, error) {
	var user entity.User
	if err := row.Scan(&user.ID, &user.OrganizationID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}
