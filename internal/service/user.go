package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
)

// UserService encapsulates administrative operations for users.
type UserService struct {
	repo repository.UsersRepository
}

// NewUserService builds a new UserService instance.
func NewUserService(repo repository.UsersRepository) *UserService {
	return &UserService{repo: repo}
}

// ListUsers returns the users of the caller's organization.
func (s *UserService) ListUsers(ctx context.Context, id auth.Identity) ([]dto.UserResponse, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, id.OrganizationID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(&u))
	}
	return responses, nil
}

// CreateUser adds a user to the caller's organization.
func (s *UserService) CreateUser(ctx context.Context, id auth.Identity, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.createInOrg(ctx, id.OrganizationID, req)
}

// Bootstrap creates an organization together with its first admin user.
func (s *UserService) Bootstrap(ctx context.Context, organizationName string, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	organizationName = strings.TrimSpace(organizationName)
	if organizationName == "" {
		return nil, invalid("organization", "organization name is required")
	}
	if strings.TrimSpace(req.Role) == "" {
		req.Role = auth.RoleAdmin
	}
	if err := validateUserRequest(&req); err != nil {
		return nil, err
	}

	orgID, err := s.repo.CreateOrganization(ctx, organizationName)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return s.createInOrg(ctx, orgID, req)
}

func (s *UserService) createInOrg(ctx context.Context, orgID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := validateUserRequest(&req); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, orgID, req.Email, string(hashed), req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func validateUserRequest(req *dto.CreateUserRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)

	if req.Email == "" || req.Password == "" {
		return invalid("", "email and password are required")
	}
	switch req.Role {
	case "":
		req.Role = auth.RoleMember
	case auth.RoleAdmin, auth.RoleMember:
	default:
		return invalid("role", "role must be %q or %q", auth.RoleAdmin, auth.RoleMember)
	}
	return nil
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             u.ID.String(),
		OrganizationID: u.OrganizationID.String(),
		Email:          u.Email,
		Role:           u.Role,
	}
}
