package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

// UserAdminHandler exposes administrative user management endpoints.
type UserAdminHandler struct {
	users *service.UserService
}

// NewUserAdminHandler constructs a handler instance.
func NewUserAdminHandler(users *service.UserService) *UserAdminHandler {
	return &UserAdminHandler{users: users}
}

// List returns the users of the caller's organization.
func (h *UserAdminHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	records, err := h.users.ListUsers(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "failed to list users")
	}
	return Success(c, http.StatusOK, "users retrieved", records)
}

// Create provisions a new user in the caller's organization.
func (h *UserAdminHandler) Create(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return fail(c, err, "")
	}
	var req dto.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.CreateUser(c.Request().Context(), id, req)
	if err != nil {
		if statusFor(err) == http.StatusConflict {
			return Error(c, http.StatusConflict, "email already exists")
		}
		return fail(c, err, "failed to create user")
	}

	return Success(c, http.StatusCreated, "user created", user)
}
