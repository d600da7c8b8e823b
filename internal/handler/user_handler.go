package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
	"superadmin/internal/service"
)

// UserHandler bundles the user management endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUserRequest is the payload of a new user.
type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles"`
}

// UpdateUserRequest carries optional changes. Roles replace the full set when present.
type UpdateUserRequest struct {
	Name     *string   `json:"name"`
	Email    *string   `json:"email"`
	Password *string   `json:"password"`
	Roles    *[]string `json:"roles"`
	IsActive *bool     `json:"isActive"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Users      []model.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

// UserMutationResponse acknowledges a create or update.
type UserMutationResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Name or email substring"
// @Param role query string false "Role name"
// @Param sortBy query string false "createdAt|name|email|lastLogin|updatedAt"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} UserListResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /v1/superadmin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	filter := repository.UserFilter{
		Page:   repository.Page{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 10)}.Normalize(10),
		Sort:   repository.Sort{By: c.QueryParam("sortBy"), Order: c.QueryParam("sortOrder")},
		Search: c.QueryParam("search"),
		Role:   c.QueryParam("role"),
	}
	users, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return ok(c, UserListResponse{
		Users:      users,
		Pagination: newPagination(filter.Page.Page, filter.Page.Limit, total),
	})
}

// GetUser godoc
// @Summary Get user by id
// @Description Includes the ten most recent audit entries written by the user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseUUIDParam(c, "id", errors.ErrUserNotFound)
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return ok(c, UserResponse{User: user})
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User payload"
// @Success 201 {object} UserMutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest("Name, email, and password are required")
	}

	user, err := h.svc.Create(c.Request().Context(), actor, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, UserMutationResponse{Message: "User created successfully", User: user})
}

// UpdateUser godoc
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param user body UpdateUserRequest true "Changes"
// @Success 200 {object} UserMutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseUUIDParam(c, "id", errors.ErrUserNotFound)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Email != nil && *req.Email == "" {
		return badRequest("Email cannot be empty")
	}

	user, err := h.svc.Update(c.Request().Context(), actor, id, service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
		Roles:    req.Roles,
	})
	if err != nil {
		return respondError(err)
	}
	return ok(c, UserMutationResponse{Message: "User updated successfully", User: user})
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseUUIDParam(c, "id", errors.ErrUserNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return respondError(err)
	}
	return ok(c, MessageResponse{Message: "User deleted successfully"})
}
