package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/service"
)

// RoleHandler serves role management and assignment.
type RoleHandler struct {
	svc service.RoleService
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(svc service.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

// RoleRequest is the payload for creating a role.
type RoleRequest struct {
	Name        string   `json:"name" validate:"required"`
	Permissions []string `json:"permissions"`
}

// RoleUpdateRequest carries optional role changes.
type RoleUpdateRequest struct {
	Name        *string   `json:"name"`
	Permissions *[]string `json:"permissions"`
}

// AssignmentRequest names a user and a role.
type AssignmentRequest struct {
	UserID string `json:"userId" validate:"required"`
	RoleID string `json:"roleId" validate:"required"`
}

// Assignment identifies a user-role pair.
type Assignment struct {
	UserID uuid.UUID `json:"userId"`
	RoleID uuid.UUID `json:"roleId"`
}

// AssignmentResponse acknowledges an assignment change.
type AssignmentResponse struct {
	Message    string     `json:"message"`
	Assignment Assignment `json:"assignment"`
}

// RoleListResponse lists roles with their holders.
type RoleListResponse struct {
	Roles []model.Role `json:"roles"`
}

// RoleResponse wraps a single role.
type RoleResponse struct {
	Message string      `json:"message,omitempty"`
	Role    *model.Role `json:"role"`
}

// PermissionListResponse is the permission catalog.
type PermissionListResponse struct {
	Permissions []model.Permission `json:"permissions"`
}

// ListRoles godoc
// @Summary List roles
// @Description Newest first, with user count and assigned users.
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RoleListResponse
// @Router /v1/superadmin/roles [get]
func (h *RoleHandler) ListRoles(c echo.Context) error {
	roles, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return ok(c, RoleListResponse{Roles: roles})
}

// GetRole godoc
// @Summary Get role by id
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Success 200 {object} RoleResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles/{id} [get]
func (h *RoleHandler) GetRole(c echo.Context) error {
	id, err := parseUUIDParam(c, "id", errors.ErrRoleNotFound)
	if err != nil {
		return err
	}
	role, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return ok(c, RoleResponse{Role: role})
}

// CreateRole godoc
// @Summary Create role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role body RoleRequest true "Role payload"
// @Success 201 {object} RoleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles [post]
func (h *RoleHandler) CreateRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return badRequest("Role name is required")
	}

	role, err := h.svc.Create(c.Request().Context(), actor, service.RoleInput{Name: req.Name, Permissions: req.Permissions})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, RoleResponse{Message: "Role created successfully", Role: role})
}

// UpdateRole godoc
// @Summary Update role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Param role body RoleUpdateRequest true "Changes"
// @Success 200 {object} RoleResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseUUIDParam(c, "id", errors.ErrRoleNotFound)
	if err != nil {
		return err
	}
	var req RoleUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return badRequest("Role name is required")
	}

	role, err := h.svc.Update(c.Request().Context(), actor, id, service.RoleUpdateInput{Name: req.Name, Permissions: req.Permissions})
	if err != nil {
		return respondError(err)
	}
	return ok(c, RoleResponse{Message: "Role updated successfully", Role: role})
}

// DeleteRole godoc
// @Summary Delete role
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseUUIDParam(c, "id", errors.ErrRoleNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return respondError(err)
	}
	return ok(c, MessageResponse{Message: "Role deleted successfully"})
}

// AssignRole godoc
// @Summary Assign role to user
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignment body AssignmentRequest true "User and role"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles/assign-role [post]
func (h *RoleHandler) AssignRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	a, err := bindAssignment(c)
	if err != nil {
		return err
	}
	if err := h.svc.Assign(c.Request().Context(), actor, a.UserID, a.RoleID); err != nil {
		return respondError(err)
	}
	return ok(c, AssignmentResponse{Message: "Role assigned successfully", Assignment: a})
}

// RemoveRole godoc
// @Summary Remove role from user
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignment body AssignmentRequest true "User and role"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/roles/assign-role [delete]
func (h *RoleHandler) RemoveRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	a, err := bindAssignment(c)
	if err != nil {
		return err
	}
	if err := h.svc.Unassign(c.Request().Context(), actor, a.UserID, a.RoleID); err != nil {
		return respondError(err)
	}
	return ok(c, AssignmentResponse{Message: "Role removed successfully", Assignment: a})
}

// ListPermissions godoc
// @Summary Permission catalog
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PermissionListResponse
// @Router /v1/superadmin/roles/permissions [get]
func (h *RoleHandler) ListPermissions(c echo.Context) error {
	perms, err := h.svc.Permissions(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if perms == nil {
		perms = []model.Permission{}
	}
	return ok(c, PermissionListResponse{Permissions: perms})
}

func bindAssignment(c echo.Context) (Assignment, error) {
	var req AssignmentRequest
	if err := c.Bind(&req); err != nil {
		return Assignment{}, badRequest("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return Assignment{}, badRequest("User ID and Role ID are required")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return Assignment{}, respondError(errors.ErrUserNotFound)
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return Assignment{}, respondError(errors.ErrRoleNotFound)
	}
	return Assignment{UserID: userID, RoleID: roleID}, nil
}
