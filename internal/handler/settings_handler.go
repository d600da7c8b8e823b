package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"superadmin/internal/model"
	"superadmin/internal/service"
)

// SettingsHandler serves key/value settings and feature toggles.
type SettingsHandler struct {
	svc service.SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// CreateSettingRequest is a new key/value pair. Value may be any JSON.
type CreateSettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value" swaggertype:"object"`
}

// PutSettingRequest replaces the value of a key.
type PutSettingRequest struct {
	Value json.RawMessage `json:"value" swaggertype:"object"`
}

// FeatureTogglesRequest replaces the feature toggle object.
type FeatureTogglesRequest struct {
	FeatureToggles json.RawMessage `json:"featureToggles" swaggertype:"object"`
}

// FeatureTogglesResponse carries the toggle object.
type FeatureTogglesResponse struct {
	Message        string                 `json:"message,omitempty"`
	FeatureToggles map[string]interface{} `json:"featureToggles"`
}

// SettingListResponse lists all settings.
type SettingListResponse struct {
	Settings []model.Setting `json:"settings"`
}

// SettingResponse wraps one setting.
type SettingResponse struct {
	Message string         `json:"message,omitempty"`
	Setting *model.Setting `json:"setting"`
}

// ListSettings godoc
// @Summary List settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SettingListResponse
// @Router /v1/superadmin/settings [get]
func (h *SettingsHandler) ListSettings(c echo.Context) error {
	settings, err := h.svc.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if settings == nil {
		settings = []model.Setting{}
	}
	return ok(c, SettingListResponse{Settings: settings})
}

// GetSetting godoc
// @Summary Get setting
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} SettingResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/settings/{key} [get]
func (h *SettingsHandler) GetSetting(c echo.Context) error {
	setting, err := h.svc.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, SettingResponse{Setting: setting})
}

// CreateSetting godoc
// @Summary Create setting
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param setting body CreateSettingRequest true "Key and value"
// @Success 201 {object} SettingResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /v1/superadmin/settings [post]
func (h *SettingsHandler) CreateSetting(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	var req CreateSettingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" || len(req.Value) == 0 {
		return badRequest("Key and value are required")
	}

	setting, err := h.svc.Create(c.Request().Context(), actor, req.Key, req.Value)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, SettingResponse{Message: "Setting created successfully", Setting: setting})
}

// PutSetting godoc
// @Summary Create or replace setting
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param setting body PutSettingRequest true "Value"
// @Success 200 {object} SettingResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /v1/superadmin/settings/{key} [put]
func (h *SettingsHandler) PutSetting(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	var req PutSettingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if len(req.Value) == 0 {
		return badRequest("Value is required")
	}

	setting, err := h.svc.Put(c.Request().Context(), actor, c.Param("key"), req.Value)
	if err != nil {
		return respondError(err)
	}
	return ok(c, SettingResponse{Message: "Setting updated successfully", Setting: setting})
}

// DeleteSetting godoc
// @Summary Delete setting
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /v1/superadmin/settings/{key} [delete]
func (h *SettingsHandler) DeleteSetting(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor, c.Param("key")); err != nil {
		return respondError(err)
	}
	return ok(c, MessageResponse{Message: "Setting deleted successfully"})
}

// GetFeatureToggles godoc
// @Summary Get feature toggles
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FeatureTogglesResponse
// @Router /v1/superadmin/settings/feature-toggles [get]
func (h *SettingsHandler) GetFeatureToggles(c echo.Context) error {
	toggles, err := h.svc.FeatureToggles(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return ok(c, FeatureTogglesResponse{FeatureToggles: toggles})
}

// UpdateFeatureToggles godoc
// @Summary Replace feature toggles
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param toggles body FeatureTogglesRequest true "Toggle object"
// @Success 200 {object} FeatureTogglesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /v1/superadmin/settings/feature-toggles [put]
func (h *SettingsHandler) UpdateFeatureToggles(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	var req FeatureTogglesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	toggles, err := h.svc.UpdateFeatureToggles(c.Request().Context(), actor, req.FeatureToggles)
	if err != nil {
		return respondError(err)
	}
	return ok(c, FeatureTogglesResponse{Message: "Feature toggles updated successfully", FeatureToggles: toggles})
}
