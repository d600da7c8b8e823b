package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"superadmin/internal/seed"
)

// Seeder writes the bootstrap roles, accounts and settings.
type Seeder interface {
	Run(ctx context.Context, opts seed.Options) (*seed.Result, error)
}

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seeder Seeder
	opts   seed.Options
}

// NewSeedHandler creates a new seed handler. opts carries the configured superadmin credentials.
func NewSeedHandler(seeder Seeder, opts seed.Options) *SeedHandler {
	return &SeedHandler{seeder: seeder, opts: opts}
}

// SeedResponse reports what a seed run changed.
type SeedResponse struct {
	Message string       `json:"message"`
	Result  *seed.Result `json:"result"`
}

// Seed godoc
// @Summary Seed bootstrap data
// @Description Idempotent. Existing users keep their passwords and existing settings are kept.
// @Tags seed
// @Produce json
// @Security BearerAuth
// @Param demo query bool false "Also create demo accounts"
// @Success 200 {object} SeedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /v1/superadmin/seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	opts := h.opts
	if demo, err := strconv.ParseBool(c.QueryParam("demo")); err == nil {
		opts.DemoUsers = demo
	}
	result, err := h.seeder.Run(c.Request().Context(), opts)
	if err != nil {
		return respondError(err)
	}
	return ok(c, SeedResponse{Message: "Seed completed", Result: result})
}
