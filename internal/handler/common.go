package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"superadmin/internal/auth"
	"superadmin/internal/errors"
	"superadmin/internal/model"
)

// Context keys set by the authentication middleware.
const (
	ContextUserKey   = "currentUser"
	ContextClaimsKey = "currentClaims"
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func newPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// SetCurrentUser stores the authenticated user and token claims on the request.
func SetCurrentUser(c echo.Context, user *model.User, claims *auth.Claims) {
	c.Set(ContextUserKey, user)
	c.Set(ContextClaimsKey, claims)
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}

// CurrentClaims returns the verified token claims, or nil on public routes.
func CurrentClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(ContextClaimsKey).(*auth.Claims)
	return claims
}

func actorID(c echo.Context) (uuid.UUID, error) {
	user := CurrentUser(c)
	if user == nil {
		return uuid.Nil, errors.ErrUnauthorized
	}
	return user.ID, nil
}

// respondError converts err to the JSON error body.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) error {
	return respondError(errors.BadRequest(message))
}

func parseUUIDParam(c echo.Context, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		// Unknown ids cannot exist, so they read the same as a missing row.
		return uuid.Nil, respondError(notFound)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil {
		return def
	}
	return n
}

// queryTime parses RFC3339 or a plain date. Plain end dates cover the whole day.
func queryTime(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, badRequest("Invalid " + name + ", expected YYYY-MM-DD or RFC3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func ok(c echo.Context, body interface{}) error {
	return c.JSON(http.StatusOK, body)
}
