package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: ErrUserNotFound, wantStatus: http.StatusNotFound, wantCode: "USER_NOT_FOUND"},
		{name: "wrapped conflict", err: fmt.Errorf("create user: %w", ErrEmailTaken), wantStatus: http.StatusConflict, wantCode: "EMAIL_TAKEN"},
		{name: "credentials", err: ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "disabled", err: ErrAccountDisabled, wantStatus: http.StatusForbidden, wantCode: "ACCOUNT_DISABLED"},
		{name: "last superadmin", err: ErrLastSuperAdmin, wantStatus: http.StatusBadRequest, wantCode: "LAST_SUPERADMIN"},
		{name: "http error passthrough", err: BadRequest("Name is required"), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "unknown", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestMapErrorToHTTPKeepsSentinelMessage(t *testing.T) {
	got := MapErrorToHTTP(fmt.Errorf("delete role: %w", ErrRoleInUse))
	assert.Equal(t, "Cannot delete role that is assigned to users", got.ToErrorResponse().Message)
}
