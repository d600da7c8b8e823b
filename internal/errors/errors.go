package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when a deactivated user tries to authenticate.
	ErrAccountDisabled = errors.New("account is deactivated")
	// ErrUnauthorized is returned when a request carries no usable identity.
	ErrUnauthorized = errors.New("no valid token provided")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("insufficient permissions")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when another user already owns the email.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrCannotDeleteSelf is returned when a user tries to delete their own account.
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")

	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameTaken is returned when the role name already exists.
	ErrRoleNameTaken = errors.New("role with this name already exists")
	// ErrSuperAdminRoleProtected is returned when deleting the superadmin role.
	ErrSuperAdminRoleProtected = errors.New("cannot delete superadmin role")
	// ErrRoleInUse is returned when deleting a role that is still assigned.
	ErrRoleInUse = errors.New("cannot delete role that is assigned to users")
	// ErrRoleAlreadyAssigned is returned when the user already holds the role.
	ErrRoleAlreadyAssigned = errors.New("user already has this role")
	// ErrAssignmentNotFound is returned when removing a role the user does not hold.
	ErrAssignmentNotFound = errors.New("user does not have this role")
	// ErrLastSuperAdmin is returned when removing the final superadmin assignment.
	ErrLastSuperAdmin = errors.New("cannot remove the last superadmin")

	// ErrSettingNotFound is returned when a setting key does not exist.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingExists is returned when creating a key that already exists.
	ErrSettingExists = errors.New("setting with this key already exists")
	// ErrCriticalSetting is returned when deleting a protected setting.
	ErrCriticalSetting = errors.New("cannot delete critical system setting")
	// ErrInvalidFeatureToggles is returned when toggles are not a JSON object.
	ErrInvalidFeatureToggles = errors.New("feature toggles must be an object")

	// ErrRevocationUnavailable is returned when a token cannot be blacklisted.
	ErrRevocationUnavailable = errors.New("token revocation unavailable")

	// ErrMailNotConfigured is returned when no mail transport is available.
	ErrMailNotConfigured = errors.New("email service not configured")
	// ErrSchedulerNotRunning is returned for job operations before Start.
	ErrSchedulerNotRunning = errors.New("cron service is not initialized")
	// ErrUnknownJob is returned when a job name is not registered.
	ErrUnknownJob = errors.New("unknown cron job")
	// ErrJobRunning is returned when a job is triggered while a run is in progress.
	ErrJobRunning = errors.New("cron job is already running")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Message: e.Message,
		Code:    e.Code,
	}
}

var mappings = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Access denied. No valid token provided"},
	{ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is deactivated"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied. Insufficient permissions"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", "User with this email already exists"},
	{ErrCannotDeleteSelf, http.StatusBadRequest, "CANNOT_DELETE_SELF", "Cannot delete your own account"},
	{ErrRoleNotFound, http.StatusNotFound, "ROLE_NOT_FOUND", "Role not found"},
	{ErrRoleNameTaken, http.StatusConflict, "ROLE_NAME_TAKEN", "Role with this name already exists"},
	{ErrSuperAdminRoleProtected, http.StatusBadRequest, "SUPERADMIN_ROLE_PROTECTED", "Cannot delete superadmin role"},
	{ErrRoleInUse, http.StatusBadRequest, "ROLE_IN_USE", "Cannot delete role that is assigned to users"},
	{ErrRoleAlreadyAssigned, http.StatusConflict, "ROLE_ALREADY_ASSIGNED", "User already has this role"},
	{ErrAssignmentNotFound, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND", "User does not have this role"},
	{ErrLastSuperAdmin, http.StatusBadRequest, "LAST_SUPERADMIN", "Cannot remove the last superadmin"},
	{ErrSettingNotFound, http.StatusNotFound, "SETTING_NOT_FOUND", "Setting not found"},
	{ErrSettingExists, http.StatusConflict, "SETTING_EXISTS", "Setting with this key already exists"},
	{ErrCriticalSetting, http.StatusBadRequest, "CRITICAL_SETTING", "Cannot delete critical system setting"},
	{ErrInvalidFeatureToggles, http.StatusBadRequest, "INVALID_FEATURE_TOGGLES", "Feature toggles must be an object"},
	{ErrRevocationUnavailable, http.StatusServiceUnavailable, "REVOCATION_UNAVAILABLE", "Logout failed, token could not be revoked"},
	{ErrMailNotConfigured, http.StatusServiceUnavailable, "MAIL_NOT_CONFIGURED", "Email service not configured"},
	{ErrSchedulerNotRunning, http.StatusConflict, "SCHEDULER_NOT_RUNNING", "Cron service is not initialized"},
	{ErrUnknownJob, http.StatusNotFound, "UNKNOWN_JOB", "Unknown cron job"},
	{ErrJobRunning, http.StatusConflict, "JOB_RUNNING", "Cron job is already running"},
}

// MapErrorToHTTP maps domain errors, including wrapped ones, to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.message, m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
}

// BadRequest builds a 400 validation error.
func BadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, "VALIDATION_ERROR")
}
