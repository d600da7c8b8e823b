package router

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"superadmin/internal/auth"
	"superadmin/internal/errors"
	"superadmin/internal/handler"
	"superadmin/internal/model"
)

const tokenContextKey = "token"

// TokenParser verifies a bearer token.
type TokenParser interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticator resolves verified claims to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

func forbidden(message string) error {
	return echo.NewHTTPError(http.StatusForbidden, errors.NewHTTPError(http.StatusForbidden, message, "FORBIDDEN").ToErrorResponse())
}

// JWT verifies the bearer token. A missing token is 401, a bad one 403.
func JWT(parser TokenParser) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: tokenContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return parser.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimSpace(header[len("Bearer "):]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized,
					errors.NewHTTPError(http.StatusUnauthorized, "Access token required", "TOKEN_REQUIRED").ToErrorResponse())
			}
			return echo.NewHTTPError(http.StatusForbidden,
				errors.NewHTTPError(http.StatusForbidden, "Invalid or expired token", "TOKEN_INVALID").ToErrorResponse()).SetInternal(err)
		},
	})
}

// Authenticate loads the token's user and stores it on the context. It must run after JWT.
func Authenticate(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(tokenContextKey).(*auth.Claims)
			if !ok {
				httpErr := errors.MapErrorToHTTP(errors.ErrUnauthorized)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			user, err := authn.Authenticate(c.Request().Context(), claims)
			if err != nil {
				httpErr := errors.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
			}
			handler.SetCurrentUser(c, user, claims)
			return next(c)
		}
	}
}

// RequireRoles admits users holding any of roles.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return requireRoles("Access denied. Required roles: "+strings.Join(roles, ", "), roles...)
}

// RequireSuperAdmin admits superadmins only.
func RequireSuperAdmin() echo.MiddlewareFunc {
	return requireRoles("Super admin access required", model.RoleSuperAdmin)
}

// RequireAdmin admits admins and superadmins.
func RequireAdmin() echo.MiddlewareFunc {
	return requireRoles("Admin access required", model.RoleAdmin, model.RoleSuperAdmin)
}

func requireRoles(message string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := handler.CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized,
					errors.NewHTTPError(http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED").ToErrorResponse())
			}
			if !user.HasRole(roles...) {
				return forbidden(message)
			}
			return next(c)
		}
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Error != nil:
				log.Info("request", append(fields, zap.String("error", v.Error.Error()))...)
			default:
				log.Info("request", fields...)
			}
			return nil
		},
	})
}

// ErrorHandler renders every error as an errors.ErrorResponse body.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var status int
		var body interface{}
		var he *echo.HTTPError
		if stderrors.Is(err, echo.ErrNotFound) {
			// Unmatched routes, including catch-alls of groups with middleware.
			status = http.StatusNotFound
			body = errors.ErrorResponse{Message: "Route not found", Code: "ROUTE_NOT_FOUND"}
		} else if stderrors.As(err, &he) {
			status = he.Code
			switch msg := he.Message.(type) {
			case string:
				body = errors.ErrorResponse{Message: msg, Code: statusCode(status)}
			default:
				body = msg
			}
		} else {
			httpErr := errors.MapErrorToHTTP(err)
			status = httpErr.StatusCode
			body = httpErr.ToErrorResponse()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

// statusCode turns 404 into NOT_FOUND and so on.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
