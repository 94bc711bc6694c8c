package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/auth"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWT authenticates the bearer token and stores user_id and role on the
// context. Websocket clients that cannot set headers may pass ?token=.
func JWT(tokens *auth.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return apperr.New(apperr.KindUnauthenticated, "missing Authorization header")
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return apperr.Wrap(apperr.KindUnauthenticated, err, "invalid or expired token")
			}
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// UserID returns the authenticated caller, or "" outside JWT routes.
func UserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}
