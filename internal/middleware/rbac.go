package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/carrypal/internal/apperr"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("arbiter"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if role == "" {
				return apperr.NotAuthorized("role missing")
			}
			if !slices.Contains(roles, role) {
				return apperr.NotAuthorized("access denied")
			}
			return next(c)
		}
	}
}
