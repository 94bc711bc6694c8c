package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/carrypal/internal/middleware"
)

// listDisputes serves the arbiter queue.
func (h *handlers) listDisputes(c echo.Context) error {
	v, err := vocabularyOf(c)
	if err != nil {
		return err
	}
	ms, err := h.Matches.Disputes(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return err
	}
	out := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, v.match(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"disputes": out})
}
