package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/carrypal/internal/middleware"
)

func (h *handlers) listNotifications(c echo.Context) error {
	unread := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.Notifier.Inbox(c.Request().Context(), mware.UserID(c), unread, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": nonNil(items)})
}

func (h *handlers) unreadCount(c echo.Context) error {
	n, err := h.Notifier.UnreadCount(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *handlers) markRead(c echo.Context) error {
	if err := h.Notifier.MarkRead(c.Request().Context(), mware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
