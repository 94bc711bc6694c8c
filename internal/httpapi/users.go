package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/carrypal/internal/middleware"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/user"
)

func (h *handlers) me(c echo.Context) error {
	u, err := h.Users.Get(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *handlers) updateProfile(c echo.Context) error {
	var req user.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	u, err := h.Users.UpdateProfile(c.Request().Context(), mware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated", "user": u})
}

type publicProfile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Bio       string         `json:"bio,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Role      user.Role      `json:"role"`
	Ratings   review.Summary `json:"ratings"`
}

// publicProfile never exposes the email address.
func (h *handlers) publicProfile(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.Users.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	sum, err := h.Reviews.Summary(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, publicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		Ratings:   sum,
	})
}

func (h *handlers) userReviews(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx := c.Request().Context()

	reviews, err := h.Reviews.ForUser(ctx, c.Param("id"), page, limit)
	if err != nil {
		return err
	}
	sum, err := h.Reviews.Summary(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": nonNil(reviews), "summary": sum})
}
