package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/carrypal/internal/listing"
	mware "github.com/sudo-init-do/carrypal/internal/middleware"
)

func (h *handlers) createTrip(c echo.Context) error {
	var in listing.CreateTripInput
	if err := c.Bind(&in); err != nil {
		return invalidBody()
	}
	t, err := h.Listings.CreateTrip(c.Request().Context(), mware.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *handlers) myTrips(c echo.Context) error {
	trips, err := h.Listings.MyTrips(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": nonNil(trips)})
}

func (h *handlers) getTrip(c echo.Context) error {
	t, err := h.Listings.GetTrip(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *handlers) closeTrip(c echo.Context) error {
	if err := h.Listings.CloseTrip(c.Request().Context(), mware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "trip closed"})
}

func (h *handlers) createPackage(c echo.Context) error {
	var in listing.CreatePackageInput
	if err := c.Bind(&in); err != nil {
		return invalidBody()
	}
	p, err := h.Listings.CreatePackage(c.Request().Context(), mware.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *handlers) myPackages(c echo.Context) error {
	pkgs, err := h.Listings.MyPackages(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"packages": nonNil(pkgs)})
}

func (h *handlers) getPackage(c echo.Context) error {
	p, err := h.Listings.GetPackage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *handlers) closePackage(c echo.Context) error {
	if err := h.Listings.ClosePackage(c.Request().Context(), mware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "package closed"})
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
