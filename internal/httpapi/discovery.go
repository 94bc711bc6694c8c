package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/discovery"
	"github.com/sudo-init-do/carrypal/internal/listing"
	mware "github.com/sudo-init-do/carrypal/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// discover runs a search. Query parameters:
//
//	role=sender|traveler
//	origin, origin_lat, origin_lng, destination, destination_lat, destination_lng
//	radius_km, from, to (RFC 3339 or YYYY-MM-DD)
//	min_weight_kg, max_weight_kg, min_reward, max_reward, weight_kg
//	offset, limit, include_own=true
func (h *handlers) discover(c echo.Context) error {
	q := queryReader{c: c}
	p := discovery.Params{
		Role:        discovery.Role(c.QueryParam("role")),
		Origin:      q.location("origin"),
		Destination: q.location("destination"),
		RadiusKm:    q.float("radius_km"),
		From:        q.date("from"),
		To:          q.date("to"),
		MinWeightKg: q.float("min_weight_kg"),
		MaxWeightKg: q.float("max_weight_kg"),
		MinReward:   q.amount("min_reward"),
		MaxReward:   q.amount("max_reward"),
		ReferenceKg: q.float("weight_kg"),
	}
	if c.QueryParam("include_own") != "true" {
		p.ExcludeOwner = mware.UserID(c)
	}
	offset := q.integer("offset", 0)
	limit := q.integer("limit", defaultPageSize)
	if q.err != nil {
		return q.err
	}
	if offset < 0 {
		return apperr.Validation("offset must not be negative")
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	results, err := h.Discovery.Search(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"results": nonNil(discovery.Page(results, offset, limit)),
		"offset":  offset,
		"limit":   limit,
	})
}

// queryReader parses optional query parameters, keeping the first error.
type queryReader struct {
	c   echo.Context
	err error
}

func (q *queryReader) fail(name string) {
	if q.err == nil {
		q.err = apperr.Validation("invalid %s", name)
	}
}

func (q *queryReader) float(name string) *float64 {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		q.fail(name)
		return nil
	}
	return &v
}

func (q *queryReader) integer(name string, def int) int {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name)
		return def
	}
	return v
}

func (q *queryReader) amount(name string) *decimal.Decimal {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &v
}

func (q *queryReader) date(name string) *time.Time {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	q.fail(name)
	return nil
}

// location reads <prefix>, <prefix>_lat and <prefix>_lng. A location needs
// its city.
func (q *queryReader) location(prefix string) *listing.Location {
	city := strings.TrimSpace(q.c.QueryParam(prefix))
	lat, lng := q.float(prefix+"_lat"), q.float(prefix+"_lng")
	if city == "" {
		if lat != nil || lng != nil {
			q.fail(prefix)
		}
		return nil
	}
	if (lat == nil) != (lng == nil) {
		q.fail(prefix + " coordinates")
		return nil
	}
	return &listing.Location{City: city, Lat: lat, Lng: lng}
}
