// Package listing holds the trips travelers offer and the packages senders
// want carried. Discovery searches open listings; matches attach to them.
package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("listing not found")
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Location is a city with optional coordinates for radius search.
type Location struct {
	City string   `json:"city"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// HasCoords reports whether both coordinates are present.
func (l Location) HasCoords() bool { return l.Lat != nil && l.Lng != nil }

// SameCity compares city names ignoring case and surrounding space.
func (l Location) SameCity(city string) bool {
	return strings.EqualFold(strings.TrimSpace(l.City), strings.TrimSpace(city))
}

type Trip struct {
	ID            string    `json:"id"`
	TravelerID    string    `json:"traveler_id"`
	Origin        Location  `json:"origin"`
	Destination   Location  `json:"destination"`
	DepartureDate time.Time `json:"departure_date"`
	CapacityKg    float64   `json:"capacity_kg"`
	Notes         string    `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type Package struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"sender_id"`
	Origin      Location        `json:"origin"`
	Destination Location        `json:"destination"`
	WeightKg    float64         `json:"weight_kg"`
	Reward      decimal.Decimal `json:"reward"`
	ReadyBy     time.Time       `json:"ready_by"`
	Description string          `json:"description,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store persists listings. OpenTrips and OpenPackages exclude listings that
// are closed or attached to an active match.
type Store interface {
	CreateTrip(ctx context.Context, t Trip) error
	GetTrip(ctx context.Context, id string) (Trip, error)
	ListTripsByTraveler(ctx context.Context, travelerID string) ([]Trip, error)
	SetTripStatus(ctx context.Context, id string, status Status) error
	OpenTrips(ctx context.Context) ([]Trip, error)

	CreatePackage(ctx context.Context, p Package) error
	GetPackage(ctx context.Context, id string) (Package, error)
	ListPackagesBySender(ctx context.Context, senderID string) ([]Package, error)
	SetPackageStatus(ctx context.Context, id string, status Status) error
	OpenPackages(ctx context.Context) ([]Package, error)
}
