package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type CreateTripInput struct {
	Origin        Location  `json:"origin"`
	Destination   Location  `json:"destination"`
	DepartureDate time.Time `json:"departure_date"`
	CapacityKg    float64   `json:"capacity_kg"`
	Notes         string    `json:"notes"`
}

type CreatePackageInput struct {
	Origin      Location        `json:"origin"`
	Destination Location        `json:"destination"`
	WeightKg    float64         `json:"weight_kg"`
	Reward      decimal.Decimal `json:"reward"`
	ReadyBy     time.Time       `json:"ready_by"`
	Description string          `json:"description"`
}

func validateRoute(origin, destination Location) error {
	if strings.TrimSpace(origin.City) == "" || strings.TrimSpace(destination.City) == "" {
		return apperr.Validation("origin and destination cities are required")
	}
	if origin.SameCity(destination.City) {
		return apperr.Validation("origin and destination must differ")
	}
	for _, loc := range []Location{origin, destination} {
		if (loc.Lat == nil) != (loc.Lng == nil) {
			return apperr.Validation("coordinates need both lat and lng")
		}
		if loc.HasCoords() && (*loc.Lat < -90 || *loc.Lat > 90 || *loc.Lng < -180 || *loc.Lng > 180) {
			return apperr.Validation("coordinates out of range")
		}
	}
	return nil
}

func (s *Service) CreateTrip(ctx context.Context, travelerID string, in CreateTripInput) (Trip, error) {
	if err := validateRoute(in.Origin, in.Destination); err != nil {
		return Trip{}, err
	}
	if in.CapacityKg <= 0 {
		return Trip{}, apperr.Validation("capacity_kg must be positive")
	}
	if in.DepartureDate.IsZero() {
		return Trip{}, apperr.Validation("departure_date is required")
	}
	t := Trip{
		ID:            uuid.NewString(),
		TravelerID:    travelerID,
		Origin:        in.Origin,
		Destination:   in.Destination,
		DepartureDate: in.DepartureDate.UTC(),
		CapacityKg:    in.CapacityKg,
		Notes:         strings.TrimSpace(in.Notes),
		Status:        StatusOpen,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateTrip(ctx, t); err != nil {
		return Trip{}, apperr.Wrap(apperr.KindInternal, err, "could not create trip")
	}
	return t, nil
}

func (s *Service) CreatePackage(ctx context.Context, senderID string, in CreatePackageInput) (Package, error) {
	if err := validateRoute(in.Origin, in.Destination); err != nil {
		return Package{}, err
	}
	if in.WeightKg <= 0 {
		return Package{}, apperr.Validation("weight_kg must be positive")
	}
	if !in.Reward.IsPositive() {
		return Package{}, apperr.Validation("reward must be positive")
	}
	if len(in.Description) > 1000 {
		return Package{}, apperr.Validation("description too long (max 1000 characters)")
	}
	p := Package{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		Origin:      in.Origin,
		Destination: in.Destination,
		WeightKg:    in.WeightKg,
		Reward:      in.Reward,
		ReadyBy:     in.ReadyBy.UTC(),
		Description: strings.TrimSpace(in.Description),
		Status:      StatusOpen,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreatePackage(ctx, p); err != nil {
		return Package{}, apperr.Wrap(apperr.KindInternal, err, "could not create package")
	}
	return p, nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	t, err := s.store.GetTrip(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Trip{}, apperr.NotFound("trip not found")
	}
	if err != nil {
		return Trip{}, apperr.Wrap(apperr.KindInternal, err, "could not load trip")
	}
	return t, nil
}

func (s *Service) GetPackage(ctx context.Context, id string) (Package, error) {
	p, err := s.store.GetPackage(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Package{}, apperr.NotFound("package not found")
	}
	if err != nil {
		return Package{}, apperr.Wrap(apperr.KindInternal, err, "could not load package")
	}
	return p, nil
}

func (s *Service) MyTrips(ctx context.Context, travelerID string) ([]Trip, error) {
	return s.store.ListTripsByTraveler(ctx, travelerID)
}

func (s *Service) MyPackages(ctx context.Context, senderID string) ([]Package, error) {
	return s.store.ListPackagesBySender(ctx, senderID)
}

func (s *Service) CloseTrip(ctx context.Context, actorID, id string) error {
	t, err := s.GetTrip(ctx, id)
	if err != nil {
		return err
	}
	if t.TravelerID != actorID {
		return apperr.NotAuthorized("only the traveler can close this trip")
	}
	return s.store.SetTripStatus(ctx, id, StatusClosed)
}

func (s *Service) ClosePackage(ctx context.Context, actorID, id string) error {
	p, err := s.GetPackage(ctx, id)
	if err != nil {
		return err
	}
	if p.SenderID != actorID {
		return apperr.NotAuthorized("only the sender can close this package")
	}
	return s.store.SetPackageStatus(ctx, id, StatusClosed)
}
