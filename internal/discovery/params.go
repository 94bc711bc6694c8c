package discovery

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/listing"
)

// Role is who is searching. Senders look for trips, travelers for packages.
type Role string

const (
	RoleSender   Role = "sender"
	RoleTraveler Role = "traveler"
)

// Params are the search criteria. Every field is optional except Role; a nil
// field places no constraint on its dimension.
type Params struct {
	Role Role

	Origin      *listing.Location
	Destination *listing.Location
	// RadiusKm additionally requires a candidate's endpoint to lie within
	// this distance of the wanted coordinates. The city must still match.
	RadiusKm *float64

	From *time.Time
	To   *time.Time

	// Weight bounds apply to trip capacity or package weight.
	MinWeightKg *float64
	MaxWeightKg *float64

	// Reward bounds apply to packages only; trips carry no reward.
	MinReward *decimal.Decimal
	MaxReward *decimal.Decimal

	// ReferenceKg is the searcher's own package weight (sender) or spare
	// capacity (traveler). It only affects the score.
	ReferenceKg *float64

	// ExcludeOwner hides the searcher's own listings.
	ExcludeOwner string

	// Now anchors date proximity. Zero means the engine's clock.
	Now time.Time
}

func (p Params) validate() error {
	if p.Role != RoleSender && p.Role != RoleTraveler {
		return apperr.Validation("role must be sender or traveler")
	}
	for name, v := range map[string]*float64{
		"radius_km":     p.RadiusKm,
		"min_weight_kg": p.MinWeightKg,
		"max_weight_kg": p.MaxWeightKg,
		"weight_kg":     p.ReferenceKg,
	} {
		if !finite(v) {
			return apperr.Validation("%s must be a finite number", name)
		}
	}
	for name, l := range map[string]*listing.Location{"origin": p.Origin, "destination": p.Destination} {
		if l != nil && (!finite(l.Lat) || !finite(l.Lng)) {
			return apperr.Validation("%s coordinates must be finite numbers", name)
		}
	}
	if p.RadiusKm != nil && *p.RadiusKm <= 0 {
		return apperr.Validation("radius_km must be positive")
	}
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return apperr.Validation("date range end is before its start")
	}
	if p.MinWeightKg != nil && p.MaxWeightKg != nil && *p.MaxWeightKg < *p.MinWeightKg {
		return apperr.Validation("max_weight_kg is below min_weight_kg")
	}
	if p.MinReward != nil && p.MaxReward != nil && p.MaxReward.LessThan(*p.MinReward) {
		return apperr.Validation("max_reward is below min_reward")
	}
	if p.ReferenceKg != nil && *p.ReferenceKg <= 0 {
		return apperr.Validation("reference weight must be positive")
	}
	return nil
}

// finite reports whether v is absent or a real number.
func finite(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}
