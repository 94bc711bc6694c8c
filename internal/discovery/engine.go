// Package discovery ranks open trips and packages against a searcher's
// criteria. It never writes.
package discovery

import (
	"cmp"
	"context"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/listing"
)

const (
	routeWeight  = 0.5
	dateWeight   = 0.3
	weightWeight = 0.2

	// dateHalfLife is how far from the reference time a listing's date
	// halves its date score.
	dateHalfLife = 7 * 24 * time.Hour
)

// Corpus is the set of listings open for matching.
type Corpus interface {
	OpenTrips(ctx context.Context) ([]listing.Trip, error)
	OpenPackages(ctx context.Context) ([]listing.Package, error)
}

// Candidate is one ranked result. Exactly one of Trip and Package is set.
type Candidate struct {
	ID      string           `json:"id"`
	Kind    string           `json:"kind"`
	Score   float64          `json:"score"`
	Date    time.Time        `json:"date"`
	Owner   ProfileSummary   `json:"owner"`
	Trip    *listing.Trip    `json:"trip,omitempty"`
	Package *listing.Package `json:"package,omitempty"`
}

type Engine struct {
	corpus   Corpus
	profiles Profiles
	now      func() time.Time
}

func NewEngine(corpus Corpus, profiles Profiles) *Engine {
	return &Engine{corpus: corpus, profiles: profiles, now: time.Now}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Search filters and ranks a snapshot of the corpus. The returned sequence
// can be ranged over any number of times and always yields the same
// candidates in the same order; owner profiles are looked up as candidates
// are yielded.
func (e *Engine) Search(ctx context.Context, p Params) (iter.Seq[Candidate], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Now.IsZero() {
		p.Now = e.now()
	}

	var ranked []Candidate
	switch p.Role {
	case RoleSender:
		trips, err := e.corpus.OpenTrips(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "could not load trips")
		}
		for i := range trips {
			if c, ok := scoreTrip(p, trips[i]); ok {
				ranked = append(ranked, c)
			}
		}
	case RoleTraveler:
		pkgs, err := e.corpus.OpenPackages(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "could not load packages")
		}
		for i := range pkgs {
			if c, ok := scorePackage(p, pkgs[i]); ok {
				ranked = append(ranked, c)
			}
		}
	}
	slices.SortFunc(ranked, compareCandidates)

	return func(yield func(Candidate) bool) {
		for _, c := range ranked {
			if e.profiles != nil {
				c.Owner = e.profiles.Summary(ctx, c.Owner.UserID)
			}
			if !yield(c) {
				return
			}
		}
	}, nil
}

// compareCandidates orders by score descending, then soonest date, then id.
func compareCandidates(a, b Candidate) int {
	if a.Score != b.Score {
		return cmp.Compare(b.Score, a.Score)
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Compare(b.Date)
	}
	return cmp.Compare(a.ID, b.ID)
}

func scoreTrip(p Params, t listing.Trip) (Candidate, bool) {
	if p.ExcludeOwner != "" && t.TravelerID == p.ExcludeOwner {
		return Candidate{}, false
	}
	route, ok := routeScore(p, t.Origin, t.Destination)
	if !ok || !inDateRange(p, t.DepartureDate) || !inWeightRange(p, t.CapacityKg) {
		return Candidate{}, false
	}
	fit := 1.0
	if p.ReferenceKg != nil {
		fit = capacityFit(*p.ReferenceKg, t.CapacityKg)
	}
	trip := t
	return Candidate{
		ID:    t.ID,
		Kind:  "trip",
		Score: combine(route, dateScore(p.Now, t.DepartureDate), fit),
		Date:  t.DepartureDate,
		Owner: ProfileSummary{UserID: t.TravelerID},
		Trip:  &trip,
	}, true
}

func scorePackage(p Params, pkg listing.Package) (Candidate, bool) {
	if p.ExcludeOwner != "" && pkg.SenderID == p.ExcludeOwner {
		return Candidate{}, false
	}
	route, ok := routeScore(p, pkg.Origin, pkg.Destination)
	if !ok || !inDateRange(p, pkg.ReadyBy) || !inWeightRange(p, pkg.WeightKg) {
		return Candidate{}, false
	}
	if p.MinReward != nil && pkg.Reward.LessThan(*p.MinReward) {
		return Candidate{}, false
	}
	if p.MaxReward != nil && pkg.Reward.GreaterThan(*p.MaxReward) {
		return Candidate{}, false
	}
	fit := 1.0
	if p.ReferenceKg != nil {
		fit = capacityFit(pkg.WeightKg, *p.ReferenceKg)
	}
	item := pkg
	return Candidate{
		ID:      pkg.ID,
		Kind:    "package",
		Score:   combine(route, dateScore(p.Now, pkg.ReadyBy), fit),
		Date:    pkg.ReadyBy,
		Owner:   ProfileSummary{UserID: pkg.SenderID},
		Package: &item,
	}, true
}

// routeScore averages origin and destination proximity.
func routeScore(p Params, origin, destination listing.Location) (float64, bool) {
	okFrom, from := placeMatch(p.Origin, origin, p.RadiusKm)
	if !okFrom {
		return 0, false
	}
	okTo, to := placeMatch(p.Destination, destination, p.RadiusKm)
	if !okTo {
		return 0, false
	}
	return (from + to) / 2, true
}

func inDateRange(p Params, date time.Time) bool {
	if p.From == nil && p.To == nil {
		return true
	}
	if date.IsZero() {
		return false
	}
	if p.From != nil && date.Before(*p.From) {
		return false
	}
	if p.To != nil && date.After(*p.To) {
		return false
	}
	return true
}

func inWeightRange(p Params, kg float64) bool {
	if p.MinWeightKg != nil && kg < *p.MinWeightKg {
		return false
	}
	if p.MaxWeightKg != nil && kg > *p.MaxWeightKg {
		return false
	}
	return true
}

// dateScore is 1 at the reference time and halves every dateHalfLife away
// from it. Undated listings score 0.
func dateScore(now, date time.Time) float64 {
	if date.IsZero() {
		return 0
	}
	gap := date.Sub(now)
	if gap < 0 {
		gap = -gap
	}
	return math.Exp2(-float64(gap) / float64(dateHalfLife))
}

// capacityFit is 1 when weight fits in capacity and shrinks with the
// overflow otherwise.
func capacityFit(weightKg, capacityKg float64) float64 {
	if weightKg <= capacityKg {
		return 1
	}
	if capacityKg <= 0 {
		return 0
	}
	return capacityKg / weightKg
}

func combine(route, date, fit float64) float64 {
	s := routeWeight*route + dateWeight*date + weightWeight*fit
	return math.Round(s*1e6) / 1e6
}

// Page returns up to limit candidates after skipping offset.
func Page(seq iter.Seq[Candidate], offset, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	out := make([]Candidate, 0, limit)
	i := 0
	for c := range seq {
		if i >= offset {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
		i++
	}
	return out
}
