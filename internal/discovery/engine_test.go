package discovery

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/carrypal/internal/listing"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCorpus struct {
	trips []listing.Trip
	pkgs  []listing.Package
}

func (f fakeCorpus) OpenTrips(context.Context) ([]listing.Trip, error)       { return f.trips, nil }
func (f fakeCorpus) OpenPackages(context.Context) ([]listing.Package, error) { return f.pkgs, nil }

type staticProfiles map[string]string

func (s staticProfiles) Summary(_ context.Context, id string) ProfileSummary {
	return ProfileSummary{UserID: id, Name: s[id], AverageRating: 4.5, TotalReviews: 2}
}

func ptr[T any](v T) *T { return &v }

func loc(city string, lat, lng float64) listing.Location {
	return listing.Location{City: city, Lat: ptr(lat), Lng: ptr(lng)}
}

func trip(id, traveler string, origin, dest listing.Location, days int, capacity float64) listing.Trip {
	return listing.Trip{
		ID: id, TravelerID: traveler, Origin: origin, Destination: dest,
		DepartureDate: now.Add(time.Duration(days) * 24 * time.Hour), CapacityKg: capacity, Status: listing.StatusOpen,
	}
}

func corpus() fakeCorpus {
	lagos := loc("Lagos", 6.5244, 3.3792)
	ikeja := loc("Lagos", 6.6018, 3.3515)
	london := loc("London", 51.5072, -0.1276)
	return fakeCorpus{
		trips: []listing.Trip{
			trip("t-near-soon", "u1", lagos, london, 1, 10),
			trip("t-near-late", "u2", lagos, london, 20, 10),
			trip("t-ikeja", "u3", ikeja, london, 1, 10),
			trip("t-small", "u4", lagos, london, 1, 2),
			trip("t-paris", "u5", lagos, loc("Paris", 48.8566, 2.3522), 1, 10),
		},
		pkgs: []listing.Package{
			{ID: "p-cheap", SenderID: "s1", Origin: lagos, Destination: london, WeightKg: 2, Reward: decimal.NewFromInt(20), ReadyBy: now},
			{ID: "p-rich", SenderID: "s2", Origin: lagos, Destination: london, WeightKg: 2, Reward: decimal.NewFromInt(90), ReadyBy: now},
			{ID: "p-heavy", SenderID: "s3", Origin: lagos, Destination: london, WeightKg: 30, Reward: decimal.NewFromInt(60), ReadyBy: now},
		},
	}
}

func search(t *testing.T, e *Engine, p Params) []Candidate {
	t.Helper()
	seq, err := e.Search(context.Background(), p)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func newEngine() *Engine {
	return NewEngine(corpus(), staticProfiles{"u1": "Ada"}).WithClock(func() time.Time { return now })
}

func TestSearch_NoFiltersReturnsEverything(t *testing.T) {
	got := search(t, newEngine(), Params{Role: RoleSender})
	assert.Len(t, got, 5)
}

func TestSearch_OrdersByScoreThenDateThenID(t *testing.T) {
	got := search(t, newEngine(), Params{Role: RoleSender, Destination: &listing.Location{City: "london"}})

	// Same score and date: id breaks the tie. The later trip loses on date proximity.
	assert.Equal(t, []string{"t-ikeja", "t-near-soon", "t-small", "t-near-late"}, ids(got))
}

func TestSearch_RadiusNarrowsAndLowersScore(t *testing.T) {
	e := newEngine()
	center := loc("Lagos", 6.5244, 3.3792)

	wide := search(t, e, Params{Role: RoleSender, Origin: &center, RadiusKm: ptr(50.0)})
	narrow := search(t, e, Params{Role: RoleSender, Origin: &center, RadiusKm: ptr(5.0)})

	assert.Contains(t, ids(wide), "t-ikeja")
	assert.NotContains(t, ids(narrow), "t-ikeja")
	assert.Subset(t, ids(wide), ids(narrow))
}

func TestSearch_TighteningNeverAddsOrRaises(t *testing.T) {
	e := newEngine()
	center := loc("Lagos", 6.5244, 3.3792)
	loose := Params{Role: RoleSender, Origin: &center, RadiusKm: ptr(50.0), ReferenceKg: ptr(5.0)}
	tightenings := []func(p Params) Params{
		func(p Params) Params { p.RadiusKm = ptr(5.0); return p },
		func(p Params) Params { p.Destination = &listing.Location{City: "London"}; return p },
		func(p Params) Params { p.To = ptr(now.Add(48 * time.Hour)); return p },
		func(p Params) Params { p.MinWeightKg = ptr(5.0); return p },
	}

	base := search(t, e, loose)
	scores := map[string]float64{}
	for _, c := range base {
		scores[c.ID] = c.Score
	}
	for i, tighten := range tightenings {
		got := search(t, e, tighten(loose))
		assert.Subset(t, ids(base), ids(got), "tightening %d", i)
		for _, c := range got {
			assert.LessOrEqual(t, c.Score, scores[c.ID], "tightening %d raised %s", i, c.ID)
		}
	}
}

func TestSearch_ReferenceWeightPrefersRoomyTrips(t *testing.T) {
	got := search(t, newEngine(), Params{
		Role:        RoleSender,
		Destination: &listing.Location{City: "London"},
		ReferenceKg: ptr(5.0),
	})
	assert.Equal(t, "t-small", got[len(got)-2].ID)
	assert.Less(t, got[len(got)-2].Score, got[0].Score)
}

func TestSearch_TravelerRewardAndWeightFilters(t *testing.T) {
	e := newEngine()

	got := search(t, e, Params{Role: RoleTraveler, MinReward: ptr(decimal.NewFromInt(50))})
	assert.ElementsMatch(t, []string{"p-rich", "p-heavy"}, ids(got))

	got = search(t, e, Params{Role: RoleTraveler, MinReward: ptr(decimal.NewFromInt(50)), MaxWeightKg: ptr(10.0)})
	assert.Equal(t, []string{"p-rich"}, ids(got))
}

func TestSearch_ExcludesOwnListings(t *testing.T) {
	got := search(t, newEngine(), Params{Role: RoleSender, ExcludeOwner: "u1"})
	assert.NotContains(t, ids(got), "t-near-soon")
}

func TestSearch_AttachesOwnerProfile(t *testing.T) {
	got := search(t, newEngine(), Params{Role: RoleSender, Destination: &listing.Location{City: "Paris"}})
	require.Len(t, got, 1)
	assert.Equal(t, "u5", got[0].Owner.UserID)

	got = search(t, newEngine(), Params{Role: RoleSender, ExcludeOwner: "u3", To: ptr(now.Add(36 * time.Hour))})
	for _, c := range got {
		if c.ID == "t-near-soon" {
			assert.Equal(t, "Ada", c.Owner.Name)
			assert.Equal(t, 2, c.Owner.TotalReviews)
		}
	}
}

func TestSearch_SequenceIsRestartable(t *testing.T) {
	seq, err := newEngine().Search(context.Background(), Params{Role: RoleSender})
	require.NoError(t, err)

	first := ids(slices.Collect(seq))
	second := ids(slices.Collect(seq))
	assert.Equal(t, first, second)
}

func TestPage(t *testing.T) {
	seq, err := newEngine().Search(context.Background(), Params{Role: RoleSender})
	require.NoError(t, err)
	all := ids(slices.Collect(seq))

	assert.Equal(t, all[2:4], ids(Page(seq, 2, 2)))
	assert.Empty(t, Page(seq, 10, 2))
	assert.Nil(t, Page(seq, 0, 0))
}

func TestPage_StopsPullingAtLimit(t *testing.T) {
	pulled := 0
	seq := func(yield func(Candidate) bool) {
		for i := range 10 {
			pulled++
			if !yield(Candidate{ID: string(rune('a' + i))}) {
				return
			}
		}
	}
	got := Page(seq, 1, 2)
	assert.Equal(t, []string{"b", "c"}, ids(got))
	assert.Equal(t, 3, pulled)
}

func TestSearch_Validation(t *testing.T) {
	e := newEngine()
	cases := []Params{
		{},
		{Role: "courier"},
		{Role: RoleSender, RadiusKm: ptr(-1.0)},
		{Role: RoleSender, From: ptr(now), To: ptr(now.Add(-time.Hour))},
		{Role: RoleSender, MinWeightKg: ptr(5.0), MaxWeightKg: ptr(1.0)},
		{Role: RoleSender, Origin: ptr(loc("Lagos", 6.5, 3.4)), RadiusKm: ptr(math.NaN())},
		{Role: RoleSender, RadiusKm: ptr(math.Inf(1))},
		{Role: RoleTraveler, MinWeightKg: ptr(math.NaN())},
		{Role: RoleSender, ReferenceKg: ptr(math.Inf(-1))},
		{Role: RoleSender, Destination: ptr(loc("London", math.NaN(), 0))},
	}
	for _, p := range cases {
		_, err := e.Search(context.Background(), p)
		assert.Error(t, err)
	}
}

func TestDistanceKm(t *testing.T) {
	d := distanceKm(51.5072, -0.1276, 48.8566, 2.3522)
	assert.InDelta(t, 343, d, 5)
}
