package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/auth"
	"github.com/sudo-init-do/carrypal/internal/discovery"
	"github.com/sudo-init-do/carrypal/internal/escrow"
	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/match"
	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/payment"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/storage/memory"
	"github.com/sudo-init-do/carrypal/internal/user"
)

type fixture struct {
	e      *echo.Echo
	store  *memory.Store
	tokens *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	dir := user.NewDirectory(store)
	notifier := notify.NewNotifier(store, dir)
	reviews := review.NewService(store, store)
	tokens := auth.NewTokens("test-secret", time.Hour)

	e := New(Deps{
		Matches: match.NewService(store, escrow.NewLedger(payment.NewSandbox()),
			match.WithListings(store),
			match.WithRoles(dir),
			match.WithNotifier(notifier),
		),
		Listings:  listing.NewService(store),
		Discovery: discovery.NewEngine(store, discovery.NewProfiles(dir, reviews)),
		Reviews:   reviews,
		Users:     dir,
		Notifier:  notifier,
		Tokens:    tokens,
	})
	return &fixture{e: e, store: store, tokens: tokens}
}

func (f *fixture) token(t *testing.T, userID string, role user.Role) string {
	t.Helper()
	raw, err := f.tokens.Issue(userID, string(role))
	require.NoError(t, err)
	return raw
}

// do sends body as JSON with token as bearer and decodes the response into
// out when out is non-nil.
func (f *fixture) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type apiError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type matchBody struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	TrackingCode string `json:"tracking_code"`
	Escrow       struct {
		State string `json:"state"`
	} `json:"escrow"`
}

type marketplace struct {
	*fixture
	sender, traveler, arbiter string
	pkgID, tripID             string
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	f := newFixture(t)
	m := &marketplace{fixture: f}
	m.sender = f.token(t, "S1", user.RoleMember)
	m.traveler = f.token(t, "T1", user.RoleMember)
	m.arbiter = f.token(t, "A1", user.RoleArbiter)

	for tok, name := range map[string]string{m.sender: "Sade", m.traveler: "Tunde", m.arbiter: "Ayo"} {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/users/me", tok, echo.Map{"name": name, "email": name + "@example.com"}, nil))
	}
	require.NoError(t, f.store.SetRole(context.Background(), "A1", user.RoleArbiter))

	var trip listing.Trip
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/trips", m.traveler, echo.Map{
		"origin":         echo.Map{"city": "Lagos"},
		"destination":    echo.Map{"city": "London"},
		"departure_date": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"capacity_kg":    10,
	}, &trip))
	m.tripID = trip.ID

	var pkg listing.Package
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/packages", m.sender, echo.Map{
		"origin":      echo.Map{"city": "Lagos"},
		"destination": echo.Map{"city": "London"},
		"weight_kg":   3,
		"reward":      "50",
	}, &pkg))
	m.pkgID = pkg.ID
	return m
}

func (m *marketplace) propose(t *testing.T) matchBody {
	t.Helper()
	var out matchBody
	require.Equal(t, http.StatusCreated, m.do(t, http.MethodPost, "/matches", m.sender,
		echo.Map{"package_id": m.pkgID, "trip_id": m.tripID}, &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var out map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil, &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "", nil, nil))
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)
	var out apiError
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/matches", "", nil, &out))
	assert.Equal(t, string(apperr.KindUnauthenticated), out.Error.Kind)
}

func TestFullDeliveryLifecycle(t *testing.T) {
	m := newMarketplace(t)

	var found struct {
		Results []discovery.Candidate `json:"results"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/discovery?role=sender&origin=Lagos&destination=london", m.sender, nil, &found))
	require.Len(t, found.Results, 1)
	assert.Equal(t, m.tripID, found.Results[0].ID)
	assert.Equal(t, "Tunde", found.Results[0].Owner.Name)

	mt := m.propose(t)
	assert.Equal(t, "PROPOSED", mt.Status)
	path := "/matches/" + mt.ID

	steps := []struct {
		action, token, want string
	}{
		{"accept", m.traveler, "ACCEPTED"},
		{"pay", m.sender, "CONFIRMED"},
		{"confirm-pickup", m.traveler, "PICKED_UP"},
		{"in-transit", m.traveler, "IN_TRANSIT"},
		{"confirm-delivery", m.traveler, "DELIVERED"},
		{"confirm-receipt", m.sender, "COMPLETED"},
	}
	for _, step := range steps {
		var out matchBody
		require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, path+"/"+step.action, step.token, nil, &out), step.action)
		assert.Equal(t, step.want, out.Status, step.action)
		if step.action == "pay" {
			assert.Regexp(t, `^CP-[0-9A-F]{8}$`, out.TrackingCode)
			assert.Equal(t, string(escrow.StateHeld), out.Escrow.State)
		}
	}

	var history struct {
		History []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"history"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, path+"/history?vocabulary=simple", m.sender, nil, &history))
	require.Len(t, history.History, 7)
	assert.Equal(t, "pending", history.History[0].To)
	assert.Equal(t, "confirmed", history.History[6].To)

	var rv review.Review
	require.Equal(t, http.StatusCreated, m.do(t, http.MethodPost, path+"/review", m.sender, echo.Map{"rating": 5, "comment": "on time"}, &rv))
	assert.Equal(t, "T1", rv.RevieweeID)

	var profile map[string]any
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/users/T1/profile", "", nil, &profile))
	assert.Equal(t, "Tunde", profile["name"])
	assert.NotContains(t, profile, "email")
	ratings := profile["ratings"].(map[string]any)
	assert.EqualValues(t, 1, ratings["total_reviews"])

	var inbox struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/notifications", m.traveler, nil, &inbox))
	require.NotEmpty(t, inbox.Notifications)
	assert.Equal(t, notify.DeliveryConfirmed, inbox.Notifications[0].Event)

	first := inbox.Notifications[0].ID
	assert.Equal(t, http.StatusOK, m.do(t, http.MethodPost, "/notifications/"+first+"/read", m.traveler, nil, nil))
	assert.Equal(t, http.StatusNotFound, m.do(t, http.MethodPost, "/notifications/"+first+"/read", m.sender, nil, nil))
}

func TestErrorKindsMapToStatus(t *testing.T) {
	m := newMarketplace(t)
	mt := m.propose(t)
	path := "/matches/" + mt.ID

	var out apiError
	assert.Equal(t, http.StatusForbidden, m.do(t, http.MethodPost, path+"/accept", m.sender, nil, &out))
	assert.Equal(t, string(apperr.KindNotAuthorized), out.Error.Kind)

	out = apiError{}
	assert.Equal(t, http.StatusConflict, m.do(t, http.MethodPost, path+"/pay", m.sender, nil, &out))
	assert.Equal(t, string(apperr.KindInvalidTransition), out.Error.Kind)

	out = apiError{}
	assert.Equal(t, http.StatusNotFound, m.do(t, http.MethodGet, "/matches/nope", m.sender, nil, &out))
	assert.Equal(t, string(apperr.KindNotFound), out.Error.Kind)

	out = apiError{}
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodPost, "/matches", m.sender, echo.Map{"package_id": m.pkgID}, &out))
	assert.Equal(t, string(apperr.KindValidation), out.Error.Kind)

	out = apiError{}
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet, "/matches?status=lost", m.sender, nil, &out))
	assert.Equal(t, string(apperr.KindValidation), out.Error.Kind)
}

func TestSimpleVocabulary(t *testing.T) {
	m := newMarketplace(t)
	mt := m.propose(t)

	var out matchBody
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/matches/"+mt.ID+"?vocabulary=simple", m.traveler, nil, &out))
	assert.Equal(t, "pending", out.Status)

	var list struct {
		Matches []matchBody `json:"matches"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/matches?status=pending", m.traveler, nil, &list))
	require.Len(t, list.Matches, 1)
	assert.Equal(t, "PROPOSED", list.Matches[0].Status)

	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet, "/matches/"+mt.ID+"?vocabulary=klingon", m.traveler, nil, nil))
}

func TestUnknownVocabularyLeavesMatchUntouched(t *testing.T) {
	m := newMarketplace(t)
	mt := m.propose(t)

	var out apiError
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodPost, "/matches/"+mt.ID+"/accept?vocabulary=bogus", m.traveler, nil, &out))
	assert.Equal(t, string(apperr.KindValidation), out.Error.Kind)

	stored, err := m.store.GetMatch(context.Background(), mt.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusProposed, stored.Status)

	var unread struct {
		Unread int `json:"unread"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/notifications/unread-count", m.sender, nil, &unread))
	assert.Equal(t, 0, unread.Unread, "no acceptance notification")

	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodPost, "/matches?vocabulary=bogus", m.sender,
		echo.Map{"package_id": m.pkgID, "trip_id": m.tripID}, nil))
	mine, err := m.store.ListMatchesForUser(context.Background(), "S1", "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestDisputeResolution(t *testing.T) {
	m := newMarketplace(t)
	mt := m.propose(t)
	path := "/matches/" + mt.ID
	require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, path+"/accept", m.traveler, nil, nil))
	require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, path+"/pay", m.sender, nil, nil))

	var out matchBody
	require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, path+"/dispute", m.sender, echo.Map{"reason": "no show"}, &out))
	assert.Equal(t, "DISPUTED", out.Status)
	assert.Equal(t, string(escrow.StateDisputedHold), out.Escrow.State)

	var queue struct {
		Disputes []matchBody `json:"disputes"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/disputes", m.arbiter, nil, &queue))
	require.Len(t, queue.Disputes, 1)
	assert.Equal(t, mt.ID, queue.Disputes[0].ID)
	assert.Equal(t, http.StatusForbidden, m.do(t, http.MethodGet, "/disputes", m.sender, nil, nil))

	var denied apiError
	assert.Equal(t, http.StatusForbidden, m.do(t, http.MethodPost, path+"/resolve", m.sender, echo.Map{"outcome": match.FavorSender}, &denied))
	assert.Equal(t, string(apperr.KindNotAuthorized), denied.Error.Kind)

	require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, path+"/resolve", m.arbiter, echo.Map{"outcome": match.FavorSender}, &out))
	assert.Equal(t, "CANCELLED", out.Status)
	assert.Equal(t, string(escrow.StateRefunded), out.Escrow.State)

	var arbiterView matchBody
	assert.Equal(t, http.StatusOK, m.do(t, http.MethodGet, path, m.arbiter, nil, &arbiterView))
	assert.Equal(t, "CANCELLED", arbiterView.Status)
}

func TestListingsAndDiscoveryFilters(t *testing.T) {
	m := newMarketplace(t)

	var mine struct {
		Trips []listing.Trip `json:"trips"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/trips/me", m.traveler, nil, &mine))
	require.Len(t, mine.Trips, 1)

	var found struct {
		Results []discovery.Candidate `json:"results"`
	}
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/discovery?role=traveler&min_reward=60", m.traveler, nil, &found))
	assert.Empty(t, found.Results)
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/discovery?role=traveler&max_weight_kg=5", m.traveler, nil, &found))
	require.Len(t, found.Results, 1)
	assert.Equal(t, m.pkgID, found.Results[0].ID)

	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/discovery?role=sender", m.traveler, nil, &found))
	assert.Empty(t, found.Results, "own trip is hidden")

	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet, "/discovery?role=sender&radius_km=abc", m.sender, nil, nil))
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet,
		"/discovery?role=sender&origin=Lagos&origin_lat=6&origin_lng=3&radius_km=NaN", m.sender, nil, nil))
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet, "/discovery?role=traveler&min_weight_kg=-Inf", m.traveler, nil, nil))
	assert.Equal(t, http.StatusBadRequest, m.do(t, http.MethodGet, "/discovery", m.sender, nil, nil))

	var denied apiError
	assert.Equal(t, http.StatusForbidden, m.do(t, http.MethodPost, "/trips/"+m.tripID+"/close", m.sender, nil, &denied))
	require.Equal(t, http.StatusOK, m.do(t, http.MethodPost, "/trips/"+m.tripID+"/close", m.traveler, nil, nil))
	require.Equal(t, http.StatusOK, m.do(t, http.MethodGet, "/discovery?role=sender", m.sender, nil, &found))
	assert.Empty(t, found.Results)
}

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:        400,
		apperr.KindNotAuthorized:     403,
		apperr.KindInvalidTransition: 409,
		apperr.KindEscrowConflict:    409,
		apperr.KindEscrowTerminal:    409,
		apperr.KindPayment:           402,
		apperr.KindNotFound:          404,
		apperr.KindUnauthenticated:   401,
		apperr.KindInternal:          500,
	}
	for kind, status := range cases {
		assert.Equal(t, status, StatusFor(kind), kind)
	}
}
