package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/match"
	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/user"
)

func seedMatch(t *testing.T, s *Store, id, pkg, trip string) match.Match {
	t.Helper()
	m := match.Match{ID: id, PackageID: pkg, TripID: trip, SenderID: "s1", TravelerID: "t1", Status: match.StatusProposed, CreatedAt: time.Now()}
	require.NoError(t, s.CreateMatch(context.Background(), m, match.Transition{MatchID: id, To: match.StatusProposed}))
	return m
}

func TestUpdateMatch_ErrorLeavesMatchUntouched(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "p1", "t1")
	boom := errors.New("boom")

	_, err := s.UpdateMatch(context.Background(), "m1", func(m *match.Match) (match.Transition, error) {
		m.Status = match.StatusAccepted
		return match.Transition{}, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, match.StatusProposed, got.Status)
	h, _ := s.MatchHistory(context.Background(), "m1")
	assert.Len(t, h, 1)
}

func TestUpdateMatch_CommitsAndRecordsHistory(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "p1", "t1")

	got, err := s.UpdateMatch(context.Background(), "m1", func(m *match.Match) (match.Transition, error) {
		m.Status = match.StatusAccepted
		return match.Transition{MatchID: m.ID, From: match.StatusProposed, To: match.StatusAccepted}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, match.StatusAccepted, got.Status)

	h, err := s.MatchHistory(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, match.StatusAccepted, h[1].To)
}

func TestUpdateMatch_UnknownID(t *testing.T) {
	_, err := New().UpdateMatch(context.Background(), "nope", func(*match.Match) (match.Transition, error) {
		return match.Transition{}, nil
	})
	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestUpdateMatch_SerializesPerMatch(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "p1", "t1")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.UpdateMatch(context.Background(), "m1", func(m *match.Match) (match.Transition, error) {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return match.Transition{}, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestCreateMatch_RejectsSecondActiveMatch(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "p1", "t1")

	err := s.CreateMatch(context.Background(), match.Match{ID: "m2", PackageID: "p1", TripID: "t2", Status: match.StatusProposed}, match.Transition{})
	assert.ErrorIs(t, err, match.ErrActiveExists)

	_, err = s.UpdateMatch(context.Background(), "m1", func(m *match.Match) (match.Transition, error) {
		m.Status = match.StatusCancelled
		return match.Transition{}, nil
	})
	require.NoError(t, err)
	assert.NoError(t, s.CreateMatch(context.Background(), match.Match{ID: "m2", PackageID: "p1", TripID: "t2", Status: match.StatusProposed}, match.Transition{}))
}

func TestOpenListings_SkipClosedAndMatched(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.CreateTrip(ctx, listing.Trip{ID: id, Status: listing.StatusOpen}))
	}
	require.NoError(t, s.SetTripStatus(ctx, "t2", listing.StatusClosed))
	seedMatch(t, s, "m1", "p1", "t3")

	open, err := s.OpenTrips(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t1", open[0].ID)

	assert.ErrorIs(t, s.SetTripStatus(ctx, "missing", listing.StatusClosed), listing.ErrNotFound)
}

func TestDeliveredBefore(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedMatch(t, s, "m1", "p1", "t1")
	seedMatch(t, s, "m2", "p2", "t2")
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"m1", "m2"} {
		at := old
		if id == "m2" {
			at = old.Add(48 * time.Hour)
		}
		_, err := s.UpdateMatch(ctx, id, func(m *match.Match) (match.Transition, error) {
			m.Status = match.StatusDelivered
			m.DeliveredAt = &at
			return match.Transition{}, nil
		})
		require.NoError(t, err)
	}

	ids, err := s.DeliveredBefore(ctx, old.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}

func TestNotifications_InboxAndReadFlag(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AppendNotifications(ctx, []notify.Notification{
		{ID: "n1", UserID: "u1"},
		{ID: "n2", UserID: "u2"},
		{ID: "n3", UserID: "u1"},
	}))

	inbox, err := s.ListNotifications(ctx, "u1", false, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "n3", inbox[0].ID)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u2", "n1"), notify.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, "u1", "n1"))

	unread, err := s.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	inbox, err = s.ListNotifications(ctx, "u1", true, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "n3", inbox[0].ID)
}

func TestReviews_DuplicateAndSummary(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateReview(ctx, review.Review{ID: "r1", MatchID: "m1", ReviewerID: "s1", RevieweeID: "t1", Rating: 5}))
	require.NoError(t, s.CreateReview(ctx, review.Review{ID: "r2", MatchID: "m2", ReviewerID: "s2", RevieweeID: "t1", Rating: 4}))
	assert.ErrorIs(t, s.CreateReview(ctx, review.Review{ID: "r3", MatchID: "m1", ReviewerID: "s1", RevieweeID: "t1", Rating: 1}), review.ErrDuplicate)

	sum, err := s.RatingSummary(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalReviews)
	assert.Equal(t, 4.5, sum.AverageRating)

	page, err := s.ListReviews(ctx, "t1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r1", page[0].ID)
}

func TestUsers_UpsertKeepsRole(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, user.User{ID: "u1", Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, s.SetRole(ctx, "u1", user.RoleArbiter))

	u, err := s.UpsertUser(ctx, user.User{ID: "u1", Bio: "hi", Role: user.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "hi", u.Bio)
	assert.Equal(t, user.RoleArbiter, u.Role)

	assert.ErrorIs(t, s.SetRole(ctx, "ghost", user.RoleArbiter), user.ErrNotFound)
}
