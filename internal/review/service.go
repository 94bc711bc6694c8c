package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/match"
)

// Matches looks up the match a review is written against.
type Matches interface {
	GetMatch(ctx context.Context, id string) (match.Match, error)
}

type Service struct {
	store   Store
	matches Matches
	now     func() time.Time
}

func NewService(store Store, matches Matches) *Service {
	return &Service{store: store, matches: matches, now: time.Now}
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create records reviewerID's rating of the other party to a completed match.
func (s *Service) Create(ctx context.Context, matchID, reviewerID string, req CreateReviewRequest) (Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return Review{}, apperr.Validation("rating must be between 1 and 5")
	}
	if len(req.Comment) > 1000 {
		return Review{}, apperr.Validation("comment too long (max 1000 characters)")
	}

	m, err := s.matches.GetMatch(ctx, matchID)
	if errors.Is(err, match.ErrNotFound) {
		return Review{}, apperr.NotFound("match not found")
	}
	if err != nil {
		return Review{}, apperr.Wrap(apperr.KindInternal, err, "failed to fetch match")
	}
	if !m.IsParty(reviewerID) {
		return Review{}, apperr.NotAuthorized("only the sender or traveler can review this match")
	}
	if m.Status != match.StatusCompleted {
		return Review{}, apperr.Validation("can only review completed matches")
	}

	reviewee := m.TravelerID
	if reviewerID == m.TravelerID {
		reviewee = m.SenderID
	}
	r := Review{
		ID:         uuid.NewString(),
		MatchID:    m.ID,
		ReviewerID: reviewerID,
		RevieweeID: reviewee,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
		CreatedAt:  s.now().UTC(),
	}
	err = s.store.CreateReview(ctx, r)
	if errors.Is(err, ErrDuplicate) {
		return Review{}, apperr.New(apperr.KindValidation, "you already reviewed this match")
	}
	if err != nil {
		return Review{}, apperr.Wrap(apperr.KindInternal, err, "failed to create review")
	}
	return r, nil
}

// ForUser returns a page of the reviews userID received, newest first.
func (s *Service) ForUser(ctx context.Context, userID string, page, limit int) ([]Review, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	out, err := s.store.ListReviews(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch reviews")
	}
	return out, nil
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	sum, err := s.store.RatingSummary(ctx, userID)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindInternal, err, "failed to fetch rating summary")
	}
	return sum, nil
}
