package memory

import (
	"context"

	"github.com/sudo-init-do/carrypal/internal/review"
)

func (s *Store) CreateReview(_ context.Context, r review.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.MatchID == r.MatchID && existing.ReviewerID == r.ReviewerID {
			return review.ErrDuplicate
		}
	}
	s.reviews = append(s.reviews, r)
	return nil
}

func (s *Store) ListReviews(_ context.Context, revieweeID string, limit, offset int) ([]review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []review.Review
	skipped := 0
	for i := len(s.reviews) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.reviews[i]
		if r.RevieweeID != revieweeID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) RatingSummary(_ context.Context, userID string) (review.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var received []review.Review
	for _, r := range s.reviews {
		if r.RevieweeID == userID {
			received = append(received, r)
		}
	}
	return review.Summarize(userID, received), nil
}
