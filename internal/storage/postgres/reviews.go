package postgres

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/carrypal/internal/review"
)

func (s *Store) CreateReview(ctx context.Context, r review.Review) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (id, match_id, reviewer_id, reviewee_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.MatchID, r.ReviewerID, r.RevieweeID, r.Rating, r.Comment, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return review.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *Store) ListReviews(ctx context.Context, revieweeID string, limit, offset int) ([]review.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, match_id, reviewer_id, reviewee_id, rating, comment, created_at
		 FROM reviews
		 WHERE reviewee_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		revieweeID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []review.Review
	for rows.Next() {
		var r review.Review
		if err := rows.Scan(&r.ID, &r.MatchID, &r.ReviewerID, &r.RevieweeID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RatingSummary aggregates in SQL; only the per-rating counts come back.
func (s *Store) RatingSummary(ctx context.Context, userID string) (review.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE reviewee_id = $1 GROUP BY rating`,
		userID,
	)
	if err != nil {
		return review.Summary{}, fmt.Errorf("rating breakdown: %w", err)
	}
	defer rows.Close()

	var expanded []review.Review
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return review.Summary{}, fmt.Errorf("scan rating: %w", err)
		}
		for i := 0; i < count; i++ {
			expanded = append(expanded, review.Review{Rating: rating})
		}
	}
	if err := rows.Err(); err != nil {
		return review.Summary{}, err
	}
	return review.Summarize(userID, expanded), nil
}
