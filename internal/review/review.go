package review

import (
	"context"
	"errors"
	"math"
	"time"
)

var ErrDuplicate = errors.New("review already exists")

// Review is one party's rating of the other after a completed match.
type Review struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is the aggregated rating data for one user.
type Summary struct {
	UserID        string  `json:"user_id"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

// Summarize aggregates the reviews a user received.
func Summarize(userID string, reviews []Review) Summary {
	s := Summary{UserID: userID}
	total := 0
	for _, r := range reviews {
		switch r.Rating {
		case 5:
			s.RatingCounts.FiveStar++
		case 4:
			s.RatingCounts.FourStar++
		case 3:
			s.RatingCounts.ThreeStar++
		case 2:
			s.RatingCounts.TwoStar++
		case 1:
			s.RatingCounts.OneStar++
		default:
			continue
		}
		s.TotalReviews++
		total += r.Rating
	}
	if s.TotalReviews > 0 {
		s.AverageRating = math.Round(float64(total)/float64(s.TotalReviews)*100) / 100
	}
	return s
}

// Store persists reviews. CreateReview returns ErrDuplicate when the reviewer
// already rated this match.
type Store interface {
	CreateReview(ctx context.Context, r Review) error
	ListReviews(ctx context.Context, revieweeID string, limit, offset int) ([]Review, error)
	RatingSummary(ctx context.Context, userID string) (Summary, error)
}
