package discovery

import (
	"context"

	"github.com/sudo-init-do/carrypal/internal/review"
)

// ProfileSummary is what a searcher sees about a candidate's owner.
type ProfileSummary struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}

type Profiles interface {
	Summary(ctx context.Context, userID string) ProfileSummary
}

type Names interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Ratings interface {
	Summary(ctx context.Context, userID string) (review.Summary, error)
}

// NewProfiles builds owner summaries from a name directory and review
// ratings. Lookup failures leave the corresponding fields empty.
func NewProfiles(names Names, ratings Ratings) Profiles {
	return profiles{names: names, ratings: ratings}
}

type profiles struct {
	names   Names
	ratings Ratings
}

func (p profiles) Summary(ctx context.Context, userID string) ProfileSummary {
	out := ProfileSummary{UserID: userID}
	if p.names != nil {
		if name, err := p.names.DisplayName(ctx, userID); err == nil {
			out.Name = name
		}
	}
	if p.ratings != nil {
		if sum, err := p.ratings.Summary(ctx, userID); err == nil {
			out.AverageRating = sum.AverageRating
			out.TotalReviews = sum.TotalReviews
		}
	}
	return out
}
