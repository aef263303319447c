package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
)

// ReviewDTO is the review payload. ReviewerID is omitted for anonymous
// reviews on public listings.
type ReviewDTO struct {
	ID          uuid.UUID     `json:"id"`
	ItemID      uuid.UUID     `json:"item_id"`
	ReviewerID  *uuid.UUID    `json:"reviewer_id,omitempty"`
	RentalID    *uuid.UUID    `json:"rental_id,omitempty"`
	Rating      int           `json:"rating"`
	Title       *string       `json:"title,omitempty"`
	Body        *string       `json:"body,omitempty"`
	IsAnonymous bool          `json:"is_anonymous"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ItemRating  *AggregateDTO `json:"item_rating,omitempty"`
}

// AggregateDTO is the item's rating summary after a mutation.
type AggregateDTO struct {
	ReviewCount   int64    `json:"review_count"`
	AverageRating *float64 `json:"average_rating"`
}

// NewReviewDTO builds the author's view of a review.
func NewReviewDTO(review *models.Review) ReviewDTO {
	reviewer := review.ReviewerID
	return ReviewDTO{
		ID:          review.ID,
		ItemID:      review.ItemID,
		ReviewerID:  &reviewer,
		RentalID:    review.RentalID,
		Rating:      review.Rating,
		Title:       review.Title,
		Body:        review.Body,
		IsAnonymous: review.IsAnonymous,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
	}
}

// NewPublicReviewDTO builds the public view, hiding anonymous reviewers.
func NewPublicReviewDTO(review *models.Review) ReviewDTO {
	dto := NewReviewDTO(review)
	dto.RentalID = nil
	if review.IsAnonymous {
		dto.ReviewerID = nil
	}
	return dto
}

func newAggregateDTO(agg Aggregate) *AggregateDTO {
	return &AggregateDTO{ReviewCount: agg.Count, AverageRating: agg.Average}
}
