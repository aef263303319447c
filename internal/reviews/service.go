package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/pkg/db"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

const (
	minRating      = 1
	maxRating      = 5
	maxTitleLength = 200
	maxBodyLength  = 4000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages reviews and keeps item rating aggregates in step.
type Service interface {
	SubmitReview(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error)
	EditReview(ctx context.Context, reviewID, actingUserID uuid.UUID, input EditReviewInput) (*ReviewDTO, error)
	DeleteReview(ctx context.Context, reviewID, actingUserID uuid.UUID, isAdmin bool) (*AggregateDTO, error)
	ListItemReviews(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*ReviewListResult, error)
	MyReviewForItem(ctx context.Context, itemID, reviewerID uuid.UUID) (*ReviewDTO, error)
}

// SubmitReviewInput holds a new review.
type SubmitReviewInput struct {
	ItemID     uuid.UUID
	ReviewerID uuid.UUID
	Rating     int
	Title      *string
	Body       *string
	Anonymous  bool
}

// EditReviewInput holds optional review changes.
type EditReviewInput struct {
	Rating    *int
	Title     *string
	Body      *string
	Anonymous *bool
}

// ReviewListResult is one page of public reviews.
type ReviewListResult = pagination.Page[ReviewDTO]

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService constructs the review service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, logg: logg, now: db.NowUTC}, nil
}

func (s *service) SubmitReview(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	title, err := normalizeText(input.Title, "title", maxTitleLength)
	if err != nil {
		return nil, err
	}
	body, err := normalizeText(input.Body, "body", maxBodyLength)
	if err != nil {
		return nil, err
	}

	var (
		created *models.Review
		agg     Aggregate
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockItem(ctx, input.ItemID)
		if err != nil {
			return notFoundOr(err, "item not found", "load item")
		}
		if item.OwnerID == input.ReviewerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "owners cannot review their own item")
		}

		rentalID, err := repo.LatestCompletedRental(ctx, item.ID, input.ReviewerID)
		if err != nil {
			return db.WrapStorage(err, "check review eligibility")
		}
		if rentalID == nil {
			return pkgerrors.New(pkgerrors.CodeNotEligible, "only renters with a completed rental can review this item")
		}

		if _, err := repo.FindActive(ctx, item.ID, input.ReviewerID); err == nil {
			return duplicateReview()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WrapStorage(err, "check existing review")
		}

		review := &models.Review{
			ItemID:      item.ID,
			ReviewerID:  input.ReviewerID,
			RentalID:    rentalID,
			Rating:      input.Rating,
			Title:       title,
			Body:        body,
			IsAnonymous: input.Anonymous,
		}
		if err := repo.Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateReview()
			}
			return db.WrapStorage(err, "insert review")
		}

		agg, err = recompute(ctx, repo, item.ID)
		if err != nil {
			return err
		}
		created = review
		return nil
	})
	if err != nil {
		return nil, db.WrapStorage(err, "submit review")
	}

	s.logg.Info(s.logg.WithReviewID(s.logg.WithItemID(ctx, created.ItemID.String()), created.ID.String()), "review submitted")
	dto := NewReviewDTO(created)
	dto.ItemRating = newAggregateDTO(agg)
	return &dto, nil
}

func (s *service) EditReview(ctx context.Context, reviewID, actingUserID uuid.UUID, input EditReviewInput) (*ReviewDTO, error) {
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}
	if actingUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
	}
	title, err := normalizeText(input.Title, "title", maxTitleLength)
	if err != nil {
		return nil, err
	}
	body, err := normalizeText(input.Body, "body", maxBodyLength)
	if err != nil {
		return nil, err
	}

	var (
		updated *models.Review
		agg     Aggregate
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		review, err := loadActive(ctx, repo, reviewID)
		if err != nil {
			return err
		}
		if review.ReviewerID != actingUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can edit this review")
		}
		if _, err := repo.LockItem(ctx, review.ItemID); err != nil {
			return notFoundOr(err, "item not found", "load item")
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Title != nil {
			review.Title = title
		}
		if input.Body != nil {
			review.Body = body
		}
		if input.Anonymous != nil {
			review.IsAnonymous = *input.Anonymous
		}
		review.UpdatedAt = s.now()
		if err := repo.UpdateContent(ctx, review); err != nil {
			return db.WrapStorage(err, "update review")
		}

		agg, err = recompute(ctx, repo, review.ItemID)
		if err != nil {
			return err
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, db.WrapStorage(err, "edit review")
	}

	dto := NewReviewDTO(updated)
	dto.ItemRating = newAggregateDTO(agg)
	return &dto, nil
}

// DeleteReview soft-deletes a review. Authors and administrators may delete.
func (s *service) DeleteReview(ctx context.Context, reviewID, actingUserID uuid.UUID, isAdmin bool) (*AggregateDTO, error) {
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}
	if actingUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var agg Aggregate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		review, err := loadActive(ctx, repo, reviewID)
		if err != nil {
			return err
		}
		if review.ReviewerID != actingUserID && !isAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an administrator can delete this review")
		}
		if _, err := repo.LockItem(ctx, review.ItemID); err != nil {
			return notFoundOr(err, "item not found", "load item")
		}
		if err := repo.SoftDelete(ctx, review.ID, s.now()); err != nil {
			return db.WrapStorage(err, "delete review")
		}

		agg, err = recompute(ctx, repo, review.ItemID)
		return err
	})
	if err != nil {
		return nil, db.WrapStorage(err, "delete review")
	}
	return newAggregateDTO(agg), nil
}

func (s *service) ListItemReviews(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*ReviewListResult, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := s.repo.FindItem(ctx, itemID); err != nil {
		return nil, notFoundOr(err, "item not found", "load item")
	}

	rows, next, err := s.repo.ListByItem(ctx, itemID, params.Limit, cursor)
	if err != nil {
		return nil, db.WrapStorage(err, "list reviews")
	}
	out := make([]ReviewDTO, len(rows))
	for i := range rows {
		out[i] = NewPublicReviewDTO(&rows[i])
	}
	page := pagination.NewPage(out, next)
	return &page, nil
}

func (s *service) MyReviewForItem(ctx context.Context, itemID, reviewerID uuid.UUID) (*ReviewDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if reviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	review, err := s.repo.FindActive(ctx, itemID, reviewerID)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "load review")
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

// recompute rewrites the item's count and average from its non-deleted
// reviews. Callers hold the item row lock.
func recompute(ctx context.Context, repo Repository, itemID uuid.UUID) (Aggregate, error) {
	agg, err := repo.Aggregate(ctx, itemID)
	if err != nil {
		return Aggregate{}, db.WrapStorage(err, "aggregate reviews")
	}
	if agg.Count == 0 {
		agg.Average = nil
	} else if agg.Average != nil {
		rounded, _ := decimal.NewFromFloat(*agg.Average).Round(2).Float64()
		agg.Average = &rounded
	}
	if err := repo.WriteAggregate(ctx, itemID, agg); err != nil {
		return Aggregate{}, db.WrapStorage(err, "write review aggregate")
	}
	return agg, nil
}

func loadActive(ctx context.Context, repo Repository, reviewID uuid.UUID) (*models.Review, error) {
	review, err := repo.LockByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "load review")
	}
	if review.IsDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return review, nil
}

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	return nil
}

func normalizeText(value *string, field string, limit int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return &trimmed, nil
}

func duplicateReview() error {
	return pkgerrors.New(pkgerrors.CodeDuplicate, "you have already reviewed this item")
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return db.WrapStorage(err, op)
}
