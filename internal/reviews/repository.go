package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/repo"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

// Aggregate is the derived rating summary of an item.
type Aggregate struct {
	Count   int64
	Average *float64
}

// Repository defines review persistence and aggregate maintenance.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	LatestCompletedRental(ctx context.Context, itemID, renterID uuid.UUID) (*uuid.UUID, error)
	FindActive(ctx context.Context, itemID, reviewerID uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	LockByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	UpdateContent(ctx context.Context, review *models.Review) error
	SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error
	Aggregate(ctx context.Context, itemID uuid.UUID) (Aggregate, error)
	WriteAggregate(ctx context.Context, itemID uuid.UUID, agg Aggregate) error
	ListByItem(ctx context.Context, itemID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Bind(tx)}
}

func (r *repository) LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return r.base.LockItem(ctx, itemID)
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return r.base.FindItem(ctx, itemID)
}

// LatestCompletedRental returns the most recent Completed rental of the item
// by renterID, or nil when there is none.
func (r *repository) LatestCompletedRental(ctx context.Context, itemID, renterID uuid.UUID) (*uuid.UUID, error) {
	var rental models.Rental
	err := r.base.DB(ctx).
		Select("id").
		Where("item_id = ? AND renter_id = ? AND status = ?", itemID, renterID, enums.RentalStatusCompleted).
		Order("end_date DESC").
		Take(&rental).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rental.ID, nil
}

func (r *repository) FindActive(ctx context.Context, itemID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.base.DB(ctx).
		Where("item_id = ? AND reviewer_id = ? AND is_deleted = ?", itemID, reviewerID, false).
		Take(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.base.DB(ctx).Create(review).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.base.ForUpdate(ctx).Where("id = ?", id).Take(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) UpdateContent(ctx context.Context, review *models.Review) error {
	return r.base.DB(ctx).
		Model(review).
		Select("rating", "title", "body", "is_anonymous", "updated_at").
		Updates(review).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Review{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": now}).Error
}

// Aggregate counts and averages the item's non-deleted reviews.
func (r *repository) Aggregate(ctx context.Context, itemID uuid.UUID) (Aggregate, error) {
	var row struct {
		Count   int64
		Average *float64
	}
	err := r.base.DB(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(CAST(rating AS DOUBLE PRECISION)) AS average").
		Where("item_id = ? AND is_deleted = ?", itemID, false).
		Scan(&row).Error
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Count: row.Count, Average: row.Average}, nil
}

func (r *repository) WriteAggregate(ctx context.Context, itemID uuid.UUID, agg Aggregate) error {
	return r.base.DB(ctx).
		Model(&models.Item{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"review_count":   agg.Count,
			"average_rating": agg.Average,
		}).Error
}

func (r *repository) ListByItem(ctx context.Context, itemID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	query := r.base.DB(ctx).Model(&models.Review{}).Where("item_id = ? AND is_deleted = ?", itemID, false)
	query = repo.AfterCursor(query, "", cursor)

	var rows []models.Review
	if err := repo.NewestFirst(query, "").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(review models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: review.CreatedAt, ID: review.ID}
	})
	return page, next, nil
}
