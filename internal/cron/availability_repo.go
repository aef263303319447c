package cron

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/repo"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// AvailabilityRepository finds and repairs items whose rented flag disagrees
// with their rentals.
type AvailabilityRepository interface {
	WithTx(tx *gorm.DB) AvailabilityRepository
	FindDrifted(ctx context.Context, limit int) ([]uuid.UUID, error)
	LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	HasActiveRental(ctx context.Context, itemID uuid.UUID) (bool, error)
	SetRented(ctx context.Context, itemID uuid.UUID, rented bool) error
}

type availabilityRepository struct {
	base repo.Base
}

// NewAvailabilityRepository builds the reconciliation repository.
func NewAvailabilityRepository(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepository{base: repo.NewBase(db)}
}

func (r *availabilityRepository) WithTx(tx *gorm.DB) AvailabilityRepository {
	if tx == nil {
		return r
	}
	return &availabilityRepository{base: r.base.Bind(tx)}
}

const activeRentalExists = "EXISTS (SELECT 1 FROM rentals WHERE rentals.item_id = items.id AND rentals.status = ?)"

func (r *availabilityRepository) FindDrifted(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.Item{}).
		Where(
			"(is_rented = ? AND NOT "+activeRentalExists+") OR (is_rented = ? AND "+activeRentalExists+")",
			true, enums.RentalStatusActive, false, enums.RentalStatusActive,
		).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *availabilityRepository) LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return r.base.LockItem(ctx, itemID)
}

func (r *availabilityRepository) HasActiveRental(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.Rental{}).
		Where("item_id = ? AND status = ?", itemID, enums.RentalStatusActive).
		Count(&count).Error
	return count > 0, err
}

func (r *availabilityRepository) SetRented(ctx context.Context, itemID uuid.UUID, rented bool) error {
	return r.base.DB(ctx).
		Model(&models.Item{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"is_rented": rented}).Error
}
