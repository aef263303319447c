package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/repo"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

// Repository defines rental persistence. Status writes go through
// TransitionStatus only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListOccupying(ctx context.Context, itemID uuid.UUID, notBefore time.Time) ([]models.Rental, error)
	Create(ctx context.Context, rental *models.Rental) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from enums.RentalStatus, updates map[string]any) (bool, error)
	SetItemRented(ctx context.Context, itemID uuid.UUID, rented bool) error
	ListByRenter(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error)
	ListByOwner(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error)
}

type listParams struct {
	UserID uuid.UUID
	Status *enums.RentalStatus
	Limit  int
	Cursor *pagination.Cursor
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

// ListOccupying returns Pending and Active rentals of the item that end on or
// after notBefore.
func (r *repository) ListOccupying(ctx context.Context, itemID uuid.UUID, notBefore time.Time) ([]models.Rental, error) {
	var rows []models.Rental
	err := r.base.DB(ctx).
		Where("item_id = ? AND status IN ? AND end_date >= ?", itemID, enums.OccupyingRentalStatuses, notBefore).
		Order("start_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, rental *models.Rental) error {
	return r.base.DB(ctx).Omit("Item").Create(rental).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := r.base.DB(ctx).Preload("Item").Where("id = ?", id).Take(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := r.base.ForUpdate(ctx).Where("id = ?", id).Take(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

// TransitionStatus applies updates only while the row still holds from. It
// reports false when another writer moved the rental first.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.RentalStatus, updates map[string]any) (bool, error) {
	result := r.base.DB(ctx).
		Model(&models.Rental{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetItemRented(ctx context.Context, itemID uuid.UUID, rented bool) error {
	return r.base.DB(ctx).
		Model(&models.Item{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"is_rented": rented}).Error
}

func (r *repository) ListByRenter(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error) {
	return r.list(ctx, "renter_id", params)
}

func (r *repository) ListByOwner(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error) {
	return r.list(ctx, "owner_id", params)
}

func (r *repository) list(ctx context.Context, column string, params listParams) ([]models.Rental, *pagination.Cursor, error) {
	query := r.base.DB(ctx).Model(&models.Rental{}).Preload("Item").Where(column+" = ?", params.UserID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	query = repo.AfterCursor(query, "", params.Cursor)

	var rows []models.Rental
	if err := repo.NewestFirst(query, "").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(rental models.Rental) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rental.CreatedAt, ID: rental.ID}
	})
	return page, next, nil
}
