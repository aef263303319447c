package dashboard

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/repo"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// UserCounts are the headline numbers of a user's dashboard.
type UserCounts struct {
	OwnedItems      int64
	ListedItems     int64
	PendingRequests int64
	ActiveRentals   int64
}

// AdminCounts are marketplace-wide totals.
type AdminCounts struct {
	TotalItems     int64
	ListedItems    int64
	RentedItems    int64
	TotalReviews   int64
	RentalsByState map[enums.RentalStatus]int64
}

// Repository reads the projections behind both dashboards.
type Repository interface {
	RecentOwnedItems(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Item, error)
	RecentRenterRentals(ctx context.Context, renterID uuid.UUID, limit int) ([]models.Rental, error)
	RecentOwnerRentals(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Rental, error)
	UserCounts(ctx context.Context, userID uuid.UUID) (UserCounts, error)
	AdminCounts(ctx context.Context) (AdminCounts, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a read-only dashboard repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) RecentOwnedItems(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Item, error) {
	var rows []models.Item
	query := r.base.DB(ctx).Where("owner_id = ?", ownerID)
	err := repo.NewestFirst(query, "").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) RecentRenterRentals(ctx context.Context, renterID uuid.UUID, limit int) ([]models.Rental, error) {
	return r.recentRentals(ctx, "renter_id = ?", renterID, limit)
}

func (r *repository) RecentOwnerRentals(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Rental, error) {
	return r.recentRentals(ctx, "owner_id = ?", ownerID, limit)
}

func (r *repository) recentRentals(ctx context.Context, where string, userID uuid.UUID, limit int) ([]models.Rental, error) {
	var rows []models.Rental
	query := r.base.DB(ctx).Preload("Item").Where(where, userID)
	err := repo.NewestFirst(query, "").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) UserCounts(ctx context.Context, userID uuid.UUID) (UserCounts, error) {
	var counts UserCounts
	db := r.base.DB(ctx)

	if err := db.Model(&models.Item{}).Where("owner_id = ?", userID).Count(&counts.OwnedItems).Error; err != nil {
		return UserCounts{}, err
	}
	if err := db.Model(&models.Item{}).Where("owner_id = ? AND is_listed = ?", userID, true).Count(&counts.ListedItems).Error; err != nil {
		return UserCounts{}, err
	}
	if err := db.Model(&models.Rental{}).
		Where("owner_id = ? AND status = ?", userID, enums.RentalStatusPending).
		Count(&counts.PendingRequests).Error; err != nil {
		return UserCounts{}, err
	}
	if err := db.Model(&models.Rental{}).
		Where("(owner_id = ? OR renter_id = ?) AND status = ?", userID, userID, enums.RentalStatusActive).
		Count(&counts.ActiveRentals).Error; err != nil {
		return UserCounts{}, err
	}
	return counts, nil
}

func (r *repository) AdminCounts(ctx context.Context) (AdminCounts, error) {
	counts := AdminCounts{RentalsByState: map[enums.RentalStatus]int64{}}
	db := r.base.DB(ctx)

	var itemRow struct {
		Total  int64
		Listed int64
		Rented int64
	}
	if err := db.Model(&models.Item{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN is_listed THEN 1 ELSE 0 END), 0) AS listed, "+
				"COALESCE(SUM(CASE WHEN is_rented THEN 1 ELSE 0 END), 0) AS rented",
		).
		Scan(&itemRow).Error; err != nil {
		return AdminCounts{}, err
	}
	counts.TotalItems = itemRow.Total
	counts.ListedItems = itemRow.Listed
	counts.RentedItems = itemRow.Rented

	var statusRows []struct {
		Status enums.RentalStatus
		Count  int64
	}
	if err := db.Model(&models.Rental{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return AdminCounts{}, err
	}
	for _, row := range statusRows {
		counts.RentalsByState[row.Status] = row.Count
	}

	if err := db.Model(&models.Review{}).Where("is_deleted = ?", false).Count(&counts.TotalReviews).Error; err != nil {
		return AdminCounts{}, err
	}
	return counts, nil
}
