// Package dashboard projects read-only summaries for users and administrators.
package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/internal/items"
	"github.com/bjaksic84/rentmate-backend/internal/rentals"
	"github.com/bjaksic84/rentmate-backend/pkg/db"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
)

// DefaultListSize bounds each list on the user dashboard.
const DefaultListSize = 10

// Service builds dashboard projections.
type Service interface {
	UserDashboard(ctx context.Context, userID uuid.UUID) (*UserDashboard, error)
	AdminDashboard(ctx context.Context) (*AdminDashboard, error)
}

// UserCountsDTO is the counts block of the user dashboard.
type UserCountsDTO struct {
	OwnedItems      int64 `json:"owned_items"`
	ListedItems     int64 `json:"listed_items"`
	PendingRequests int64 `json:"pending_requests"`
	ActiveRentals   int64 `json:"active_rentals"`
}

// UserDashboard summarises a user's items and rentals on both sides.
type UserDashboard struct {
	Counts         UserCountsDTO       `json:"counts"`
	OwnedItems     []items.ItemDTO     `json:"owned_items"`
	MyRentals      []rentals.RentalDTO `json:"my_rentals"`
	RentalsOnItems []rentals.RentalDTO `json:"rentals_on_my_items"`
}

// AdminDashboard holds marketplace-wide totals.
type AdminDashboard struct {
	TotalItems       int64            `json:"total_items"`
	ListedItems      int64            `json:"listed_items"`
	RentedItems      int64            `json:"rented_items"`
	RentalsPerStatus map[string]int64 `json:"rentals_per_status"`
	TotalReviews     int64            `json:"total_reviews"`
}

type service struct {
	repo     Repository
	listSize int
}

// NewService constructs the dashboard service. listSize <= 0 uses DefaultListSize.
func NewService(repo Repository, listSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if listSize <= 0 {
		listSize = DefaultListSize
	}
	return &service{repo: repo, listSize: listSize}, nil
}

func (s *service) UserDashboard(ctx context.Context, userID uuid.UUID) (*UserDashboard, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	counts, err := s.repo.UserCounts(ctx, userID)
	if err != nil {
		return nil, db.WrapStorage(err, "count dashboard totals")
	}
	owned, err := s.repo.RecentOwnedItems(ctx, userID, s.listSize)
	if err != nil {
		return nil, db.WrapStorage(err, "list owned items")
	}
	mine, err := s.repo.RecentRenterRentals(ctx, userID, s.listSize)
	if err != nil {
		return nil, db.WrapStorage(err, "list my rentals")
	}
	incoming, err := s.repo.RecentOwnerRentals(ctx, userID, s.listSize)
	if err != nil {
		return nil, db.WrapStorage(err, "list rentals on my items")
	}

	out := &UserDashboard{
		Counts: UserCountsDTO{
			OwnedItems:      counts.OwnedItems,
			ListedItems:     counts.ListedItems,
			PendingRequests: counts.PendingRequests,
			ActiveRentals:   counts.ActiveRentals,
		},
		OwnedItems:     make([]items.ItemDTO, len(owned)),
		MyRentals:      make([]rentals.RentalDTO, len(mine)),
		RentalsOnItems: make([]rentals.RentalDTO, len(incoming)),
	}
	for i := range owned {
		out.OwnedItems[i] = items.NewItemDTO(&owned[i])
	}
	for i := range mine {
		out.MyRentals[i] = rentals.NewRentalDTO(&mine[i], nil)
	}
	for i := range incoming {
		out.RentalsOnItems[i] = rentals.NewRentalDTO(&incoming[i], nil)
	}
	return out, nil
}

func (s *service) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	counts, err := s.repo.AdminCounts(ctx)
	if err != nil {
		return nil, db.WrapStorage(err, "count marketplace totals")
	}

	perStatus := make(map[string]int64, 4)
	for _, status := range []enums.RentalStatus{
		enums.RentalStatusPending,
		enums.RentalStatusActive,
		enums.RentalStatusCompleted,
		enums.RentalStatusCancelled,
	} {
		perStatus[status.String()] = counts.RentalsByState[status]
	}

	return &AdminDashboard{
		TotalItems:       counts.TotalItems,
		ListedItems:      counts.ListedItems,
		RentedItems:      counts.RentedItems,
		RentalsPerStatus: perStatus,
		TotalReviews:     counts.TotalReviews,
	}, nil
}
