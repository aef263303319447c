package rentals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/pkg/db/dbtest"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

func seedListedItem(t *testing.T, conn *gorm.DB, price string) *models.Item {
	t.Helper()
	item := &models.Item{
		OwnerID:  uuid.New(),
		Title:    "Pressure washer",
		Price:    decimal.NewNullDecimal(decimal.RequireFromString(price)),
		IsListed: true,
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

func newSQLiteService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         client,
		Notifier:   notifications.NopNotifier{},
	})
	require.NoError(t, err)
	return svc, conn
}

func TestRepositoryTransitionStatusIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	r := NewRepository(conn)
	ctx := context.Background()
	item := seedListedItem(t, conn, "10")
	rental := &models.Rental{
		ItemID:    item.ID,
		OwnerID:   item.OwnerID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 1),
		EndDate:   day(time.January, 2),
		Status:    enums.RentalStatusPending,
	}
	require.NoError(t, r.Create(ctx, rental))

	ok, err := r.TransitionStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{"status": string(enums.RentalStatusActive)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.TransitionStatus(ctx, rental.ID, enums.RentalStatusPending, map[string]any{"status": string(enums.RentalStatusCancelled)})
	require.NoError(t, err)
	assert.False(t, ok, "a stale from-status must not match")

	stored, err := r.FindByID(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusActive, stored.Status)
	require.NotNil(t, stored.Item)
	assert.Equal(t, item.Title, stored.Item.Title)
}

func TestRepositoryListOccupyingPrunesPastAndTerminal(t *testing.T) {
	conn := dbtest.Open(t)
	r := NewRepository(conn)
	ctx := context.Background()
	item := seedListedItem(t, conn, "10")
	mk := func(status enums.RentalStatus, start, end time.Time) {
		require.NoError(t, r.Create(ctx, &models.Rental{
			ItemID: item.ID, OwnerID: item.OwnerID, RenterID: uuid.New(),
			StartDate: start, EndDate: end, Status: status,
		}))
	}
	mk(enums.RentalStatusPending, day(time.January, 1), day(time.January, 4))
	mk(enums.RentalStatusActive, day(time.January, 5), day(time.January, 10))
	mk(enums.RentalStatusCancelled, day(time.January, 6), day(time.January, 9))
	mk(enums.RentalStatusCompleted, day(time.January, 11), day(time.January, 12))

	rows, err := r.ListOccupying(ctx, item.ID, day(time.January, 5))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.RentalStatusActive, rows[0].Status)
}

func TestLifecycleOnSQLite(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	item := seedListedItem(t, conn, "10")
	renterID := uuid.New()

	requested, err := svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  renterID,
		StartDate: day(time.January, 5),
		EndDate:   day(time.January, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", requested.TotalPrice)

	_, err = svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 8),
		EndDate:   day(time.January, 12),
	})
	assert.Equal(t, pkgerrors.CodeSchedulingConflict, pkgerrors.CodeOf(err))

	_, err = svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 10),
		EndDate:   day(time.January, 11),
	})
	assert.Equal(t, pkgerrors.CodeSchedulingConflict, pkgerrors.CodeOf(err), "inclusive boundary")

	approved, err := svc.ApproveRental(ctx, requested.ID, item.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusActive, approved.Status)

	var stored models.Item
	require.NoError(t, conn.Where("id = ?", item.ID).Take(&stored).Error)
	assert.True(t, stored.IsRented)

	_, err = svc.ApproveRental(ctx, requested.ID, item.OwnerID)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	completed, err := svc.CompleteRental(ctx, requested.ID, renterID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusCompleted, completed.Status)
	assert.False(t, completed.EndDate.Before(completed.StartDate))

	require.NoError(t, conn.Where("id = ?", item.ID).Take(&stored).Error)
	assert.False(t, stored.IsRented)

	_, err = svc.CancelRental(ctx, requested.ID, item.OwnerID)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	// the completed rental no longer blocks its old window
	again, err := svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 8),
		EndDate:   day(time.January, 9),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusPending, again.Status)

	mine, err := svc.ListRenterRentals(ctx, renterID, ListRentalsInput{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, item.Title, mine.Items[0].ItemTitle)

	pending := enums.RentalStatusPending
	incoming, err := svc.ListOwnerRentals(ctx, item.OwnerID, ListRentalsInput{Status: &pending, Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, incoming.Items, 1)
	assert.Equal(t, again.ID, incoming.Items[0].ID)
}

func TestRequestRentalRollsBackOnCancelledContext(t *testing.T) {
	svc, conn := newSQLiteService(t)
	item := seedListedItem(t, conn, "10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 1),
		EndDate:   day(time.January, 2),
	})
	assert.Equal(t, pkgerrors.CodeStorageUnavailable, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, conn.Model(&models.Rental{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConcurrentApprovalsOnSQLite(t *testing.T) {
	svc, conn := newSQLiteService(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection serializes the two transactions the way row locks do on postgres
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	item := seedListedItem(t, conn, "10")
	requested, err := svc.RequestRental(ctx, RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 5),
		EndDate:   day(time.January, 7),
	})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApproveRental(ctx, requested.ID, item.OwnerID)
		}(i)
	}
	wg.Wait()

	var approved, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, rejected)

	var stored models.Rental
	require.NoError(t, conn.First(&stored, "id = ?", requested.ID).Error)
	assert.Equal(t, enums.RentalStatusActive, stored.Status)

	var reloaded models.Item
	require.NoError(t, conn.First(&reloaded, "id = ?", item.ID).Error)
	assert.True(t, reloaded.IsRented)
}
