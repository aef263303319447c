package rentals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// memRepo keeps rentals and items in maps and honors the conditional update.
type memRepo struct {
	items     map[uuid.UUID]*models.Item
	rentals   map[uuid.UUID]*models.Rental
	loadErr   error
	staleNext bool
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[uuid.UUID]*models.Item{}, rentals: map[uuid.UUID]*models.Rental{}}
}

func (r *memRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *memRepo) LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	item, ok := r.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *memRepo) ListOccupying(ctx context.Context, itemID uuid.UUID, notBefore time.Time) ([]models.Rental, error) {
	var out []models.Rental
	for _, rental := range r.rentals {
		if rental.ItemID == itemID && rental.Status.Occupies() && !rental.EndDate.Before(notBefore) {
			out = append(out, *rental)
		}
	}
	return out, nil
}

func (r *memRepo) Create(ctx context.Context, rental *models.Rental) error {
	if rental.ID == uuid.Nil {
		rental.ID = uuid.New()
	}
	clone := *rental
	r.rentals[rental.ID] = &clone
	return nil
}

func (r *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	rental, ok := r.rentals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *rental
	clone.Item = r.items[rental.ItemID]
	return &clone, nil
}

func (r *memRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	rental, ok := r.rentals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *rental
	return &clone, nil
}

func (r *memRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.RentalStatus, updates map[string]any) (bool, error) {
	rental, ok := r.rentals[id]
	if !ok || rental.Status != from || r.staleNext {
		r.staleNext = false
		return false, nil
	}
	rental.Status = enums.RentalStatus(updates["status"].(string))
	if end, ok := updates["end_date"].(time.Time); ok {
		rental.EndDate = end
	}
	return true, nil
}

func (r *memRepo) SetItemRented(ctx context.Context, itemID uuid.UUID, rented bool) error {
	r.items[itemID].IsRented = rented
	return nil
}

func (r *memRepo) ListByRenter(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (r *memRepo) ListByOwner(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (r *memRepo) addItem(price string) *models.Item {
	item := &models.Item{ID: uuid.New(), OwnerID: uuid.New(), Title: "Camping tent", IsListed: true}
	if price != "" {
		item.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	r.items[item.ID] = item
	return item
}

func (r *memRepo) addRental(item *models.Item, renterID uuid.UUID, status enums.RentalStatus, start, end time.Time) *models.Rental {
	rental := &models.Rental{
		ID:        uuid.New(),
		ItemID:    item.ID,
		OwnerID:   item.OwnerID,
		RenterID:  renterID,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	r.rentals[rental.ID] = rental
	return rental
}

type sentNotification struct {
	userID  uuid.UUID
	event   enums.NotificationEvent
	payload any
}

type recordingNotifier struct {
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload any) {
	n.sent = append(n.sent, sentNotification{userID: userID, event: event, payload: payload})
}

type fixture struct {
	repo     *memRepo
	notifier *recordingNotifier
	svc      Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, time.January, 20, 15, 30, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repository: f.repo,
		Tx:         stubTxRunner{},
		Notifier:   f.notifier,
		Metrics:    metrics.NewRentalMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.(*service).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s (%v)", code, got, err)
	}
}

func TestRequestRentalPricesTwoDays(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	renterID := uuid.New()

	dto, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:     item.ID,
		RenterID:   renterID,
		RenterName: "Riley",
		StartDate:  day(time.January, 1),
		EndDate:    day(time.January, 3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.TotalPrice != "20.00" || dto.RentalDays != 2 {
		t.Fatalf("expected 2 days for 20.00, got %d days for %s", dto.RentalDays, dto.TotalPrice)
	}
	if dto.Status != enums.RentalStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if dto.OwnerID != item.OwnerID || dto.ItemTitle != item.Title {
		t.Fatalf("unexpected rental %+v", dto)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
	}
	sent := f.notifier.sent[0]
	if sent.userID != item.OwnerID || sent.event != enums.NotificationEventRentalRequested {
		t.Fatalf("unexpected notification %+v", sent)
	}
	payload, ok := sent.payload.(notifications.RentalRequestedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", sent.payload)
	}
	if payload.RentalID != dto.ID || payload.RenterID != renterID || payload.RenterName != "Riley" || payload.TotalPrice != "20.00" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRequestRentalSameDayFloorAndNullPrice(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("")

	dto, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 1).Add(9 * time.Hour),
		EndDate:   day(time.January, 1).Add(17 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.RentalDays != 1 || dto.TotalPrice != "0.00" {
		t.Fatalf("expected 1 day at 0.00, got %d at %s", dto.RentalDays, dto.TotalPrice)
	}
	if !dto.StartDate.Equal(day(time.January, 1)) {
		t.Fatalf("expected start truncated to date, got %s", dto.StartDate)
	}
}

func TestRequestRentalSchedulingConflict(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	existing := f.repo.addRental(item, uuid.New(), enums.RentalStatusPending, day(time.January, 5), day(time.January, 10))

	_, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 8),
		EndDate:   day(time.January, 12),
	})
	expectCode(t, err, pkgerrors.CodeSchedulingConflict)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected conflict details, got %T", pkgerrors.As(err).Details())
	}
	conflicts, ok := details["conflicts"].([]Conflict)
	if !ok || len(conflicts) != 1 || conflicts[0].RentalID != existing.ID {
		t.Fatalf("unexpected conflicts %+v", details["conflicts"])
	}
	if len(f.notifier.sent) != 0 {
		t.Fatal("rejected requests must not notify")
	}
}

func TestRequestRentalIgnoresCancelledWindow(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	f.repo.addRental(item, uuid.New(), enums.RentalStatusCancelled, day(time.January, 5), day(time.January, 10))

	if _, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 8),
		EndDate:   day(time.January, 12),
	}); err != nil {
		t.Fatalf("cancelled rentals must not block: %v", err)
	}
}

func TestRequestRentalRejections(t *testing.T) {
	f := newFixture(t)
	listed := f.repo.addItem("10")
	unlisted := f.repo.addItem("10")
	unlisted.IsListed = false

	cases := []struct {
		name  string
		input RequestRentalInput
		code  pkgerrors.Code
	}{
		{
			name:  "missingItem",
			input: RequestRentalInput{ItemID: uuid.New(), RenterID: uuid.New(), StartDate: day(time.January, 1), EndDate: day(time.January, 2)},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name:  "unlisted",
			input: RequestRentalInput{ItemID: unlisted.ID, RenterID: uuid.New(), StartDate: day(time.January, 1), EndDate: day(time.January, 2)},
			code:  pkgerrors.CodeNotAvailable,
		},
		{
			name:  "selfRental",
			input: RequestRentalInput{ItemID: listed.ID, RenterID: listed.OwnerID, StartDate: day(time.January, 1), EndDate: day(time.January, 2)},
			code:  pkgerrors.CodeSelfRental,
		},
		{
			name:  "endBeforeStart",
			input: RequestRentalInput{ItemID: listed.ID, RenterID: uuid.New(), StartDate: day(time.January, 3), EndDate: day(time.January, 2)},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "missingDates",
			input: RequestRentalInput{ItemID: listed.ID, RenterID: uuid.New()},
			code:  pkgerrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestRental(context.Background(), tc.input)
			expectCode(t, err, tc.code)
		})
	}
}

func TestRequestRentalRejectsTotalBeyondColumn(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10000")
	start := day(time.January, 1)

	_, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 1_000_000),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(f.repo.rentals) != 0 {
		t.Fatalf("expected no rental to be stored, got %d", len(f.repo.rentals))
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %d", len(f.notifier.sent))
	}
}

func TestRequestRentalStorageFailure(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	f.repo.loadErr = context.DeadlineExceeded

	_, err := f.svc.RequestRental(context.Background(), RequestRentalInput{
		ItemID:    item.ID,
		RenterID:  uuid.New(),
		StartDate: day(time.January, 1),
		EndDate:   day(time.January, 2),
	})
	expectCode(t, err, pkgerrors.CodeStorageUnavailable)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the cause to be kept, got %v", err)
	}
}

func TestApproveRentalActivatesAndNotifiesRenter(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	renterID := uuid.New()
	rental := f.repo.addRental(item, renterID, enums.RentalStatusPending, day(time.January, 1), day(time.January, 3))

	dto, err := f.svc.ApproveRental(context.Background(), rental.ID, item.OwnerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Status != enums.RentalStatusActive {
		t.Fatalf("expected active, got %s", dto.Status)
	}
	if !f.repo.items[item.ID].IsRented {
		t.Fatal("expected item marked rented")
	}
	if !dto.UpdatedAt.Equal(f.now) {
		t.Fatalf("expected updated_at stamped, got %s", dto.UpdatedAt)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != renterID {
		t.Fatalf("expected renter notification, got %+v", f.notifier.sent)
	}
	payload := f.notifier.sent[0].payload.(notifications.RentalStatusChangedPayload)
	if payload.PreviousStatus != enums.RentalStatusPending || payload.Status != enums.RentalStatusActive {
		t.Fatalf("unexpected payload %+v", payload)
	}

	// a second approval is rejected and leaves state alone
	_, err = f.svc.ApproveRental(context.Background(), rental.ID, item.OwnerID)
	expectCode(t, err, pkgerrors.CodeInvalidTransition)
	if f.repo.rentals[rental.ID].Status != enums.RentalStatusActive || !f.repo.items[item.ID].IsRented {
		t.Fatal("state changed by a rejected approval")
	}
	if len(f.notifier.sent) != 1 {
		t.Fatal("rejected approval must not notify")
	}
}

func TestApproveRentalRules(t *testing.T) {
	t.Run("onlyOwner", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		renterID := uuid.New()
		rental := f.repo.addRental(item, renterID, enums.RentalStatusPending, day(time.January, 1), day(time.January, 3))
		_, err := f.svc.ApproveRental(context.Background(), rental.ID, renterID)
		expectCode(t, err, pkgerrors.CodeForbidden)
	})
	t.Run("notFound", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApproveRental(context.Background(), uuid.New(), uuid.New())
		expectCode(t, err, pkgerrors.CodeNotFound)
	})
	t.Run("itemAlreadyRented", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		item.IsRented = true
		rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusPending, day(time.March, 1), day(time.March, 3))
		_, err := f.svc.ApproveRental(context.Background(), rental.ID, item.OwnerID)
		expectCode(t, err, pkgerrors.CodeNotAvailable)
		if f.repo.rentals[rental.ID].Status != enums.RentalStatusPending {
			t.Fatal("rental must stay pending")
		}
	})
	t.Run("itemUnlisted", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		item.IsListed = false
		rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusPending, day(time.March, 1), day(time.March, 3))
		_, err := f.svc.ApproveRental(context.Background(), rental.ID, item.OwnerID)
		expectCode(t, err, pkgerrors.CodeNotAvailable)
	})
	t.Run("lostRace", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusPending, day(time.March, 1), day(time.March, 3))
		f.repo.staleNext = true
		_, err := f.svc.ApproveRental(context.Background(), rental.ID, item.OwnerID)
		expectCode(t, err, pkgerrors.CodeInvalidTransition)
		if f.repo.items[item.ID].IsRented {
			t.Fatal("item must not be marked rented when the update lost")
		}
	})
}

func TestCompleteRentalReleasesItem(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	item.IsRented = true
	renterID := uuid.New()
	rental := f.repo.addRental(item, renterID, enums.RentalStatusActive, day(time.January, 10), day(time.January, 25))

	dto, err := f.svc.CompleteRental(context.Background(), rental.ID, renterID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Status != enums.RentalStatusCompleted {
		t.Fatalf("expected completed, got %s", dto.Status)
	}
	if f.repo.items[item.ID].IsRented {
		t.Fatal("expected item released")
	}
	if !dto.EndDate.Equal(f.now) || !f.repo.rentals[rental.ID].EndDate.Equal(f.now) {
		t.Fatalf("expected end date set to completion time, got %s", dto.EndDate)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != renterID {
		t.Fatalf("expected renter notification, got %+v", f.notifier.sent)
	}
}

func TestCompleteRentalNeverEndsBeforeStart(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	item.IsRented = true
	rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusActive, day(time.February, 1), day(time.February, 5))

	dto, err := f.svc.CompleteRental(context.Background(), rental.ID, item.OwnerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.EndDate.Before(dto.StartDate) {
		t.Fatalf("end %s before start %s", dto.EndDate, dto.StartDate)
	}
}

func TestCompleteRentalRules(t *testing.T) {
	for _, status := range []enums.RentalStatus{enums.RentalStatusPending, enums.RentalStatusCompleted, enums.RentalStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			item := f.repo.addItem("10")
			rental := f.repo.addRental(item, uuid.New(), status, day(time.January, 1), day(time.January, 3))
			_, err := f.svc.CompleteRental(context.Background(), rental.ID, item.OwnerID)
			expectCode(t, err, pkgerrors.CodeInvalidTransition)
		})
	}
	t.Run("stranger", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusActive, day(time.January, 1), day(time.January, 3))
		_, err := f.svc.CompleteRental(context.Background(), rental.ID, uuid.New())
		expectCode(t, err, pkgerrors.CodeForbidden)
	})
}

func TestCancelCompletedRentalIsInvalid(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	item.IsRented = true
	rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusCompleted, day(time.January, 1), day(time.January, 3))

	_, err := f.svc.CancelRental(context.Background(), rental.ID, item.OwnerID)
	expectCode(t, err, pkgerrors.CodeInvalidTransition)
	if !f.repo.items[item.ID].IsRented {
		t.Fatal("item availability must be unchanged")
	}
}

func TestCancelRental(t *testing.T) {
	t.Run("activeReleasesItemAndNotifiesCounterparty", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		item.IsRented = true
		renterID := uuid.New()
		rental := f.repo.addRental(item, renterID, enums.RentalStatusActive, day(time.January, 1), day(time.January, 3))

		dto, err := f.svc.CancelRental(context.Background(), rental.ID, renterID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dto.Status != enums.RentalStatusCancelled || f.repo.items[item.ID].IsRented {
			t.Fatalf("expected cancelled and released, got %s rented=%v", dto.Status, f.repo.items[item.ID].IsRented)
		}
		if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != item.OwnerID {
			t.Fatalf("expected owner notification, got %+v", f.notifier.sent)
		}
	})
	t.Run("pendingKeepsOtherActiveRental", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		item.IsRented = true
		f.repo.addRental(item, uuid.New(), enums.RentalStatusActive, day(time.January, 1), day(time.January, 3))
		renterID := uuid.New()
		pending := f.repo.addRental(item, renterID, enums.RentalStatusPending, day(time.February, 1), day(time.February, 3))

		if _, err := f.svc.CancelRental(context.Background(), pending.ID, item.OwnerID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.repo.items[item.ID].IsRented {
			t.Fatal("cancelling a pending rental must not release the active one")
		}
		if f.notifier.sent[0].userID != renterID {
			t.Fatal("expected renter notification")
		}
	})
	t.Run("alreadyCancelled", func(t *testing.T) {
		f := newFixture(t)
		item := f.repo.addItem("10")
		rental := f.repo.addRental(item, uuid.New(), enums.RentalStatusCancelled, day(time.January, 1), day(time.January, 3))
		_, err := f.svc.CancelRental(context.Background(), rental.ID, item.OwnerID)
		expectCode(t, err, pkgerrors.CodeInvalidTransition)
	})
}

func TestGetRentalParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	item := f.repo.addItem("10")
	renterID := uuid.New()
	rental := f.repo.addRental(item, renterID, enums.RentalStatusPending, day(time.January, 1), day(time.January, 3))

	dto, err := f.svc.GetRental(context.Background(), rental.ID, renterID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.ItemTitle != item.Title {
		t.Fatalf("expected item title, got %q", dto.ItemTitle)
	}

	_, err = f.svc.GetRental(context.Background(), rental.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestListRentalsRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	status := enums.RentalStatus("archived")
	_, err := f.svc.ListOwnerRentals(context.Background(), uuid.New(), ListRentalsInput{Status: &status})
	expectCode(t, err, pkgerrors.CodeValidation)
}
