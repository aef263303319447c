package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/pkg/db"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

const (
	commandRequest  = "request"
	commandApprove  = "approve"
	commandComplete = "complete"
	commandCancel   = "cancel"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the rental lifecycle.
type Service interface {
	RequestRental(ctx context.Context, input RequestRentalInput) (*RentalDTO, error)
	ApproveRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error)
	CompleteRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error)
	CancelRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error)
	GetRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error)
	ListRenterRentals(ctx context.Context, renterID uuid.UUID, input ListRentalsInput) (*RentalListResult, error)
	ListOwnerRentals(ctx context.Context, ownerID uuid.UUID, input ListRentalsInput) (*RentalListResult, error)
}

// RequestRentalInput carries a renter's booking request. Dates are truncated
// to UTC calendar days.
type RequestRentalInput struct {
	ItemID     uuid.UUID
	RenterID   uuid.UUID
	RenterName string
	StartDate  time.Time
	EndDate    time.Time
}

// ListRentalsInput filters a rental listing.
type ListRentalsInput struct {
	Status     *enums.RentalStatus
	Pagination pagination.Params
}

// RentalListResult is one page of rentals.
type RentalListResult = pagination.Page[RentalDTO]

// ServiceParams bundles the lifecycle dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Notifier   notifications.Notifier
	Metrics    *metrics.RentalMetrics
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier notifications.Notifier
	metrics  *metrics.RentalMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NopNotifier{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      db.NowUTC,
	}, nil
}

func (s *service) RequestRental(ctx context.Context, input RequestRentalInput) (*RentalDTO, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.RenterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required")
	}
	start, end := DateOf(input.StartDate), DateOf(input.EndDate)
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}

	var (
		created *models.Rental
		item    *models.Item
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockItem(ctx, input.ItemID)
		if err != nil {
			return notFoundOr(err, "item not found", "load item")
		}
		if !locked.IsListed {
			return pkgerrors.New(pkgerrors.CodeNotAvailable, "item is not listed")
		}
		if locked.OwnerID == input.RenterID {
			return pkgerrors.New(pkgerrors.CodeSelfRental, "owners cannot rent their own item")
		}

		existing, err := repo.ListOccupying(ctx, locked.ID, start)
		if err != nil {
			return db.WrapStorage(err, "load item rentals")
		}
		if conflicts := FindConflicts(existing, start, end); len(conflicts) > 0 {
			return pkgerrors.New(pkgerrors.CodeSchedulingConflict, "requested dates overlap an existing rental").
				WithDetails(map[string]any{"conflicts": conflicts})
		}

		total := TotalPrice(locked.DailyPrice(), RentalDays(start, end))
		if err := checkTotal(total); err != nil {
			return err
		}

		rental := &models.Rental{
			ItemID:     locked.ID,
			OwnerID:    locked.OwnerID,
			RenterID:   input.RenterID,
			StartDate:  start,
			EndDate:    end,
			Status:     enums.RentalStatusPending,
			TotalPrice: total,
		}
		if err := repo.Create(ctx, rental); err != nil {
			return db.WrapStorage(err, "insert rental")
		}
		created, item = rental, locked
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, commandRequest, err)
	}

	s.metrics.IncTransition("", string(enums.RentalStatusPending))
	s.logg.Info(s.logg.WithRentalID(ctx, created.ID.String()), "rental requested")
	s.notifier.Notify(ctx, created.OwnerID, enums.NotificationEventRentalRequested, notifications.RentalRequestedPayload{
		RentalID:   created.ID,
		ItemID:     item.ID,
		ItemTitle:  item.Title,
		RenterID:   created.RenterID,
		RenterName: input.RenterName,
		StartDate:  created.StartDate,
		EndDate:    created.EndDate,
		TotalPrice: created.TotalPrice.StringFixed(2),
		Status:     created.Status,
	})

	dto := NewRentalDTO(created, item)
	return &dto, nil
}

// transition describes one lifecycle edge. check runs with the rental and
// item rows locked; rented, when set, is the item's new is_rented value.
type transition struct {
	command   string
	to        enums.RentalStatus
	authorize func(rental *models.Rental, actor uuid.UUID) error
	check     func(rental *models.Rental, item *models.Item) error
	rented    func(from enums.RentalStatus) *bool
	recipient func(rental *models.Rental, actor uuid.UUID) uuid.UUID
}

func (s *service) ApproveRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error) {
	return s.apply(ctx, rentalID, actingUserID, transition{
		command:   commandApprove,
		to:        enums.RentalStatusActive,
		authorize: ownerOnly,
		check: func(_ *models.Rental, item *models.Item) error {
			if !item.IsListed {
				return pkgerrors.New(pkgerrors.CodeNotAvailable, "item is not listed")
			}
			if item.IsRented {
				return pkgerrors.New(pkgerrors.CodeNotAvailable, "item is already rented")
			}
			return nil
		},
		rented:    func(enums.RentalStatus) *bool { return boolPtr(true) },
		recipient: renter,
	})
}

// CompleteRental only accepts Active rentals. Pending is rejected on purpose so
// is_rented never flips for a rental that was never approved.
func (s *service) CompleteRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error) {
	return s.apply(ctx, rentalID, actingUserID, transition{
		command:   commandComplete,
		to:        enums.RentalStatusCompleted,
		authorize: participantOnly,
		rented:    func(enums.RentalStatus) *bool { return boolPtr(false) },
		recipient: renter,
	})
}

func (s *service) CancelRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error) {
	return s.apply(ctx, rentalID, actingUserID, transition{
		command:   commandCancel,
		to:        enums.RentalStatusCancelled,
		authorize: participantOnly,
		rented: func(from enums.RentalStatus) *bool {
			if from == enums.RentalStatusActive {
				return boolPtr(false)
			}
			return nil
		},
		recipient: func(rental *models.Rental, actor uuid.UUID) uuid.UUID {
			return rental.Counterparty(actor)
		},
	})
}

func (s *service) apply(ctx context.Context, rentalID, actor uuid.UUID, t transition) (*RentalDTO, error) {
	if rentalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		rental *models.Rental
		item   *models.Item
		from   enums.RentalStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockByID(ctx, rentalID)
		if err != nil {
			return notFoundOr(err, "rental not found", "load rental")
		}
		if err := t.authorize(locked, actor); err != nil {
			return err
		}
		from = locked.Status
		if !from.CanTransitionTo(t.to) {
			return invalidTransition(from, t.to)
		}

		lockedItem, err := repo.LockItem(ctx, locked.ItemID)
		if err != nil {
			return notFoundOr(err, "item not found", "load item")
		}
		if t.check != nil {
			if err := t.check(locked, lockedItem); err != nil {
				return err
			}
		}

		now := s.now()
		updates := map[string]any{
			"status":     string(t.to),
			"updated_at": now,
		}
		if t.to == enums.RentalStatusCompleted {
			locked.EndDate = completionEnd(locked.StartDate, now)
			updates["end_date"] = locked.EndDate
		}
		ok, err := repo.TransitionStatus(ctx, locked.ID, from, updates)
		if err != nil {
			return db.WrapStorage(err, "update rental status")
		}
		if !ok {
			return invalidTransition(from, t.to)
		}
		locked.Status = t.to
		locked.UpdatedAt = now

		if rented := t.rented(from); rented != nil {
			if err := repo.SetItemRented(ctx, lockedItem.ID, *rented); err != nil {
				return db.WrapStorage(err, "update item availability")
			}
			lockedItem.IsRented = *rented
		}
		rental, item = locked, lockedItem
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, t.command, err)
	}

	s.metrics.IncTransition(string(from), string(t.to))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"rental_id": rental.ID.String(),
		"from":      string(from),
		"to":        string(t.to),
	})
	s.logg.Info(logCtx, "rental transitioned")
	s.notifier.Notify(ctx, t.recipient(rental, actor), enums.NotificationEventRentalStatusChanged, notifications.RentalStatusChangedPayload{
		RentalID:       rental.ID,
		ItemID:         item.ID,
		ItemTitle:      item.Title,
		PreviousStatus: from,
		Status:         rental.Status,
		ChangedBy:      actor,
		StartDate:      rental.StartDate,
		EndDate:        rental.EndDate,
	})

	dto := NewRentalDTO(rental, item)
	return &dto, nil
}

// GetRental returns a rental to one of its participants.
func (s *service) GetRental(ctx context.Context, rentalID, actingUserID uuid.UUID) (*RentalDTO, error) {
	if rentalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	rental, err := s.repo.FindByID(ctx, rentalID)
	if err != nil {
		return nil, notFoundOr(err, "rental not found", "load rental")
	}
	if err := participantOnly(rental, actingUserID); err != nil {
		return nil, err
	}
	dto := NewRentalDTO(rental, nil)
	return &dto, nil
}

func (s *service) ListRenterRentals(ctx context.Context, renterID uuid.UUID, input ListRentalsInput) (*RentalListResult, error) {
	return s.list(ctx, renterID, input, s.repo.ListByRenter)
}

func (s *service) ListOwnerRentals(ctx context.Context, ownerID uuid.UUID, input ListRentalsInput) (*RentalListResult, error) {
	return s.list(ctx, ownerID, input, s.repo.ListByOwner)
}

type lister func(ctx context.Context, params listParams) ([]models.Rental, *pagination.Cursor, error)

func (s *service) list(ctx context.Context, userID uuid.UUID, input ListRentalsInput, fetch lister) (*RentalListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := fetch(ctx, listParams{
		UserID: userID,
		Status: input.Status,
		Limit:  input.Pagination.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, db.WrapStorage(err, "list rentals")
	}
	page := pagination.NewPage(newRentalDTOs(rows), next)
	return &page, nil
}

func (s *service) reject(ctx context.Context, command string, err error) error {
	err = db.WrapStorage(err, command+" rental")
	code := pkgerrors.CodeOf(err)
	s.metrics.IncRejection(command, string(code))
	if code == pkgerrors.CodeStorageUnavailable {
		s.logg.Error(s.logg.WithField(ctx, "command", command), "rental command failed", err)
	}
	return err
}

func ownerOnly(rental *models.Rental, actor uuid.UUID) error {
	if rental.OwnerID != actor {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner can do this")
	}
	return nil
}

func participantOnly(rental *models.Rental, actor uuid.UUID) error {
	if !rental.IsParticipant(actor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or renter can do this")
	}
	return nil
}

func renter(rental *models.Rental, _ uuid.UUID) uuid.UUID {
	return rental.RenterID
}

func invalidTransition(from, to enums.RentalStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move rental from %s to %s", from, to)).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

// completionEnd stamps the completion time without moving end before start.
func completionEnd(start, now time.Time) time.Time {
	if now.Before(start) {
		return start
	}
	return now
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return db.WrapStorage(err, op)
}

func boolPtr(v bool) *bool { return &v }
