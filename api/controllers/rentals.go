package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/api/validators"
	"github.com/bjaksic84/rentmate-backend/internal/rentals"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

type requestRentalRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// RequestRental asks the owner of {itemId} for the given dates.
func RequestRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "rentals")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requestRentalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseDate("start_date", payload.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseDate("end_date", payload.EndDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rental, err := svc.RequestRental(r.Context(), rentals.RequestRentalInput{
			ItemID:     itemID,
			RenterID:   id.UserID,
			RenterName: id.DisplayName,
			StartDate:  start,
			EndDate:    end,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rental)
	}
}

type rentalTransitionFunc func(ctx context.Context, rentalID, actingUserID uuid.UUID) (*rentals.RentalDTO, error)

func rentalAction(logg *logger.Logger, name string, action func(rentals.Service) rentalTransitionFunc, svc rentals.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "rentals")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		rentalID, err := validators.ParseUUIDParam(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRentalID(ctx, rentalID.String())
			ctx = logg.WithField(ctx, "action", name)
		}
		rental, err := action(svc)(ctx, rentalID, id.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rental)
	}
}

// ApproveRental moves a pending rental on the caller's item to active.
func ApproveRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalAction(logg, "approve", func(s rentals.Service) rentalTransitionFunc { return s.ApproveRental }, svc)
}

// CompleteRental closes an active rental on the caller's item.
func CompleteRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalAction(logg, "complete", func(s rentals.Service) rentalTransitionFunc { return s.CompleteRental }, svc)
}

// CancelRental cancels a rental the caller participates in.
func CancelRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalAction(logg, "cancel", func(s rentals.Service) rentalTransitionFunc { return s.CancelRental }, svc)
}

// GetRental returns a rental to its renter or the item owner.
func GetRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalAction(logg, "get", func(s rentals.Service) rentalTransitionFunc { return s.GetRental }, svc)
}

type rentalListFunc func(ctx context.Context, userID uuid.UUID, input rentals.ListRentalsInput) (*rentals.RentalListResult, error)

func rentalList(logg *logger.Logger, list func(rentals.Service) rentalListFunc, svc rentals.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "rentals")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rentals.ListRentalsInput{Pagination: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRentalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		resp, err := list(svc)(r.Context(), id.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListMyRentals returns rentals where the caller is the renter.
func ListMyRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalList(logg, func(s rentals.Service) rentalListFunc { return s.ListRenterRentals }, svc)
}

// ListIncomingRentals returns rentals on items the caller owns.
func ListIncomingRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalList(logg, func(s rentals.Service) rentalListFunc { return s.ListOwnerRentals }, svc)
}
