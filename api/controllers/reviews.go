package controllers

import (
	"net/http"

	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/api/validators"
	"github.com/bjaksic84/rentmate-backend/internal/reviews"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

type submitReviewRequest struct {
	Rating    int     `json:"rating" validate:"gte=1,lte=5"`
	Title     *string `json:"title,omitempty" validate:"omitempty,max=120"`
	Body      *string `json:"body,omitempty" validate:"omitempty,max=4000"`
	Anonymous bool    `json:"anonymous,omitempty"`
}

type editReviewRequest struct {
	Rating    *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Title     *string `json:"title,omitempty" validate:"omitempty,max=120"`
	Body      *string `json:"body,omitempty" validate:"omitempty,max=4000"`
	Anonymous *bool   `json:"anonymous,omitempty"`
}

// SubmitReview records the caller's review of {itemId}. The caller must have
// completed a rental of the item.
func SubmitReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
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

		var payload submitReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.SubmitReview(r.Context(), reviews.SubmitReviewInput{
			ItemID:     itemID,
			ReviewerID: id.UserID,
			Rating:     payload.Rating,
			Title:      validators.SanitizeOptional(payload.Title, 120),
			Body:       validators.SanitizeOptional(payload.Body, 4000),
			Anonymous:  payload.Anonymous,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

// EditReview updates the caller's own review.
func EditReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload editReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.EditReview(r.Context(), reviewID, id.UserID, reviews.EditReviewInput{
			Rating:    payload.Rating,
			Title:     validators.SanitizeOptional(payload.Title, 120),
			Body:      validators.SanitizeOptional(payload.Body, 4000),
			Anonymous: payload.Anonymous,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

// DeleteReview removes a review. Authors delete their own; admins any.
func DeleteReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		aggregate, err := svc.DeleteReview(r.Context(), reviewID, id.UserID, id.IsAdmin())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, aggregate)
	}
}

// ListItemReviews returns the public reviews of {itemId}, newest first.
func ListItemReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.ListItemReviews(r.Context(), itemID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// MyItemReview returns the caller's review of {itemId}, if any.
func MyItemReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
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

		review, err := svc.MyReviewForItem(r.Context(), itemID, id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}
