package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bjaksic84/rentmate-backend/api/middleware"
	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/api/validators"
	"github.com/bjaksic84/rentmate-backend/internal/items"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

type createItemRequest struct {
	Title       string           `json:"title" validate:"notblank"`
	Description string           `json:"description" validate:"notblank"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=64"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

type updateItemRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *string          `json:"description,omitempty" validate:"omitempty,notblank"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	ClearPrice  bool             `json:"clear_price,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=64"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

// CreateItem registers a new, unlisted item owned by the caller.
func CreateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), id.UserID, items.CreateItemInput{
			Title:       payload.Title,
			Description: payload.Description,
			Price:       payload.Price,
			Category:    validators.SanitizeOptional(payload.Category, 64),
			Location:    validators.SanitizeOptional(payload.Location, 255),
			ImageURL:    validators.SanitizeOptional(payload.ImageURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// UpdateItem edits the caller's item.
func UpdateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
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

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), id.UserID, itemID, items.UpdateItemInput{
			Title:       payload.Title,
			Description: payload.Description,
			Price:       payload.Price,
			ClearPrice:  payload.ClearPrice,
			Category:    validators.SanitizeOptional(payload.Category, 64),
			Location:    validators.SanitizeOptional(payload.Location, 255),
			ImageURL:    validators.SanitizeOptional(payload.ImageURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// GetItem returns an item. Unlisted items are visible to their owner only.
func GetItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := uuid.Nil
		if id, ok := middleware.IdentityFromContext(r.Context()); ok {
			viewer = id.UserID
		}
		item, err := svc.GetItem(r.Context(), viewer, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListAvailableItems returns the public catalog: listed items not currently
// rented, optionally filtered by category and free text.
func ListAvailableItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		resp, err := svc.ListAvailable(r.Context(), items.ListAvailableInput{
			Category:   validators.SanitizeString(query.Get("category"), 64),
			Query:      validators.SanitizeString(strings.TrimSpace(query.Get("q")), 128),
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListOwnedItems returns the caller's items, listed or not.
func ListOwnedItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
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

		resp, err := svc.ListOwned(r.Context(), id.UserID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ToggleItemListing flips the listed flag on the caller's item.
func ToggleItemListing(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
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

		item, err := svc.ToggleListing(r.Context(), id.UserID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
