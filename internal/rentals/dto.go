package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// RentalDTO is the rental payload returned to clients.
type RentalDTO struct {
	ID         uuid.UUID          `json:"id"`
	ItemID     uuid.UUID          `json:"item_id"`
	ItemTitle  string             `json:"item_title,omitempty"`
	OwnerID    uuid.UUID          `json:"owner_id"`
	RenterID   uuid.UUID          `json:"renter_id"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	RentalDays int                `json:"rental_days"`
	Status     enums.RentalStatus `json:"status"`
	TotalPrice string             `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewRentalDTO builds a DTO. item may be nil when the title is not loaded.
func NewRentalDTO(rental *models.Rental, item *models.Item) RentalDTO {
	if item == nil {
		item = rental.Item
	}
	dto := RentalDTO{
		ID:         rental.ID,
		ItemID:     rental.ItemID,
		OwnerID:    rental.OwnerID,
		RenterID:   rental.RenterID,
		StartDate:  rental.StartDate,
		EndDate:    rental.EndDate,
		RentalDays: RentalDays(rental.StartDate, rental.EndDate),
		Status:     rental.Status,
		TotalPrice: rental.TotalPrice.StringFixed(2),
		CreatedAt:  rental.CreatedAt,
		UpdatedAt:  rental.UpdatedAt,
	}
	if item != nil {
		dto.ItemTitle = item.Title
	}
	return dto
}

func newRentalDTOs(rows []models.Rental) []RentalDTO {
	out := make([]RentalDTO, len(rows))
	for i := range rows {
		out[i] = NewRentalDTO(&rows[i], nil)
	}
	return out
}
