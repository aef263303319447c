package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
)

// ItemDTO is the item payload returned to clients. Prices are decimal strings.
type ItemDTO struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         *string   `json:"price"`
	Category      *string   `json:"category,omitempty"`
	Location      *string   `json:"location,omitempty"`
	ImageURL      *string   `json:"image_url,omitempty"`
	IsListed      bool      `json:"is_listed"`
	IsRented      bool      `json:"is_rented"`
	IsAvailable   bool      `json:"is_available"`
	ReviewCount   int       `json:"review_count"`
	AverageRating *float64  `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewItemDTO builds a DTO from the persisted model.
func NewItemDTO(item *models.Item) ItemDTO {
	dto := ItemDTO{
		ID:            item.ID,
		OwnerID:       item.OwnerID,
		Title:         item.Title,
		Description:   item.Description,
		Category:      item.Category,
		Location:      item.Location,
		ImageURL:      item.ImageURL,
		IsListed:      item.IsListed,
		IsRented:      item.IsRented,
		IsAvailable:   item.IsAvailable(),
		ReviewCount:   item.ReviewCount,
		AverageRating: item.AverageRating,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	if item.Price.Valid {
		price := item.Price.Decimal.StringFixed(2)
		dto.Price = &price
	}
	return dto
}

func newItemDTOs(rows []models.Item) []ItemDTO {
	out := make([]ItemDTO, len(rows))
	for i := range rows {
		out[i] = NewItemDTO(&rows[i])
	}
	return out
}
