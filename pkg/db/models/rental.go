package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// Rental is a booking of an item by a renter. Rows are never deleted.
type Rental struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ItemID     uuid.UUID          `gorm:"column:item_id;type:uuid;not null;index:idx_rentals_item_status,priority:1"`
	OwnerID    uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index"`
	RenterID   uuid.UUID          `gorm:"column:renter_id;type:uuid;not null;index"`
	StartDate  time.Time          `gorm:"column:start_date;not null"`
	EndDate    time.Time          `gorm:"column:end_date;not null"`
	Status     enums.RentalStatus `gorm:"column:status;type:rental_status;not null;default:'pending';index:idx_rentals_item_status,priority:2"`
	TotalPrice decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	Item       *Item              `gorm:"foreignKey:ItemID"`
}

func (Rental) TableName() string { return "rentals" }

func (r *Rental) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsParticipant reports whether userID is the owner or the renter.
func (r Rental) IsParticipant(userID uuid.UUID) bool {
	return userID == r.OwnerID || userID == r.RenterID
}

// Counterparty returns the other participant of userID.
func (r Rental) Counterparty(userID uuid.UUID) uuid.UUID {
	if userID == r.OwnerID {
		return r.RenterID
	}
	return r.OwnerID
}
