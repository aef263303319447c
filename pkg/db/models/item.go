package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a rentable thing listed by its owner.
type Item struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID       uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	Title         string              `gorm:"column:title;not null"`
	Description   string              `gorm:"column:description;not null;default:''"`
	Price         decimal.NullDecimal `gorm:"column:price;type:numeric(10,2)"`
	Category      *string             `gorm:"column:category"`
	Location      *string             `gorm:"column:location"`
	ImageURL      *string             `gorm:"column:image_url"`
	IsListed      bool                `gorm:"column:is_listed;not null;default:false"`
	IsRented      bool                `gorm:"column:is_rented;not null;default:false"`
	ReviewCount   int                 `gorm:"column:review_count;not null;default:0"`
	AverageRating *float64            `gorm:"column:average_rating;type:numeric(3,2)"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsAvailable reports whether the item is publicly rentable right now.
func (i Item) IsAvailable() bool {
	return i.IsListed && !i.IsRented
}

// DailyPrice returns the price, treating a missing price as zero.
func (i Item) DailyPrice() decimal.Decimal {
	if !i.Price.Valid {
		return decimal.Zero
	}
	return i.Price.Decimal
}
