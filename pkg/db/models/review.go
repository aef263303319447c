package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a rating left by a renter. Removal is a soft delete.
type Review struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ItemID      uuid.UUID  `gorm:"column:item_id;type:uuid;not null;index;uniqueIndex:ux_reviews_active_reviewer_item,priority:2,where:is_deleted = false"`
	ReviewerID  uuid.UUID  `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:ux_reviews_active_reviewer_item,priority:1,where:is_deleted = false"`
	RentalID    *uuid.UUID `gorm:"column:rental_id;type:uuid"`
	Rating      int        `gorm:"column:rating;not null"`
	Title       *string    `gorm:"column:title"`
	Body        *string    `gorm:"column:body"`
	IsAnonymous bool       `gorm:"column:is_anonymous;not null;default:false"`
	IsDeleted   bool       `gorm:"column:is_deleted;not null;default:false"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
