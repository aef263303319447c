package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/bjaksic84/rentmate-backend/pkg/db/types"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// Notification stores the in-app copy of a dispatched event.
type Notification struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	Event     enums.NotificationEvent `gorm:"column:event;type:text;not null" json:"event"`
	Title     string                  `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                  `gorm:"column:message;type:text;not null" json:"message"`
	Payload   dbtypes.JSON            `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Link      *string                 `gorm:"column:link;type:text" json:"link,omitempty"`
	ReadAt    *time.Time              `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime;index:idx_notifications_user_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
