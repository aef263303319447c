package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// Notifier hands an event to the delivery pipeline. Implementations must not
// block the caller and never report delivery failures back.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload any)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uuid.UUID, enums.NotificationEvent, any) {}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload any)

func (f NotifierFunc) Notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload any) {
	f(ctx, userID, event, payload)
}

// Message is one queued event addressed to a single user. It is also the JSON
// envelope published to realtime subscribers.
type Message struct {
	ID         uuid.UUID               `json:"id"`
	UserID     uuid.UUID               `json:"user_id"`
	Event      enums.NotificationEvent `json:"event"`
	Payload    json.RawMessage         `json:"payload"`
	OccurredAt time.Time               `json:"occurred_at"`
}
