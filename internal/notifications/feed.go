package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgredis "github.com/bjaksic84/rentmate-backend/pkg/redis"
)

// Feed streams a user's notifications as they are published.
type Feed interface {
	Open(ctx context.Context, userID uuid.UUID) (<-chan Message, func() error, error)
}

type channelSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*pkgredis.Subscription, error)
	UserChannel(userID string) string
}

// RedisFeed reads the per-user channels written by RedisSink.
type RedisFeed struct {
	subscriber channelSubscriber
	buffer     int
}

// NewRedisFeed builds a feed over Redis pub/sub.
func NewRedisFeed(subscriber channelSubscriber) (*RedisFeed, error) {
	if subscriber == nil {
		return nil, fmt.Errorf("redis subscriber required")
	}
	return &RedisFeed{subscriber: subscriber, buffer: 16}, nil
}

// Open subscribes to userID's channel. The returned channel closes when ctx
// ends or the subscription drops; the close func releases the subscription.
func (f *RedisFeed) Open(ctx context.Context, userID uuid.UUID) (<-chan Message, func() error, error) {
	sub, err := f.subscriber.Subscribe(ctx, f.subscriber.UserChannel(userID.String()))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Message, f.buffer)
	go func() {
		defer close(out)
		in := sub.Messages()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				msg, err := decodeFeedMessage(raw.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}

func decodeFeedMessage(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, fmt.Errorf("decode notification: %w", err)
	}
	if msg.ID == uuid.Nil || msg.UserID == uuid.Nil || !msg.Event.IsValid() {
		return Message{}, fmt.Errorf("incomplete notification message")
	}
	return msg, nil
}
