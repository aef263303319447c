package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	dbtypes "github.com/bjaksic84/rentmate-backend/pkg/db/types"
)

// StoreSink persists the inbox copy of each message.
type StoreSink struct {
	repo Repository
}

// NewStoreSink builds a sink writing to the notifications table.
func NewStoreSink(repo Repository) (*StoreSink, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &StoreSink{repo: repo}, nil
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, msg Message) error {
	rendered := Render(msg)
	row := &models.Notification{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Event:     msg.Event,
		Title:     rendered.Title,
		Message:   rendered.Message,
		Payload:   dbtypes.JSON(msg.Payload),
		CreatedAt: msg.OccurredAt,
	}
	if rendered.Link != "" {
		link := rendered.Link
		row.Link = &link
	}
	return s.repo.Create(ctx, row)
}

type channelPublisher interface {
	Publish(ctx context.Context, channel string, payload any) (int64, error)
	UserChannel(userID string) string
}

// RedisSink publishes each message on the recipient's realtime channel.
type RedisSink struct {
	publisher channelPublisher
}

// NewRedisSink builds a sink publishing through Redis pub/sub.
func NewRedisSink(publisher channelPublisher) (*RedisSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	return &RedisSink{publisher: publisher}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if _, err := s.publisher.Publish(ctx, s.publisher.UserChannel(msg.UserID.String()), string(data)); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type topicPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// PubSubSink forwards each message to a Pub/Sub topic for external push channels.
type PubSubSink struct {
	publisher topicPublisher
}

// NewPubSubSink builds a sink publishing to a Pub/Sub topic.
func NewPubSubSink(publisher topicPublisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubSink{publisher: publisher}, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	attrs := map[string]string{
		"event":           string(msg.Event),
		"user_id":         msg.UserID.String(),
		"notification_id": msg.ID.String(),
	}
	if _, err := s.publisher.Publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close flushes and stops the underlying publisher when it supports it.
func (s *PubSubSink) Close() error {
	if stopper, ok := s.publisher.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	return nil
}
