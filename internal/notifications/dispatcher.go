package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
)

const (
	defaultQueueSize       = 1024
	defaultWorkers         = 4
	defaultDeliveryTimeout = 5 * time.Second
)

const (
	dropReasonQueueFull = "queue_full"
	dropReasonClosed    = "closed"
	dropReasonEncode    = "encode"
	dropReasonNoTarget  = "no_target"
)

// Sink receives each message exactly once. Errors are logged by the
// dispatcher and the message is not retried.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// DispatcherOptions configures the queue and worker pool.
type DispatcherOptions struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
	Logger          *logger.Logger
	Metrics         *metrics.NotificationMetrics
}

// Dispatcher is an at-most-once, in-process notification pipeline: a bounded
// queue drained by a fixed pool of workers fanning out to the sinks.
type Dispatcher struct {
	queue   chan Message
	sinks   []Sink
	workers int
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.NotificationMetrics
	now     func() time.Time

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher. Call Start to begin delivery.
func NewDispatcher(opts DispatcherOptions, sinks ...Sink) (*Dispatcher, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("at least one notification sink required")
	}
	for i, sink := range sinks {
		if sink == nil {
			return nil, fmt.Errorf("notification sink %d is nil", i)
		}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Dispatcher{
		queue:   make(chan Message, opts.QueueSize),
		sinks:   sinks,
		workers: opts.Workers,
		timeout: opts.DeliveryTimeout,
		logg:    opts.Logger,
		metrics: opts.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start launches the worker pool. Subsequent calls are no-ops.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Notify enqueues an event without blocking. When the queue is full or the
// dispatcher is closed the event is dropped and counted.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload any) {
	if userID == uuid.Nil {
		d.drop(ctx, event, dropReasonNoTarget, nil)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		d.drop(ctx, event, dropReasonEncode, err)
		return
	}
	msg := Message{
		ID:         uuid.New(),
		UserID:     userID,
		Event:      event,
		Payload:    raw,
		OccurredAt: d.now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, event, dropReasonClosed, nil)
		return
	}
	select {
	case d.queue <- msg:
		d.metrics.IncEnqueued(string(event))
		d.metrics.SetQueueDepth(len(d.queue))
	default:
		d.drop(ctx, event, dropReasonQueueFull, nil)
	}
}

// Close stops intake and waits for queued messages to drain or ctx to end.
// Sinks implementing io.Closer are closed once the workers have stopped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for range d.queue {
		}
		return d.closeSinks()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return d.closeSinks()
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Deliver(ctx, msg)
		cancel()
		if err != nil {
			d.metrics.IncFailed(sink.Name())
			logCtx := d.logg.WithFields(context.Background(), map[string]any{
				"sink":            sink.Name(),
				"event":           string(msg.Event),
				"notification_id": msg.ID.String(),
				"user_id":         msg.UserID.String(),
			})
			d.logg.Error(logCtx, "notification delivery failed", err)
			continue
		}
		d.metrics.IncDelivered(sink.Name())
	}
}

func (d *Dispatcher) drop(ctx context.Context, event enums.NotificationEvent, reason string, err error) {
	d.metrics.IncDropped(string(event), reason)
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"event":  string(event),
		"reason": reason,
	})
	if err != nil {
		d.logg.Error(logCtx, "notification dropped", err)
		return
	}
	d.logg.Warn(logCtx, "notification dropped")
}

func (d *Dispatcher) closeSinks() error {
	var errs error
	for _, sink := range d.sinks {
		if closer, ok := sink.(io.Closer); ok {
			errs = multierr.Append(errs, closer.Close())
		}
	}
	return errs
}
