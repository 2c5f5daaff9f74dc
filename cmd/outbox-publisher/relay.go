package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleBackoff = 10 * time.Second
	backoffJitter  = 250 * time.Millisecond
)

// Park reasons, also used as the metric label.
const (
	parkRejected  = "rejected"
	parkExhausted = "exhausted"
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sendFunc publishes one message and waits for the server id.
type sendFunc func(ctx context.Context, msg *gcppubsub.Message) (string, error)

// topicSenders hands out a sender per topic; nil means the topic is unknown.
type topicSenders interface {
	Sender(topic string) sendFunc
	Ping(context.Context) error
}

type RelayDeps struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	Store    eventStore
	Resolver eventResolver
	Topics   topicSenders
	Metrics  *metrics.OutboxMetrics
}

// Relay moves committed storefront events (order_created, user_registered,
// user_referred) from outbox_events to Pub/Sub.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	store       eventStore
	resolver    eventResolver
	topics      topicSenders
	metrics     *metrics.OutboxMetrics
	batch       int
	maxAttempts int
	idle        time.Duration
}

func NewRelay(d RelayDeps) (*Relay, error) {
	switch {
	case d.Logger == nil:
		return nil, errors.New("logger required")
	case d.DB == nil:
		return nil, errors.New("db required")
	case d.Store == nil:
		return nil, errors.New("outbox store required")
	case d.Resolver == nil:
		return nil, errors.New("event resolver required")
	case d.Topics == nil:
		return nil, errors.New("topic senders required")
	}
	r := &Relay{
		logg:        d.Logger,
		db:          d.DB,
		store:       d.Store,
		resolver:    d.Resolver,
		topics:      d.Topics,
		metrics:     d.Metrics,
		batch:       d.Config.BatchSize,
		maxAttempts: d.Config.MaxAttempts,
		idle:        time.Duration(d.Config.PollIntervalMS) * time.Millisecond,
	}
	if r.batch <= 0 {
		r.batch = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.idle <= 0 {
		r.idle = 500 * time.Millisecond
	}
	return r, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; a short batch means the relay caught up and
// waits one poll interval. Failed drains back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := multierr.Combine(
		wrapPing("database", r.db.Ping(ctx)),
		wrapPing("pubsub", r.topics.Ping(ctx)),
	); err != nil {
		return err
	}

	backoff := r.newBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.drain(ctx)
		wait := r.idle
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			r.logg.Error(ctx, "outbox.drain_failed", err)
			wait, _ = backoff.Next()
		case n >= r.batch:
			backoff = r.newBackoff()
			continue
		default:
			backoff = r.newBackoff()
		}
		if err := pause(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(maxIdleBackoff,
		retry.WithJitter(backoffJitter, retry.NewExponential(r.idle)))
}

// drain handles one locked batch and reports how many rows it saw.
func (r *Relay) drain(ctx context.Context) (int, error) {
	seen := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batch, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		seen = len(events)
		for _, event := range events {
			topic, sendErr := r.deliver(ctx, event)
			if err := r.settle(ctx, tx, event, topic, sendErr); err != nil {
				return err
			}
		}
		return nil
	})
	return seen, err
}

// deliver resolves the row, builds its message and publishes it.
func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) (string, error) {
	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return "", err
	}
	topic := resolved.Descriptor.Topic
	msg, err := buildMessage(event, resolved)
	if err != nil {
		return topic, err
	}
	send := r.topics.Sender(topic)
	if send == nil {
		return topic, registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = send(sendCtx, msg)
	return topic, err
}

// settle records the outcome of one delivery on the row.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, topic string, sendErr error) error {
	kind := string(event.EventType)
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    event.ID.String(),
		"event_type":   kind,
		"aggregate_id": event.AggregateID.String(),
		"attempt":      event.AttemptCount + 1,
		"topic":        topic,
	})

	if sendErr == nil {
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		r.metrics.Published(kind)
		r.logg.Info(logCtx, "outbox.published")
		return nil
	}

	reason := ""
	var rejected registry.NonRetryableError
	switch {
	case errors.As(sendErr, &rejected):
		reason = parkRejected
	case event.AttemptCount+1 >= r.maxAttempts:
		reason = parkExhausted
		sendErr = fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, sendErr)
	}

	logCtx = r.logg.WithField(logCtx, "error", sendErr.Error())
	if reason == "" {
		if err := r.store.MarkFailedTx(tx, event.ID, sendErr); err != nil {
			return fmt.Errorf("mark %s failed: %w", event.ID, err)
		}
		r.metrics.Failed(kind)
		r.logg.Warn(logCtx, "outbox.publish_failed")
		return nil
	}

	if err := r.store.MarkTerminalTx(tx, event.ID, fmt.Errorf("%s: %w", reason, sendErr), r.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", event.ID, err)
	}
	r.metrics.Parked(kind, reason)
	r.logg.Warn(r.logg.WithField(logCtx, "reason", reason), "outbox.parked")
	return nil
}

func wrapPing(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s ping: %w", name, err)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
