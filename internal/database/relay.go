package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the redis client the relay needs
type RedisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// OutboxRepo is the subset of the outbox repository the relay needs
type OutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

// Relay polls the outbox table and publishes pending events to their
// target redis streams. Running it in a single goroutine keeps event
// order per aggregate without extra coordination.
type Relay struct {
	repo         OutboxRepo
	redis        RedisClient
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewRelay(repo OutboxRepo, redisClient RedisClient, logger *slog.Logger) *Relay {
	return &Relay{
		repo:         repo,
		redis:        redisClient,
		logger:       logger.With("component", "outbox_relay"),
		pollInterval: 2 * time.Second,
		batchSize:    50,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("outbox relay started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("relay batch failed", "error", err)
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	events, err := r.repo.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending events: %w", err)
	}

	for _, event := range events {
		if err := r.publish(ctx, event); err != nil {
			r.logger.Warn("failed to publish event",
				"event_id", event.ID,
				"event_type", event.EventType,
				"retry_count", event.RetryCount,
				"error", err)
			if markErr := r.repo.MarkFailed(ctx, event.ID, err); markErr != nil {
				return fmt.Errorf("failed to mark event failed: %w", markErr)
			}
			continue
		}

		if err := r.repo.MarkProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}

		r.logger.Debug("event published",
			"event_id", event.ID,
			"event_type", event.EventType,
			"stream", event.TargetStream)
	}

	return nil
}

func (r *Relay) publish(ctx context.Context, event *OutboxEvent) error {
	args := &redis.XAddArgs{
		Stream: event.TargetStream,
		Values: map[string]interface{}{
			"event_id":       event.ID.String(),
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
			"payload":        string(event.Payload),
		},
	}

	if err := r.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add to stream %s: %w", event.TargetStream, err)
	}

	return nil
}
