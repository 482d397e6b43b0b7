package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/model"
)

const subscribeTimeout = 2 * time.Second

// ErrFeedDisabled is returned by Subscribe when no Redis client is configured.
var ErrFeedDisabled = errors.New("live result feed is disabled")

// ResultFeed fans accepted submissions out over Redis Pub/Sub, one channel per exam.
type ResultFeed struct {
	rdb *redis.Client
}

// NewResultFeed creates a ResultFeed. A nil client yields a no-op feed.
func NewResultFeed(rdb *redis.Client) *ResultFeed {
	return &ResultFeed{rdb: rdb}
}

// Enabled reports whether events are actually delivered.
func (f *ResultFeed) Enabled() bool {
	return f != nil && f.rdb != nil
}

// Publish sends an event to the exam's results channel.
func (f *ResultFeed) Publish(ctx context.Context, ev model.ResultEvent) error {
	if !f.Enabled() {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal result event: %w", err)
	}
	channel := config.CacheKey.ExamResultsChannel(ev.ExamID.String())
	if err := f.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish result event: %w", err)
	}
	return nil
}

// Subscribe attaches to an exam's results channel. The caller closes the subscription.
func (f *ResultFeed) Subscribe(ctx context.Context, examID uuid.UUID) (*redis.PubSub, error) {
	if !f.Enabled() {
		return nil, ErrFeedDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	defer cancel()

	pubsub := f.rdb.Subscribe(ctx, config.CacheKey.ExamResultsChannel(examID.String()))
	// Wait for the subscription confirmation so no event published right
	// after the snapshot is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe result feed: %w", err)
	}
	return pubsub, nil
}
