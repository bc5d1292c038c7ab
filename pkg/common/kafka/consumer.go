package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

// Handler failures are retried in place before the message is dropped.
const (
	handlerAttempts = 3
	handlerBackoff  = 500 * time.Millisecond
)

type Consumer struct {
	reader   *kafka.Reader
	attempts int
	backoff  time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, attempts: handlerAttempts, backoff: handlerBackoff}
}

// Consume blocks until ctx is cancelled. Undecodable messages are committed
// and skipped. A handler error is retried with backoff; once the attempts run
// out the event is logged and committed, since a later commit in the group
// would move past it anyway.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		event, err := DecodeEvent(message)
		if err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to decode event")
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Log.WithError(err).Error("Failed to commit message")
			}
			continue
		}

		if err := handleWithRetry(ctx, handler, event, c.attempts, c.backoff); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id": event.ID,
				"offset":   message.Offset,
				"attempts": c.attempts,
			}).Error("Dropping event after failed retries")
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

// handleWithRetry runs handler up to attempts times, doubling delay between
// tries. It returns the last handler error, or ctx.Err() if cancelled while
// waiting.
func handleWithRetry(ctx context.Context, handler EventHandler, event models.Event, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = handler(ctx, event); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
		}).Warn("Event handler failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
