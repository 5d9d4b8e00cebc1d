package retry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/example/notification-pipeline/internal/event"
)

// Retrier re-publishes failed messages to their own topic with an
// incremented retry-count header, and routes exhausted ones to the DLQ.
// The caller acknowledges the original message only after Republish
// returns; a crash in between duplicates the message, which the
// at-least-once contract accepts.
type Retrier struct {
	Policy    Policy
	Writer    *kafka.Writer
	DLQWriter *kafka.Writer
	Logger    zerolog.Logger
}

// Republish waits out the backoff for the given attempt, then writes an
// identical copy of the message carrying retry-count = attempt.
func (r *Retrier) Republish(ctx context.Context, key, value []byte, eventName string, attempt int) error {
	delay := r.Policy.Delay(attempt)
	r.Logger.Info().
		Str("event", eventName).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("scheduling delivery retry")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	msg := kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: event.HeaderEventName, Value: []byte(eventName)},
			{Key: event.HeaderRetryCount, Value: []byte(strconv.Itoa(attempt))},
		},
	}
	if err := r.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("republish retry %d: %w", attempt, err)
	}
	return nil
}

// DeadLetter writes the message to the DLQ topic with the terminal
// failure reason. Dead-lettered messages are kept for inspection, never
// re-queued.
func (r *Retrier) DeadLetter(ctx context.Context, key, value []byte, eventName, reason string) error {
	r.Logger.Error().
		Str("event", eventName).
		Str("reason", reason).
		Msg("retries exhausted, dead-lettering message")

	msg := kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: event.HeaderEventName, Value: []byte(eventName)},
			{Key: "dead-letter-reason", Value: []byte(reason)},
		},
	}
	if err := r.DLQWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}

// RetryCountFrom reads the retry-count header, defaulting to zero for
// fresh messages or unparseable values.
func RetryCountFrom(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key != event.HeaderRetryCount {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

// EventNameFrom reads the event-name routing header.
func EventNameFrom(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == event.HeaderEventName {
			return string(h.Value)
		}
	}
	return ""
}
