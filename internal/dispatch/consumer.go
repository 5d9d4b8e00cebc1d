// Package dispatch consumes channel-typed events, renders their
// templates, invokes the provider send interface and reports the outcome
// back onto the notification record.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/provider"
	"github.com/example/notification-pipeline/internal/render"
	"github.com/example/notification-pipeline/internal/retry"
)

var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_deliveries_total",
		Help: "Message delivery outcomes per channel",
	}, []string{"channel", "outcome"})
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_retries_total",
		Help: "Delivery retries scheduled per channel",
	}, []string{"channel"})
	deadLettersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_dead_letters_total",
		Help: "Messages dead-lettered after exhausting retries",
	}, []string{"channel"})
)

// NotificationStore is the slice of the storage layer the consumer
// needs to report delivery outcomes.
type NotificationStore interface {
	UpdateStatus(ctx context.Context, id string, status model.NotificationStatus, errorMessage string) (model.Notification, error)
	IncrementRetryCount(ctx context.Context, id string) (int, error)
	AppendDeliveryLog(ctx context.Context, log model.DeliveryLog) (model.DeliveryLog, error)
}

// Requeuer owns the broker mechanics of the retry path; the policy
// decision stays in the consumer.
type Requeuer interface {
	Republish(ctx context.Context, key, value []byte, eventName string, attempt int) error
	DeadLetter(ctx context.Context, key, value []byte, eventName, reason string) error
}

// Handler performs the channel-specific Rendering and Sending stages for
// one message and returns the opaque provider response.
type Handler interface {
	Handle(ctx context.Context, eventName string, payload []byte) (provider.Response, error)
}

const DefaultPrefetch = 3

// Consumer runs the per-message state machine for one channel type:
// Received, Rendering, Sending, then acked as success, retry or dead
// letter. At most Prefetch messages are in flight at once; the
// semaphore is the backpressure bound, and commits go through a
// per-partition tracker so a finished message never commits past a
// slower or failed earlier one.
type Consumer struct {
	Channel       model.ChannelType
	ReaderFactory func() *kafka.Reader
	Handler       Handler
	Notifications NotificationStore
	Policy        retry.Policy
	Requeuer      Requeuer
	Logger        zerolog.Logger
	Prefetch      int
}

func (c *Consumer) Run(ctx context.Context) error {
	if c.ReaderFactory == nil || c.Handler == nil {
		return errors.New("consumer requires a reader factory and a handler")
	}
	reader := c.ReaderFactory()
	defer reader.Close()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = DefaultPrefetch
	}
	sem := make(chan struct{}, prefetch)
	commits := newCommitTracker()

	c.Logger.Info().Str("channel", string(c.Channel)).Int("prefetch", prefetch).Msg("consumer started")

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch message: %w", err)
		}
		commits.observe(m)

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		go func(m kafka.Message) {
			defer func() { <-sem }()
			acked := c.process(ctx, m)
			if err := commits.complete(ctx, reader.CommitMessages, m, acked); err != nil {
				c.Logger.Error().Err(err).Msg("commit message failed")
			}
		}(m)
	}
}

// process runs one message through the state machine and reports whether
// the original message should be acknowledged. Only a failed republish
// or dead-letter write leaves the message unacked, to be redelivered.
func (c *Consumer) process(ctx context.Context, m kafka.Message) bool {
	logger := c.Logger.With().Str("channel", string(c.Channel)).Logger()

	var env event.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		logger.Error().Err(err).Msg("failed to decode message, skipping")
		deliveriesTotal.WithLabelValues(string(c.Channel), "malformed").Inc()
		return true
	}

	eventName := retry.EventNameFrom(m.Headers)
	if eventName == "" {
		eventName = string(m.Key)
	}
	retryCount := retry.RetryCountFrom(m.Headers)
	notificationID := env.Metadata.NotificationID
	logger = logger.With().Str("event", eventName).Str("notification_id", notificationID).Logger()

	ctx, span := otel.Tracer("dispatch").Start(ctx, "deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification.id", notificationID),
		attribute.String("event.name", eventName),
		attribute.Int("retry.count", retryCount),
	)

	attempt := retryCount + 1
	c.appendLog(ctx, logger, model.DeliveryLog{
		NotificationID: notificationID,
		AttemptNumber:  attempt,
		Status:         model.DeliveryAttempting,
	})

	resp, err := c.Handler.Handle(ctx, eventName, m.Value)
	if err == nil {
		c.appendLog(ctx, logger, model.DeliveryLog{
			NotificationID: notificationID,
			AttemptNumber:  attempt,
			Status:         model.DeliverySuccess,
			ResponseData:   resp,
		})
		c.updateStatus(ctx, logger, notificationID, model.StatusSent, "")
		deliveriesTotal.WithLabelValues(string(c.Channel), "sent").Inc()
		logger.Info().Int("attempt", attempt).Msg("delivery succeeded")
		return true
	}

	span.RecordError(err)
	c.appendLog(ctx, logger, model.DeliveryLog{
		NotificationID: notificationID,
		AttemptNumber:  attempt,
		Status:         model.DeliveryFailed,
		ErrorMessage:   err.Error(),
	})

	if isPermanent(err) {
		// Validation-class failure: the same payload can never succeed,
		// so retrying would only burn attempts.
		c.updateStatus(ctx, logger, notificationID, model.StatusFailed, err.Error())
		deliveriesTotal.WithLabelValues(string(c.Channel), "permanent_failure").Inc()
		logger.Error().Err(err).Msg("permanent delivery failure")
		return true
	}

	if _, incErr := c.Notifications.IncrementRetryCount(ctx, notificationID); incErr != nil {
		logger.Error().Err(incErr).Msg("failed to increment retry count")
	}

	if c.Policy.ShouldRetry(retryCount) {
		retriesTotal.WithLabelValues(string(c.Channel)).Inc()
		logger.Warn().Err(err).Int("retry", retryCount+1).Msg("transient delivery failure, retrying")
		if pubErr := c.Requeuer.Republish(ctx, m.Key, m.Value, eventName, retryCount+1); pubErr != nil {
			logger.Error().Err(pubErr).Msg("republish failed, leaving message unacked")
			return false
		}
		return true
	}

	deadLettersTotal.WithLabelValues(string(c.Channel)).Inc()
	c.updateStatus(ctx, logger, notificationID, model.StatusFailed, err.Error())
	deliveriesTotal.WithLabelValues(string(c.Channel), "dead_lettered").Inc()
	if dlqErr := c.Requeuer.DeadLetter(ctx, m.Key, m.Value, eventName, err.Error()); dlqErr != nil {
		logger.Error().Err(dlqErr).Msg("dead letter write failed, leaving message unacked")
		return false
	}
	return true
}

func (c *Consumer) appendLog(ctx context.Context, logger zerolog.Logger, log model.DeliveryLog) {
	if log.NotificationID == "" {
		return
	}
	if _, err := c.Notifications.AppendDeliveryLog(ctx, log); err != nil {
		logger.Error().Err(err).Msg("failed to append delivery log")
	}
}

func (c *Consumer) updateStatus(ctx context.Context, logger zerolog.Logger, id string, status model.NotificationStatus, errorMessage string) {
	if id == "" {
		return
	}
	if _, err := c.Notifications.UpdateStatus(ctx, id, status, errorMessage); err != nil {
		logger.Error().Err(err).Str("status", string(status)).Msg("failed to update notification status")
	}
}

// isPermanent classifies failures that must never be retried: missing
// template variables, provider 4xx (marked backoff.Permanent), malformed
// channel configuration, and missing templates or channels.
func isPermanent(err error) bool {
	var missingVars *render.MissingVariablesError
	if errors.As(err, &missingVars) {
		return true
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return true
	}
	var config *model.ConfigError
	if errors.As(err, &config) {
		return true
	}
	return errors.Is(err, model.ErrNotFound)
}
