// Package publish writes channel-typed events to the broker. Semantics
// are at-least-once: no dedup happens here and a failed write surfaces
// to the caller, so notification creation never silently continues
// without an event in flight.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
)

// Publisher routes each event to the topic of its channel type. The
// event name travels as a header and acts as the routing key within the
// topic; downstream handlers subscribe per event name.
type Publisher struct {
	WriterFactory func(topic string) *kafka.Writer
	Logger        zerolog.Logger
}

func NewPublisher(writerFactory func(topic string) *kafka.Writer, logger zerolog.Logger) *Publisher {
	return &Publisher{WriterFactory: writerFactory, Logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, payload any, channelType model.ChannelType, eventName string) error {
	if p.WriterFactory == nil {
		return errors.New("publisher requires a writer factory")
	}
	topic := event.TopicForChannel(channelType)
	if topic == "" {
		return fmt.Errorf("no topic for channel type %q", channelType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventName, err)
	}

	ctx, span := otel.Tracer("publisher").Start(ctx, "publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.name", eventName),
		attribute.String("event.topic", topic),
	)

	msg := kafka.Message{
		Key:   []byte(eventName),
		Value: body,
		Headers: []kafka.Header{
			{Key: event.HeaderEventName, Value: []byte(eventName)},
			{Key: event.HeaderRetryCount, Value: []byte("0")},
		},
	}
	if err := p.WriterFactory(topic).WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s to %s: %w", eventName, topic, err)
	}

	p.Logger.Info().Str("event", eventName).Str("topic", topic).Msg("event published")
	return nil
}
