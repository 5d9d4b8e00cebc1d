package publish

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/example/notification-pipeline/internal/model"
)

func TestPublishUnroutableChannelType(t *testing.T) {
	p := NewPublisher(func(topic string) *kafka.Writer {
		t.Fatalf("writer requested for unroutable type, topic %q", topic)
		return nil
	}, zerolog.Nop())

	err := p.Publish(context.Background(), map[string]any{}, model.ChannelType("fax"), "SomeEvent")
	if err == nil {
		t.Fatal("expected error for unroutable channel type")
	}
}

func TestPublishRequiresWriterFactory(t *testing.T) {
	p := &Publisher{Logger: zerolog.Nop()}
	if err := p.Publish(context.Background(), nil, model.ChannelEmail, "EmailNotificationEvent"); err == nil {
		t.Fatal("expected error without writer factory")
	}
}

func TestPublishMarshalFailure(t *testing.T) {
	p := NewPublisher(func(string) *kafka.Writer { return &kafka.Writer{} }, zerolog.Nop())
	err := p.Publish(context.Background(), make(chan int), model.ChannelEmail, "EmailNotificationEvent")
	if err == nil {
		t.Fatal("expected marshal error for unencodable payload")
	}
}
