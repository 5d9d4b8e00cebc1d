package retry

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/notification-pipeline/internal/event"
)

func TestShouldRetry(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxRetries: 3}

	tests := []struct {
		retryCount int
		want       bool
	}{
		{retryCount: 0, want: true},
		{retryCount: 1, want: true},
		{retryCount: 2, want: true},
		{retryCount: 3, want: false},
		{retryCount: 4, want: false},
	}

	for _, tc := range tests {
		if got := p.ShouldRetry(tc.retryCount); got != tc.want {
			t.Errorf("ShouldRetry(%d) = %v, expected %v", tc.retryCount, got, tc.want)
		}
	}
}

func TestDelayDoubles(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxRetries: 3}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 0, want: time.Second}, // clamped to a first attempt
	}

	for _, tc := range tests {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, expected %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryCountFrom(t *testing.T) {
	tests := []struct {
		name    string
		headers []kafka.Header
		want    int
	}{
		{
			name:    "no headers",
			headers: nil,
			want:    0,
		},
		{
			name: "valid count",
			headers: []kafka.Header{
				{Key: event.HeaderRetryCount, Value: []byte("2")},
			},
			want: 2,
		},
		{
			name: "unparseable value defaults to zero",
			headers: []kafka.Header{
				{Key: event.HeaderRetryCount, Value: []byte("nope")},
			},
			want: 0,
		},
		{
			name: "negative value defaults to zero",
			headers: []kafka.Header{
				{Key: event.HeaderRetryCount, Value: []byte("-1")},
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RetryCountFrom(tc.headers); got != tc.want {
				t.Fatalf("RetryCountFrom() = %d, expected %d", got, tc.want)
			}
		})
	}
}

func TestEventNameFrom(t *testing.T) {
	headers := []kafka.Header{
		{Key: "other", Value: []byte("x")},
		{Key: event.HeaderEventName, Value: []byte(event.EmailNotification)},
	}
	if got := EventNameFrom(headers); got != event.EmailNotification {
		t.Fatalf("EventNameFrom() = %q, expected %q", got, event.EmailNotification)
	}
	if got := EventNameFrom(nil); got != "" {
		t.Fatalf("EventNameFrom(nil) = %q, expected empty", got)
	}
}
