package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRepublishHonorsContextDuringBackoff(t *testing.T) {
	r := &Retrier{
		Policy: Policy{BaseDelay: time.Minute, MaxRetries: 3},
		Logger: zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Republish(ctx, []byte("key"), []byte("{}"), "EmailNotificationEvent", 1)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("republish did not return after cancellation")
	}
}
