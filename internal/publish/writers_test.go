package publish

import (
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestWriterCacheReturnsStableWriters(t *testing.T) {
	cache := NewWriterCache([]string{"localhost:9092"})
	topics := []string{"dispatch.email", "dispatch.sms", "dispatch.push"}

	// Parallel first requests for every topic must all see the same
	// writer per topic, without racing on the cache.
	const workers = 16
	got := make([][]*kafka.Writer, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, topic := range topics {
				got[i] = append(got[i], cache.Get(topic))
			}
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		for j := range topics {
			if got[i][j] != got[0][j] {
				t.Fatalf("worker %d got a different writer for %q", i, topics[j])
			}
		}
	}
	if got[0][0] == got[0][1] {
		t.Fatal("distinct topics must get distinct writers")
	}
}

func TestWriterCacheConfiguresTopic(t *testing.T) {
	cache := NewWriterCache([]string{"k1:9092", "k2:9092"})
	w := cache.Get("dispatch.email")
	if w.Topic != "dispatch.email" {
		t.Fatalf("Topic = %q, expected %q", w.Topic, "dispatch.email")
	}
	if w.Addr.String() != kafka.TCP("k1:9092", "k2:9092").String() {
		t.Fatalf("Addr = %q, expected both brokers", w.Addr)
	}
}
