package publish

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// WriterCache creates one writer per topic on demand and reuses it for
// the rest of the process lifetime. Safe for concurrent use: the API
// publishes from parallel request handlers, so two first requests for
// different channel types can hit the cache at the same time.
type WriterCache struct {
	Brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewWriterCache(brokers []string) *WriterCache {
	return &WriterCache{
		Brokers: brokers,
		writers: map[string]*kafka.Writer{},
	}
}

// Get returns the writer for a topic, creating it on first use.
func (c *WriterCache) Get(topic string) *kafka.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	c.writers[topic] = w
	return w
}

// Close closes every writer created so far and returns the first error.
func (c *WriterCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, w := range c.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
