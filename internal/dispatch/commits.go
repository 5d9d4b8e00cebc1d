package dispatch

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// commitTracker orders consumer-group commits when several messages are
// in flight. Kafka commits are per-partition high-watermarks: committing
// a later offset silently acknowledges every earlier one. The tracker
// therefore only ever commits the contiguous prefix of processed
// offsets, so an unacked failure holds the watermark back and the
// message is redelivered after a rebalance instead of being lost behind
// a faster neighbour's commit.
type commitTracker struct {
	mu    sync.Mutex
	parts map[int]*partitionOffsets
}

type partitionOffsets struct {
	next int64
	done map[int64]bool
}

func newCommitTracker() *commitTracker {
	return &commitTracker{parts: map[int]*partitionOffsets{}}
}

// observe registers a fetched message before its goroutine starts. Fetch
// order within a partition is ascending, so the first message seen
// anchors the commit floor.
func (t *commitTracker) observe(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.parts[m.Partition]; !ok {
		t.parts[m.Partition] = &partitionOffsets{next: m.Offset, done: map[int64]bool{}}
	}
}

// complete records the outcome for one message and commits up to the end
// of the partition's contiguous processed prefix. An unacked message is
// never marked done, which blocks every later offset on its partition
// from committing. The lock is held across the commit call so commits
// reach the broker in offset order.
func (t *commitTracker) complete(ctx context.Context, commit func(context.Context, ...kafka.Message) error, m kafka.Message, acked bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !acked {
		return nil
	}
	p := t.parts[m.Partition]
	p.done[m.Offset] = true

	last := int64(-1)
	for p.done[p.next] {
		delete(p.done, p.next)
		last = p.next
		p.next++
	}
	if last < 0 {
		return nil
	}
	return commit(ctx, kafka.Message{Topic: m.Topic, Partition: m.Partition, Offset: last})
}
