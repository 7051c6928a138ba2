// Package queue is the hand-off between input sources and the tick loop.
package queue

import "sync"

// Queue is a thread-safe FIFO of raw command tokens.
//
// With a zero bound the queue is unbounded. With a positive bound a push onto
// a full queue drops the oldest pending token, so a stalled consumer costs
// stale input rather than memory.
type Queue struct {
	mu      sync.Mutex
	items   []string
	max     int
	dropped uint64
}

// New creates a queue. maxPending <= 0 means unbounded.
func New(maxPending int) *Queue {
	if maxPending < 0 {
		maxPending = 0
	}
	return &Queue{max: maxPending}
}

// Push appends a token. It never waits on the consumer.
func (q *Queue) Push(token string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.max > 0 && len(q.items) >= q.max {
		// drop-oldest
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, token)
}

// Drain removes and returns every pending token in arrival order.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]string, 0, cap(out))
	return out
}

// Len returns the number of pending tokens.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many tokens the bound has discarded so far.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
