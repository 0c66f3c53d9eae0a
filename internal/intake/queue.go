// Package intake buffers ACP job notifications between the callbacks that
// receive them and the single worker that processes them.
package intake

import (
	"context"
	"sync"

	"github.com/alfanzaky/acpagent/internal/domain"
)

// Queue is a FIFO of job notifications plus the worker's idle signal.
//
// Both the items and the armed flag are guarded by mu. The flag is set
// whenever the queue is non-empty and may only be cleared by Disarm after
// observing the queue empty under the same lock, so an item enqueued between
// the worker's last Dequeue and Disarm keeps the flag set.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []domain.QueueItem
	head   int
	armed  bool
	closed bool

	capacity int
	enqueued uint64
	dequeued uint64
	rejected uint64
}

var _ domain.JobQueue = (*Queue)(nil)

// NewQueue creates a queue. A capacity of zero or less means unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	q := &Queue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item at the tail and arms the signal in one critical
// section. Duplicates are accepted.
func (q *Queue) Enqueue(item domain.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.rejected++
		return domain.ErrQueueClosed
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		q.rejected++
		return domain.ErrQueueFull
	}

	q.items = append(q.items, item)
	q.enqueued++
	q.armed = true
	q.cond.Broadcast()
	return nil
}

// Dequeue removes and returns the head item. It never blocks; ok is false
// when the queue is empty.
func (q *Queue) Dequeue() (item domain.QueueItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lenLocked() == 0 {
		return domain.QueueItem{}, false
	}

	item = q.items[q.head]
	q.items[q.head] = domain.QueueItem{}
	q.head++
	q.dequeued++
	q.compactLocked()
	return item, true
}

// Wait parks the caller until the signal is armed. It returns ctx.Err() when
// the context ends first and domain.ErrQueueClosed once the queue is closed
// and drained.
func (q *Queue) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.armed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.closed {
			return domain.ErrQueueClosed
		}
		q.cond.Wait()
	}
	return nil
}

// Disarm clears the signal if, and only if, the queue is empty. It reports
// whether the signal was cleared; false means more work arrived and the
// caller should keep draining.
func (q *Queue) Disarm() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lenLocked() > 0 {
		return false
	}
	q.armed = false
	return true
}

// Close stops accepting new items and wakes any waiter. Items already queued
// stay available to Dequeue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Armed reports the current signal state.
func (q *Queue) Armed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.armed
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() domain.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return domain.QueueStats{
		Depth:    q.lenLocked(),
		Capacity: q.capacity,
		Armed:    q.armed,
		Closed:   q.closed,
		Enqueued: q.enqueued,
		Dequeued: q.dequeued,
		Rejected: q.rejected,
	}
}

func (q *Queue) lenLocked() int {
	return len(q.items) - q.head
}

// compactLocked releases the consumed prefix once it dominates the slice.
func (q *Queue) compactLocked() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 >= len(q.items) {
		remaining := copy(q.items, q.items[q.head:])
		for i := remaining; i < len(q.items); i++ {
			q.items[i] = domain.QueueItem{}
		}
		q.items = q.items[:remaining]
		q.head = 0
	}
}
