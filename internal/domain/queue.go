package domain

import (
	"context"
	"time"
)

// ItemKind tells the processor which ACP callback produced a queue item.
type ItemKind string

const (
	ItemKindNewTask  ItemKind = "new_task"
	ItemKindEvaluate ItemKind = "evaluate"
)

// QueueItem is one pending job notification waiting for the worker.
type QueueItem struct {
	DeliveryID string    `json:"delivery_id"`
	Kind       ItemKind  `json:"kind"`
	Job        *Job      `json:"job"`
	MemoToSign *Memo     `json:"memo_to_sign,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// QueueStats is a point-in-time view of the intake queue.
type QueueStats struct {
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
	Armed    bool   `json:"armed"`
	Closed   bool   `json:"closed"`
	Enqueued uint64 `json:"enqueued"`
	Dequeued uint64 `json:"dequeued"`
	Rejected uint64 `json:"rejected"`
}

// JobQueue is the intake buffer between notification callbacks and the worker.
// Implementations guard the items and the idle signal with a single lock.
type JobQueue interface {
	Enqueue(item QueueItem) error
	Dequeue() (QueueItem, bool)
	Wait(ctx context.Context) error
	Disarm() bool
	Len() int
	Stats() QueueStats
}

// JobNotifier is the callback surface the ACP event sources call into.
// Implementations must not block.
type JobNotifier interface {
	OnNewTask(job *Job, memoToSign *Memo) (string, error)
	OnEvaluate(job *Job) (string, error)
}

// JobProcessor holds the business decision for one dequeued item.
type JobProcessor interface {
	Role() string
	Process(ctx context.Context, item QueueItem) error
}

// ProcessorFactory resolves the processor for an agent role.
type ProcessorFactory interface {
	RegisterProcessor(role string, processor JobProcessor)
	GetProcessor(role string) (JobProcessor, error)
}

// Agent roles.
const (
	RoleBuyer     = "buyer"
	RoleSeller    = "seller"
	RoleEvaluator = "evaluator"
)

// IsValidRole checks if the role is one the agent can play
func IsValidRole(role string) bool {
	switch role {
	case RoleBuyer, RoleSeller, RoleEvaluator:
		return true
	}
	return false
}

// JobStateMarker remembers which job states were already fed to the queue
// so the poller does not feed the same state twice.
type JobStateMarker interface {
	// MarkJobState records key and reports whether it was newly set.
	MarkJobState(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ClearJobState(ctx context.Context, key string) error
}
