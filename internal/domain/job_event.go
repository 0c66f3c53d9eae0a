package domain

import (
	"context"
	"time"
)

// Job event statuses
const (
	EventStatusProcessed = "PROCESSED"
	EventStatusSkipped   = "SKIPPED"
	EventStatusFailed    = "FAILED"
)

// JobEvent is the audit record written after the worker handles a queue item.
type JobEvent struct {
	ID           string    `json:"id" db:"id"`
	DeliveryID   string    `json:"delivery_id" db:"delivery_id"`
	JobID        int64     `json:"job_id" db:"job_id"`
	Kind         string    `json:"kind" db:"kind"`
	Phase        string    `json:"phase" db:"phase"`
	Role         string    `json:"role" db:"role"`
	Status       string    `json:"status" db:"status"`
	ErrorMessage *string   `json:"error_message,omitempty" db:"error_message"`
	DurationMs   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// JobEventRepository persists the audit trail.
type JobEventRepository interface {
	Create(ctx context.Context, event *JobEvent) error
	ListByJobID(ctx context.Context, jobID int64, limit int) ([]*JobEvent, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// JobHistoryUsecase exposes the audit trail to the API.
type JobHistoryUsecase interface {
	Record(ctx context.Context, event *JobEvent) error
	GetJobEvents(ctx context.Context, jobID int64, limit int) ([]*JobEvent, error)
	GetStatusCounts(ctx context.Context) (map[string]int64, error)
}
