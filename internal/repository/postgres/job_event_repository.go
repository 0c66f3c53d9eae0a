package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

const jobEventsSchema = `
	CREATE TABLE IF NOT EXISTS job_events (
		id            UUID PRIMARY KEY,
		delivery_id   TEXT NOT NULL,
		job_id        BIGINT NOT NULL,
		kind          TEXT NOT NULL,
		phase         TEXT NOT NULL,
		role          TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events (job_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_job_events_status ON job_events (status);
`

type jobEventRepository struct {
	db *sqlx.DB
}

// NewJobEventRepository creates a new job event repository
func NewJobEventRepository(db *sqlx.DB) *jobEventRepository {
	return &jobEventRepository{db: db}
}

var _ domain.JobEventRepository = (*jobEventRepository)(nil)

// EnsureSchema creates the job_events table and its indexes if missing
func (r *jobEventRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, jobEventsSchema); err != nil {
		return fmt.Errorf("failed to ensure job_events schema: %w", err)
	}
	return nil
}

// Create inserts a job event
func (r *jobEventRepository) Create(ctx context.Context, event *domain.JobEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO job_events (id, delivery_id, job_id, kind, phase, role,
			status, error_message, duration_ms, created_at)
		VALUES (:id, :delivery_id, :job_id, :kind, :phase, :role,
			:status, :error_message, :duration_ms, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		logger.Error("Failed to create job event",
			logger.JobID(event.JobID),
			logger.DeliveryID(event.DeliveryID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create job event: %w", err)
	}

	return nil
}

// ListByJobID returns the newest events of a job first
func (r *jobEventRepository) ListByJobID(ctx context.Context, jobID int64, limit int) ([]*domain.JobEvent, error) {
	query := `
		SELECT id, delivery_id, job_id, kind, phase, role, status,
			error_message, duration_ms, created_at
		FROM job_events
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var events []*domain.JobEvent
	if err := r.db.SelectContext(ctx, &events, query, jobID, limit); err != nil {
		logger.Error("Failed to list job events",
			logger.JobID(jobID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to list job events: %w", err)
	}

	return events, nil
}

// CountByStatus aggregates all events by status
func (r *jobEventRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) AS total FROM job_events GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Total  int64  `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count job events: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// Ping checks database connectivity
func (r *jobEventRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
