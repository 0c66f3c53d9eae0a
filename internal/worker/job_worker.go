package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/internal/intake"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
	"github.com/alfanzaky/acpagent/pkg/utils"
)

const (
	recordTimeout = 5 * time.Second

	maxErrorMessage = 1000
)

// JobWorker is the single consumer of the intake queue. It parks on the
// queue's signal, drains every pending item through the role's processor and
// then disarms the signal. Callers manage its lifecycle through the context
// passed to Start, or by closing the queue.
type JobWorker struct {
	queue     domain.JobQueue
	processor domain.JobProcessor
	history   domain.JobHistoryUsecase
	marker    domain.JobStateMarker
	now       func() time.Time
}

// NewJobWorker builds a worker. history may be nil when the audit trail is
// disabled.
func NewJobWorker(queue domain.JobQueue, processor domain.JobProcessor, history domain.JobHistoryUsecase) *JobWorker {
	return &JobWorker{
		queue:     queue,
		processor: processor,
		history:   history,
		now:       time.Now,
	}
}

// WithStateMarker shares the poller's marker so a job state whose processing
// failed is forgotten and fed again on the next poll.
func (w *JobWorker) WithStateMarker(marker domain.JobStateMarker) *JobWorker {
	w.marker = marker
	return w
}

// Start runs the worker loop. It blocks until the context is cancelled or the
// queue is closed and drained.
func (w *JobWorker) Start(ctx context.Context) {
	if w.queue == nil || w.processor == nil {
		logger.Warn("Job worker missing dependencies")
		return
	}

	logger.Info("Job worker started", logger.String("role", w.processor.Role()))

	for {
		if ctx.Err() != nil {
			w.stopping(ctx.Err())
			return
		}

		if err := w.queue.Wait(ctx); err != nil {
			w.stopping(err)
			return
		}

		w.drain(ctx)

		// A false result means an item slipped in after the last Dequeue;
		// Wait returns at once and the next round picks it up.
		w.queue.Disarm()
	}
}

func (w *JobWorker) stopping(reason error) {
	if errors.Is(reason, domain.ErrQueueClosed) {
		logger.Info("Job worker stopping, queue closed")
		return
	}
	logger.Info("Job worker stopping",
		logger.ErrorField(reason),
		logger.Int("pending", w.queue.Len()),
	)
}

func (w *JobWorker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, ok := w.queue.Dequeue()
		if !ok {
			metrics.SetQueueDepth(intake.QueueName, 0)
			return
		}
		metrics.SetQueueDepth(intake.QueueName, float64(w.queue.Len()))

		w.processItem(ctx, item)
	}
}

func (w *JobWorker) processItem(ctx context.Context, item domain.QueueItem) {
	start := w.now()
	err := w.safeProcess(ctx, item)
	duration := w.now().Sub(start)

	status := domain.EventStatusProcessed
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoActionRequired):
		status = domain.EventStatusSkipped
	default:
		status = domain.EventStatusFailed
	}

	var (
		jobID int64
		phase string
	)
	if item.Job != nil {
		jobID = item.Job.ID
		phase = item.Job.Phase.String()
	}
	role := w.processor.Role()

	metrics.RecordJobProcessed(role, string(item.Kind), phase, status, duration.Seconds())

	switch status {
	case domain.EventStatusFailed:
		logger.Error("Failed to process queued job",
			logger.DeliveryID(item.DeliveryID),
			logger.JobID(jobID),
			logger.String("phase", phase),
			logger.Duration("duration", duration),
			logger.ErrorField(err),
		)
	case domain.EventStatusSkipped:
		logger.Debug("Queued job needs no action",
			logger.DeliveryID(item.DeliveryID),
			logger.JobID(jobID),
			logger.String("phase", phase),
		)
	default:
		logger.Info("Queued job processed",
			logger.DeliveryID(item.DeliveryID),
			logger.JobID(jobID),
			logger.String("phase", phase),
			logger.Duration("duration", duration),
		)
	}

	if status == domain.EventStatusFailed {
		w.forget(ctx, item)
	}
	w.record(ctx, item, role, phase, status, err, duration)
}

func (w *JobWorker) forget(ctx context.Context, item domain.QueueItem) {
	if w.marker == nil || item.Job == nil {
		return
	}

	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := w.marker.ClearJobState(clearCtx, stateKey(item.Job)); err != nil {
		logger.Warn("Failed to clear job state marker",
			logger.DeliveryID(item.DeliveryID),
			logger.JobID(item.Job.ID),
			logger.ErrorField(err),
		)
	}
}

// safeProcess runs the processor and turns a panic into an error so that one
// bad item never takes the loop down.
func (w *JobWorker) safeProcess(ctx context.Context, item domain.QueueItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSystemError("panic", "job_worker")
			logger.Error("Processor panicked",
				logger.DeliveryID(item.DeliveryID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	if item.Job == nil {
		return domain.ErrNilJob
	}
	return w.processor.Process(ctx, item)
}

func (w *JobWorker) record(ctx context.Context, item domain.QueueItem, role, phase, status string, procErr error, duration time.Duration) {
	if w.history == nil {
		return
	}

	event := &domain.JobEvent{
		ID:         uuid.New().String(),
		DeliveryID: item.DeliveryID,
		Kind:       string(item.Kind),
		Phase:      phase,
		Role:       role,
		Status:     status,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  w.now(),
	}
	if item.Job != nil {
		event.JobID = item.Job.ID
	}
	if procErr != nil && status == domain.EventStatusFailed {
		msg := utils.TruncateString(procErr.Error(), maxErrorMessage)
		event.ErrorMessage = &msg
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := w.history.Record(recordCtx, event); err != nil {
		logger.Warn("Failed to record job event",
			logger.DeliveryID(item.DeliveryID),
			logger.ErrorField(err),
		)
	}
}
