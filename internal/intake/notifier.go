package intake

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
)

// QueueName labels the intake queue in metrics.
const QueueName = "acp_jobs"

// Notifier is the callback handed to ACP event sources. It only builds a
// queue item and enqueues it: no I/O and no locks other than the queue's.
type Notifier struct {
	queue domain.JobQueue
	now   func() time.Time
	newID func() string
}

var _ domain.JobNotifier = (*Notifier)(nil)

// NewNotifier creates a notifier feeding queue.
func NewNotifier(queue domain.JobQueue) *Notifier {
	return &Notifier{
		queue: queue,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// OnNewTask enqueues a job that needs this agent's attention, together with
// the memo the backend expects to be signed, if any.
func (n *Notifier) OnNewTask(job *domain.Job, memoToSign *domain.Memo) (string, error) {
	return n.push(domain.ItemKindNewTask, job, memoToSign)
}

// OnEvaluate enqueues a job waiting for this agent's evaluation.
func (n *Notifier) OnEvaluate(job *domain.Job) (string, error) {
	return n.push(domain.ItemKindEvaluate, job, nil)
}

func (n *Notifier) push(kind domain.ItemKind, job *domain.Job, memoToSign *domain.Memo) (string, error) {
	if job == nil {
		return "", domain.ErrNilJob
	}

	item := domain.QueueItem{
		DeliveryID: n.newID(),
		Kind:       kind,
		Job:        job,
		MemoToSign: memoToSign,
		ReceivedAt: n.now(),
	}

	if err := n.queue.Enqueue(item); err != nil {
		reason := "error"
		switch {
		case errors.Is(err, domain.ErrQueueFull):
			reason = "full"
		case errors.Is(err, domain.ErrQueueClosed):
			reason = "closed"
		}
		metrics.RecordQueueRejection(QueueName, reason)
		logger.Warn("Job notification rejected",
			logger.JobID(job.ID),
			logger.String("kind", string(kind)),
			logger.String("reason", reason),
		)
		return "", err
	}

	metrics.RecordEnqueue(QueueName, string(kind))
	metrics.SetQueueDepth(QueueName, float64(n.queue.Len()))
	logger.Debug("Job notification queued",
		logger.DeliveryID(item.DeliveryID),
		logger.JobID(job.ID),
		logger.String("kind", string(kind)),
		logger.String("phase", job.Phase.String()),
	)

	return item.DeliveryID, nil
}
