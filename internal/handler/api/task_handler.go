package api

import (
	"errors"

	"github.com/alfanzaky/acpagent/internal/adapter/acp"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/observability"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// TaskHandler receives ACP job events and hands them to the notifier
type TaskHandler struct {
	notifier domain.JobNotifier
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(notifier domain.JobNotifier) *TaskHandler {
	return &TaskHandler{notifier: notifier}
}

// TaskAcceptedResponse is returned once a job event is queued
type TaskAcceptedResponse struct {
	DeliveryID string `json:"delivery_id"`
	JobID      int64  `json:"job_id"`
	Phase      string `json:"phase"`
	Kind       string `json:"kind"`
}

// ReceiveTask handles the new-task webhook
func (h *TaskHandler) ReceiveTask(c *gin.Context) {
	job, memoToSign, ok := h.parse(c)
	if !ok {
		return
	}

	deliveryID, err := h.notifier.OnNewTask(job, memoToSign)
	h.respond(c, domain.ItemKindNewTask, job, deliveryID, err)
}

// ReceiveEvaluation handles the evaluation webhook
func (h *TaskHandler) ReceiveEvaluation(c *gin.Context) {
	job, _, ok := h.parse(c)
	if !ok {
		return
	}

	deliveryID, err := h.notifier.OnEvaluate(job)
	h.respond(c, domain.ItemKindEvaluate, job, deliveryID, err)
}

func (h *TaskHandler) parse(c *gin.Context) (*domain.Job, *domain.Memo, bool) {
	body, ok := readBody(c)
	if !ok {
		return nil, nil, false
	}
	if len(body) == 0 {
		xresponse.BadRequest(c, "Request body is required")
		return nil, nil, false
	}

	job, memoToSign, err := acp.ParseJobPayload(body)
	if err != nil {
		logger.Warn("Invalid job event payload",
			logger.String("client_ip", c.ClientIP()),
			logger.ErrorField(err),
		)
		xresponse.BadRequest(c, err.Error())
		return nil, nil, false
	}

	return job, memoToSign, true
}

func (h *TaskHandler) respond(c *gin.Context, kind domain.ItemKind, job *domain.Job, deliveryID string, err error) {
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQueueFull):
			xresponse.QueueFull(c, "Job queue is full, retry later")
		case errors.Is(err, domain.ErrQueueClosed):
			xresponse.QueueClosed(c, "Agent is shutting down")
		default:
			observability.LogSystemError(c, "enqueue", "task_handler", err)
			xresponse.InternalServerError(c, "Failed to queue job event")
		}
		return
	}

	observability.LogWithFields(c, "Job event accepted",
		logger.DeliveryID(deliveryID),
		logger.JobID(job.ID),
		logger.String("kind", string(kind)),
		logger.String("caller", c.GetString(observability.CallerContextKey)),
	)
	xresponse.Accepted(c, "Job event queued", TaskAcceptedResponse{
		DeliveryID: deliveryID,
		JobID:      job.ID,
		Phase:      job.Phase.String(),
		Kind:       string(kind),
	})
}
