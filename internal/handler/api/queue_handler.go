package api

import (
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// QueueHandler exposes intake queue state to operators
type QueueHandler struct {
	queue   domain.JobQueue
	history domain.JobHistoryUsecase
	role    string
}

// NewQueueHandler creates a new queue handler. history may be nil when the
// audit trail is disabled.
func NewQueueHandler(queue domain.JobQueue, history domain.JobHistoryUsecase, role string) *QueueHandler {
	return &QueueHandler{queue: queue, history: history, role: role}
}

// QueueStatsResponse combines live queue counters with the audit totals
type QueueStatsResponse struct {
	Role    string            `json:"role"`
	Queue   domain.QueueStats `json:"queue"`
	History map[string]int64  `json:"history,omitempty"`
}

// GetStats returns queue counters and, when available, processed totals
func (h *QueueHandler) GetStats(c *gin.Context) {
	resp := QueueStatsResponse{
		Role:  h.role,
		Queue: h.queue.Stats(),
	}

	if h.history != nil {
		counts, err := h.history.GetStatusCounts(c.Request.Context())
		if err != nil {
			logger.Warn("Failed to load job event counts", logger.ErrorField(err))
		} else {
			resp.History = counts
		}
	}

	xresponse.Success(c, "Queue stats retrieved", resp)
}
