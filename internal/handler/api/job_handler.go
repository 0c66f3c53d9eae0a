package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// JobHandler serves job state from the ACP backend and the local audit trail
type JobHandler struct {
	client    domain.ACPClient
	initiator domain.JobInitiationUsecase
	history   domain.JobHistoryUsecase
}

// NewJobHandler creates a new job handler. initiator and history may be nil.
func NewJobHandler(client domain.ACPClient, initiator domain.JobInitiationUsecase, history domain.JobHistoryUsecase) *JobHandler {
	return &JobHandler{client: client, initiator: initiator, history: history}
}

// InitiateJobRequest opens a job with another agent's offering
type InitiateJobRequest struct {
	ProviderAddress  string      `json:"provider_address" binding:"required"`
	Offering         string      `json:"offering"`
	Requirement      interface{} `json:"requirement" binding:"required"`
	EvaluatorAddress string      `json:"evaluator_address"`
	ExpiresIn        string      `json:"expires_in"`
	ExpiredAt        *time.Time  `json:"expired_at"`
}

func (r InitiateJobRequest) toDomain() (domain.InitiateJobRequest, error) {
	if err := config.ValidateWalletAddress(r.ProviderAddress); err != nil {
		return domain.InitiateJobRequest{}, err
	}
	if r.EvaluatorAddress != "" {
		if err := config.ValidateWalletAddress(r.EvaluatorAddress); err != nil {
			return domain.InitiateJobRequest{}, err
		}
	}

	req := domain.InitiateJobRequest{
		ProviderAddress:  r.ProviderAddress,
		OfferingName:     r.Offering,
		Requirement:      r.Requirement,
		EvaluatorAddress: r.EvaluatorAddress,
	}
	switch {
	case r.ExpiredAt != nil:
		req.ExpiredAt = *r.ExpiredAt
	case r.ExpiresIn != "":
		ttl, err := time.ParseDuration(r.ExpiresIn)
		if err != nil {
			return domain.InitiateJobRequest{}, err
		}
		req.ExpiredAt = time.Now().Add(ttl)
	}
	return req, nil
}

// InitiateJob opens a job as the buyer
func (h *JobHandler) InitiateJob(c *gin.Context) {
	if h.initiator == nil {
		xresponse.ServiceUnavailable(c, "Job initiation is not enabled")
		return
	}

	var body InitiateJobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		xresponse.ValidationError(c, err.Error())
		return
	}
	req, err := body.toDomain()
	if err != nil {
		xresponse.BadRequest(c, err.Error())
		return
	}

	job, err := h.initiator.Initiate(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfInitiate),
			errors.Is(err, domain.ErrInvalidRequirement),
			errors.Is(err, domain.ErrInvalidExpiry):
			xresponse.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrAgentNotFound), errors.Is(err, domain.ErrOfferingNotFound):
			xresponse.NotFound(c, err.Error())
		default:
			logger.Error("Failed to initiate job",
				logger.String("provider", req.ProviderAddress),
				logger.ErrorField(err),
			)
			respondACPError(c, err, "Failed to initiate job")
		}
		return
	}

	xresponse.Created(c, "Job initiated", job)
}

// GetJob fetches the current job state
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := h.client.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			xresponse.NotFound(c, "Job not found")
			return
		}
		logger.Error("Failed to get job", logger.JobID(jobID), logger.ErrorField(err))
		respondACPError(c, err, "Failed to get job")
		return
	}

	xresponse.Success(c, "Job retrieved", job)
}

// GetJobEvents lists what the worker did with a job
func (h *JobHandler) GetJobEvents(c *gin.Context) {
	if h.history == nil {
		xresponse.ServiceUnavailable(c, "Job history is not enabled")
		return
	}

	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.history.GetJobEvents(c.Request.Context(), jobID, limit)
	if err != nil {
		logger.Error("Failed to get job events", logger.JobID(jobID), logger.ErrorField(err))
		xresponse.InternalServerError(c, "Failed to get job events")
		return
	}

	xresponse.Success(c, "Job events retrieved", gin.H{
		"job_id": jobID,
		"events": events,
		"count":  len(events),
	})
}

func parseJobID(c *gin.Context) (int64, bool) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || jobID <= 0 {
		xresponse.BadRequest(c, "Invalid job ID")
		return 0, false
	}
	return jobID, true
}
