package usecase

import (
	"context"
	"fmt"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
)

type jobActionUsecase struct {
	actions domain.JobActions
}

// NewJobActionUsecase creates the job handle API on top of an action relay
func NewJobActionUsecase(actions domain.JobActions) domain.JobActionUsecase {
	return &jobActionUsecase{actions: actions}
}

// Respond accepts or rejects the negotiation memo at the head of the job
func (uc *jobActionUsecase) Respond(ctx context.Context, job *domain.Job, accept bool, content *string, reason string) (string, error) {
	if job == nil {
		return "", domain.ErrNilJob
	}

	memo := job.LatestMemo()
	if memo == nil || memo.NextPhase != domain.PhaseNegotiation {
		return "", domain.ErrNoNegotiationMemo
	}

	if reason == "" {
		reason = fmt.Sprintf("Job %d %s", job.ID, acceptWord(accept))
	}

	txHash, err := uc.actions.RespondToJob(ctx, job.ID, memo.ID, accept, content, reason)
	return uc.finish("respond", job, txHash, err)
}

// Pay signs the first memo leading into TRANSACTION for amount
func (uc *jobActionUsecase) Pay(ctx context.Context, job *domain.Job, amount float64, reason string) (string, error) {
	if job == nil {
		return "", domain.ErrNilJob
	}

	memo := job.FirstMemoWithNextPhase(domain.PhaseTransaction)
	if memo == nil {
		return "", domain.ErrNoTransactionMemo
	}

	if reason == "" {
		reason = fmt.Sprintf("Job %d paid", job.ID)
	}

	txHash, err := uc.actions.PayJob(ctx, job.ID, memo.ID, amount, reason)
	return uc.finish("pay", job, txHash, err)
}

// Deliver hands the deliverable over once the job is waiting for it
func (uc *jobActionUsecase) Deliver(ctx context.Context, job *domain.Job, deliverable domain.Deliverable) (string, error) {
	if job == nil {
		return "", domain.ErrNilJob
	}

	memo := job.LatestMemo()
	if memo == nil || memo.NextPhase != domain.PhaseEvaluation {
		return "", domain.ErrNoDeliveryMemo
	}

	txHash, err := uc.actions.DeliverJob(ctx, job.ID, deliverable)
	return uc.finish("deliver", job, txHash, err)
}

// Evaluate signs the delivery memo with the evaluator's verdict
func (uc *jobActionUsecase) Evaluate(ctx context.Context, job *domain.Job, accept bool, reason string) (string, error) {
	if job == nil {
		return "", domain.ErrNilJob
	}

	memo := job.LatestMemo()
	if memo == nil || memo.NextPhase != domain.PhaseCompleted {
		return "", domain.ErrNoEvaluationMemo
	}

	if reason == "" {
		reason = fmt.Sprintf("Job %d delivery %s", job.ID, acceptWord(accept))
	}

	txHash, err := uc.actions.SignMemo(ctx, memo.ID, accept, reason)
	return uc.finish("evaluate", job, txHash, err)
}

func (uc *jobActionUsecase) finish(action string, job *domain.Job, txHash string, err error) (string, error) {
	if err != nil {
		metrics.RecordJobAction(action, "failed")
		logger.Error("Job action failed",
			logger.String("action", action),
			logger.JobID(job.ID),
			logger.ErrorField(err),
		)
		return "", fmt.Errorf("%s job %d: %w", action, job.ID, err)
	}

	metrics.RecordJobAction(action, "success")
	logger.Info("Job action submitted",
		logger.String("action", action),
		logger.JobID(job.ID),
		logger.String("tx_hash", txHash),
	)
	return txHash, nil
}

func acceptWord(accept bool) string {
	if accept {
		return "accepted"
	}
	return "rejected"
}
