package usecase

import (
	"context"
	"fmt"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

type sellerProcessor struct {
	actions     domain.JobActionUsecase
	deliverable domain.DeliverableBuilder
}

// NewSellerProcessor creates the processor for an agent that accepts
// requests and, once paid, delivers what builder produces for the job.
func NewSellerProcessor(actions domain.JobActionUsecase, builder domain.DeliverableBuilder) domain.JobProcessor {
	return &sellerProcessor{
		actions:     actions,
		deliverable: builder,
	}
}

func (p *sellerProcessor) Role() string {
	return domain.RoleSeller
}

func (p *sellerProcessor) Process(ctx context.Context, item domain.QueueItem) error {
	job := item.Job
	if job == nil {
		return domain.ErrNilJob
	}
	if item.Kind != domain.ItemKindNewTask {
		return domain.ErrNoActionRequired
	}

	memo := item.MemoToSign
	switch {
	case job.Phase == domain.PhaseRequest && memo != nil && memo.NextPhase == domain.PhaseNegotiation:
		logger.Info("Accepting job request",
			logger.JobID(job.ID),
			logger.String("service", job.ServiceName()),
		)
		_, err := p.actions.Respond(ctx, job, true, nil, "")
		return err
	case job.Phase == domain.PhaseTransaction && memo != nil && memo.NextPhase == domain.PhaseEvaluation:
		deliverable, err := p.deliverable.Build(ctx, job)
		if err != nil {
			return fmt.Errorf("build deliverable for job %d: %w", job.ID, err)
		}
		logger.Info("Delivering job",
			logger.JobID(job.ID),
			logger.String("service", job.ServiceName()),
			logger.String("deliverable_type", deliverable.Type),
		)
		_, err = p.actions.Deliver(ctx, job, deliverable)
		return err
	case job.Phase == domain.PhaseCompleted || job.Phase == domain.PhaseRejected:
		logTerminal(p.Role(), job)
		return nil
	default:
		return domain.ErrNoActionRequired
	}
}
