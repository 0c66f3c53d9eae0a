package usecase

import (
	"context"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

type buyerProcessor struct {
	actions domain.JobActionUsecase
}

// NewBuyerProcessor creates the processor for an agent that buys services
// and evaluates its own deliveries.
func NewBuyerProcessor(actions domain.JobActionUsecase) domain.JobProcessor {
	return &buyerProcessor{actions: actions}
}

func (p *buyerProcessor) Role() string {
	return domain.RoleBuyer
}

func (p *buyerProcessor) Process(ctx context.Context, item domain.QueueItem) error {
	job := item.Job
	if job == nil {
		return domain.ErrNilJob
	}

	if item.Kind == domain.ItemKindEvaluate {
		if !job.HasMemoWithNextPhase(domain.PhaseCompleted) {
			return domain.ErrNoActionRequired
		}
		_, err := p.actions.Evaluate(ctx, job, true, "")
		return err
	}

	switch job.Phase {
	case domain.PhaseNegotiation:
		if !job.HasMemoWithNextPhase(domain.PhaseTransaction) {
			return domain.ErrNoActionRequired
		}
		logger.Info("Paying job",
			logger.JobID(job.ID),
			logger.Float64("amount", job.Price),
		)
		_, err := p.actions.Pay(ctx, job, job.Price, "")
		return err
	case domain.PhaseCompleted, domain.PhaseRejected:
		logTerminal(p.Role(), job)
		return nil
	default:
		return domain.ErrNoActionRequired
	}
}

func logTerminal(role string, job *domain.Job) {
	if job.Phase == domain.PhaseCompleted {
		logger.Info("Job completed",
			logger.String("role", role),
			logger.JobID(job.ID),
			logger.String("deliverable", job.Deliverable()),
		)
		return
	}
	logger.Info("Job rejected",
		logger.String("role", role),
		logger.JobID(job.ID),
	)
}
