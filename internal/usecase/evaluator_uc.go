package usecase

import (
	"context"
	"strings"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

type evaluatorProcessor struct {
	actions domain.JobActionUsecase
}

// NewEvaluatorProcessor creates the processor for a third-party evaluator.
// A delivery is accepted unless its content is empty.
func NewEvaluatorProcessor(actions domain.JobActionUsecase) domain.JobProcessor {
	return &evaluatorProcessor{actions: actions}
}

func (p *evaluatorProcessor) Role() string {
	return domain.RoleEvaluator
}

func (p *evaluatorProcessor) Process(ctx context.Context, item domain.QueueItem) error {
	job := item.Job
	if job == nil {
		return domain.ErrNilJob
	}
	if item.Kind != domain.ItemKindEvaluate || !job.HasMemoWithNextPhase(domain.PhaseCompleted) {
		return domain.ErrNoActionRequired
	}

	accept := strings.TrimSpace(job.Deliverable()) != ""
	reason := ""
	if !accept {
		reason = "Deliverable is empty"
	}

	logger.Info("Evaluating deliverable",
		logger.JobID(job.ID),
		logger.Bool("accept", accept),
	)
	_, err := p.actions.Evaluate(ctx, job, accept, reason)
	return err
}
