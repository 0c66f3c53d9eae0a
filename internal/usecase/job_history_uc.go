package usecase

import (
	"context"
	"fmt"

	"github.com/alfanzaky/acpagent/internal/domain"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type jobHistoryUsecase struct {
	eventRepo domain.JobEventRepository
}

// NewJobHistoryUsecase creates the audit trail use case
func NewJobHistoryUsecase(eventRepo domain.JobEventRepository) domain.JobHistoryUsecase {
	return &jobHistoryUsecase{eventRepo: eventRepo}
}

func (uc *jobHistoryUsecase) Record(ctx context.Context, event *domain.JobEvent) error {
	if event == nil {
		return fmt.Errorf("job event is required")
	}
	if event.DeliveryID == "" {
		return fmt.Errorf("delivery id is required")
	}

	switch event.Status {
	case domain.EventStatusProcessed, domain.EventStatusSkipped, domain.EventStatusFailed:
	default:
		return fmt.Errorf("invalid job event status %q", event.Status)
	}

	return uc.eventRepo.Create(ctx, event)
}

func (uc *jobHistoryUsecase) GetJobEvents(ctx context.Context, jobID int64, limit int) ([]*domain.JobEvent, error) {
	if jobID <= 0 {
		return nil, fmt.Errorf("invalid job id")
	}

	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	return uc.eventRepo.ListByJobID(ctx, jobID, limit)
}

func (uc *jobHistoryUsecase) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	return uc.eventRepo.CountByStatus(ctx)
}
