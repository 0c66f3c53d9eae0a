package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
)

type jobInitiationUsecase struct {
	agents        domain.AgentUsecase
	actions       domain.JobActions
	walletAddress string
	now           func() time.Time
}

// NewJobInitiationUsecase creates the buyer side entry point: it resolves the
// provider's offering, checks the requirement against the offering schema and
// asks the relay to open the job.
func NewJobInitiationUsecase(agents domain.AgentUsecase, actions domain.JobActions, walletAddress string) domain.JobInitiationUsecase {
	return &jobInitiationUsecase{
		agents:        agents,
		actions:       actions,
		walletAddress: walletAddress,
		now:           time.Now,
	}
}

func (uc *jobInitiationUsecase) Initiate(ctx context.Context, req domain.InitiateJobRequest) (*domain.InitiatedJob, error) {
	provider := strings.TrimSpace(req.ProviderAddress)
	if provider == "" {
		return nil, fmt.Errorf("provider address is required")
	}
	if strings.EqualFold(provider, uc.walletAddress) {
		return nil, domain.ErrSelfInitiate
	}
	if req.Requirement == nil {
		return nil, fmt.Errorf("%w: requirement is required", domain.ErrInvalidRequirement)
	}

	now := uc.now()
	expiredAt := req.ExpiredAt
	if expiredAt.IsZero() {
		expiredAt = now.Add(domain.DefaultJobExpiry)
	}
	if !expiredAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}

	evaluator := strings.TrimSpace(req.EvaluatorAddress)
	if evaluator == "" {
		evaluator = uc.walletAddress
	}

	agent, err := uc.agents.GetAgent(ctx, provider)
	if err != nil {
		return nil, err
	}
	offering := findOffering(agent, req.OfferingName)
	if offering == nil {
		return nil, fmt.Errorf("%w: %q on agent %s", domain.ErrOfferingNotFound, req.OfferingName, provider)
	}

	if err := validateRequirement(offering.RequirementSchema, req.Requirement); err != nil {
		return nil, err
	}

	requirement := map[string]interface{}{"name": offering.Name}
	if text, ok := req.Requirement.(string); ok {
		requirement["message"] = text
	} else {
		requirement["serviceRequirement"] = req.Requirement
	}

	jobID, err := uc.actions.InitiateJob(ctx, domain.NewJob{
		ClientAddress:      uc.walletAddress,
		ProviderAddress:    provider,
		EvaluatorAddress:   evaluator,
		Price:              offering.Price,
		ExpiredAt:          expiredAt,
		ServiceRequirement: requirement,
	})
	if err != nil {
		metrics.RecordJobAction("initiate", "failed")
		logger.Error("Failed to initiate job",
			logger.String("provider", provider),
			logger.String("offering", offering.Name),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("initiate job with %s: %w", provider, err)
	}

	metrics.RecordJobAction("initiate", "success")
	logger.Info("Job initiated",
		logger.JobID(jobID),
		logger.String("provider", provider),
		logger.String("offering", offering.Name),
		logger.Float64("price", offering.Price),
	)

	return &domain.InitiatedJob{
		JobID:            jobID,
		ProviderAddress:  provider,
		EvaluatorAddress: evaluator,
		Offering:         offering.Name,
		Price:            offering.Price,
		ExpiredAt:        expiredAt,
	}, nil
}

// findOffering matches by name, ignoring case. An empty name picks the only
// offering of a single-offering agent.
func findOffering(agent *domain.Agent, name string) *domain.Offering {
	if agent == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		if len(agent.Offerings) == 1 {
			return agent.Offerings[0]
		}
		return nil
	}
	for _, offering := range agent.Offerings {
		if offering != nil && strings.EqualFold(offering.Name, name) {
			return offering
		}
	}
	return nil
}

func validateRequirement(schema map[string]interface{}, requirement interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode requirement schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("requirement.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to load requirement schema: %w", err)
	}
	compiled, err := compiler.Compile("requirement.json")
	if err != nil {
		return fmt.Errorf("failed to compile requirement schema: %w", err)
	}

	// round trip so the validator sees plain JSON values
	encoded, err := json.Marshal(requirement)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequirement, err)
	}
	var value interface{}
	if err := json.Unmarshal(encoded, &value); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequirement, err)
	}

	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequirement, err)
	}
	return nil
}
