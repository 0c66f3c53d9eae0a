package domain

import (
	"context"
	"time"
)

// DefaultJobExpiry applies when an initiation does not set ExpiredAt.
const DefaultJobExpiry = 24 * time.Hour

// InitiateJobRequest asks a provider to start work on one of its offerings.
type InitiateJobRequest struct {
	ProviderAddress  string
	OfferingName     string
	Requirement      interface{}
	EvaluatorAddress string
	ExpiredAt        time.Time
}

// NewJob is the job the relay opens on behalf of the buyer.
type NewJob struct {
	ClientAddress      string                 `json:"clientAddress"`
	ProviderAddress    string                 `json:"providerAddress"`
	EvaluatorAddress   string                 `json:"evaluatorAddress"`
	Price              float64                `json:"price"`
	ExpiredAt          time.Time              `json:"expiredAt"`
	ServiceRequirement map[string]interface{} `json:"serviceRequirement"`
}

// InitiatedJob reports the job the backend opened.
type InitiatedJob struct {
	JobID            int64     `json:"job_id"`
	ProviderAddress  string    `json:"provider_address"`
	EvaluatorAddress string    `json:"evaluator_address"`
	Offering         string    `json:"offering"`
	Price            float64   `json:"price"`
	ExpiredAt        time.Time `json:"expired_at"`
}

// JobInitiationUsecase opens jobs against other agents' offerings.
type JobInitiationUsecase interface {
	Initiate(ctx context.Context, req InitiateJobRequest) (*InitiatedJob, error)
}

// DeliverableBuilder produces what the seller hands over for a paid job.
type DeliverableBuilder interface {
	Build(ctx context.Context, job *Job) (Deliverable, error)
}
