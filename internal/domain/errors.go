package domain

import (
	"errors"
	"fmt"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")

	ErrNoNegotiationMemo = errors.New("no negotiation memo found")
	ErrNoTransactionMemo = errors.New("no transaction memo found")
	ErrNoDeliveryMemo    = errors.New("no delivery memo found")
	ErrNoEvaluationMemo  = errors.New("no evaluation memo found")
	ErrNilJob            = errors.New("job is required")
	ErrNoActionRequired  = errors.New("no action required for job state")
	ErrUnknownRole       = errors.New("unknown agent role")

	ErrAgentNotFound = errors.New("agent not found")
	ErrJobNotFound   = errors.New("job not found")

	ErrOfferingNotFound   = errors.New("offering not found")
	ErrSelfInitiate       = errors.New("cannot initiate a job with yourself as the provider")
	ErrInvalidRequirement = errors.New("invalid service requirement")
	ErrInvalidExpiry      = errors.New("job expiry must be in the future")
)

// ACPErrorKind classifies failures talking to the ACP backend.
type ACPErrorKind string

const (
	ACPErrorAPI               ACPErrorKind = "api"
	ACPErrorContract          ACPErrorKind = "contract"
	ACPErrorTransactionFailed ACPErrorKind = "transaction_failed"
)

// ACPError wraps a failure from the ACP backend or the action relay.
type ACPError struct {
	Kind       ACPErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *ACPError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("acp %s error during %s (status %d): %v", e.Kind, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("acp %s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ACPError) Unwrap() error {
	return e.Err
}

// IsACPError reports whether err carries an ACPError of the given kind.
func IsACPError(err error, kind ACPErrorKind) bool {
	var acpErr *ACPError
	if !errors.As(err, &acpErr) {
		return false
	}
	return acpErr.Kind == kind
}
