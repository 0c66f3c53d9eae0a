package acp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
)

// RetryConfig defines how transient relay failures are retried
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	EnableJitter      bool
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      2 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

func (r RetryConfig) delay(attempt int) time.Duration {
	d := float64(r.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= r.BackoffMultiplier
	}
	if limit := float64(r.MaxDelay); limit > 0 && d > limit {
		d = limit
	}
	if r.EnableJitter && d > 0 {
		d = d/2 + rand.Float64()*d/2
	}
	return time.Duration(d)
}

// Relay implements domain.JobActions by forwarding each action to the
// service that holds the agent's wallet and submits the transactions.
// Every action carries an Idempotency-Key that stays the same across
// retries of that action.
type Relay struct {
	cfg           config.ACPConfig
	walletAddress string
	entityID      int64
	httpClient    *http.Client
	timeout       time.Duration
	retry         RetryConfig
}

var _ domain.JobActions = (*Relay)(nil)

// NewRelay creates a new action relay client
func NewRelay(cfg config.ACPConfig, agent config.AgentConfig, client *http.Client) *Relay {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	retry := DefaultRetryConfig()
	if cfg.ActionMaxAttempts > 0 {
		retry.MaxAttempts = cfg.ActionMaxAttempts
	}
	if cfg.ActionRetryDelay > 0 {
		retry.InitialDelay = cfg.ActionRetryDelay
	}

	return &Relay{
		cfg:           cfg,
		walletAddress: agent.WalletAddress,
		entityID:      agent.EntityID,
		httpClient:    client,
		timeout:       timeout,
		retry:         retry,
	}
}

// WithRetry overrides the retry policy
func (r *Relay) WithRetry(retry RetryConfig) *Relay {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	r.retry = retry
	return r
}

type respondRequest struct {
	MemoID  int64   `json:"memoId"`
	Accept  bool    `json:"accept"`
	Content *string `json:"content,omitempty"`
	Reason  string  `json:"reason"`
}

type payRequest struct {
	MemoID int64   `json:"memoId"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type deliverRequest struct {
	Deliverable domain.Deliverable `json:"deliverable"`
}

type signRequest struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason"`
}

type initiateRequest struct {
	ClientAddress      string                 `json:"clientAddress"`
	ProviderAddress    string                 `json:"providerAddress"`
	EvaluatorAddress   string                 `json:"evaluatorAddress"`
	Price              float64                `json:"price"`
	ExpiredAt          string                 `json:"expiredAt"`
	ServiceRequirement map[string]interface{} `json:"serviceRequirement"`
}

type relayResponse struct {
	TxHash string `json:"txHash"`
	JobID  int64  `json:"jobId"`
	Data   *struct {
		TxHash string `json:"txHash"`
		JobID  int64  `json:"jobId"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *relayResponse) txHash() string {
	if r.TxHash == "" && r.Data != nil {
		return r.Data.TxHash
	}
	return r.TxHash
}

func (r *relayResponse) jobID() int64 {
	if r.JobID == 0 && r.Data != nil {
		return r.Data.JobID
	}
	return r.JobID
}

func (r *Relay) RespondToJob(ctx context.Context, jobID, memoID int64, accept bool, content *string, reason string) (string, error) {
	path := fmt.Sprintf("/jobs/%d/respond", jobID)
	return r.submitTx(ctx, "respond", path, respondRequest{MemoID: memoID, Accept: accept, Content: content, Reason: reason})
}

func (r *Relay) PayJob(ctx context.Context, jobID, memoID int64, amount float64, reason string) (string, error) {
	path := fmt.Sprintf("/jobs/%d/pay", jobID)
	return r.submitTx(ctx, "pay", path, payRequest{MemoID: memoID, Amount: amount, Reason: reason})
}

func (r *Relay) DeliverJob(ctx context.Context, jobID int64, deliverable domain.Deliverable) (string, error) {
	path := fmt.Sprintf("/jobs/%d/deliver", jobID)
	return r.submitTx(ctx, "deliver", path, deliverRequest{Deliverable: deliverable})
}

func (r *Relay) SignMemo(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	path := fmt.Sprintf("/memos/%d/sign", memoID)
	return r.submitTx(ctx, "sign", path, signRequest{Accept: accept, Reason: reason})
}

// InitiateJob opens a job with the provider and returns the id the
// backend assigned to it.
func (r *Relay) InitiateJob(ctx context.Context, job domain.NewJob) (int64, error) {
	resp, err := r.submit(ctx, "initiate", "/jobs", initiateRequest{
		ClientAddress:      job.ClientAddress,
		ProviderAddress:    job.ProviderAddress,
		EvaluatorAddress:   job.EvaluatorAddress,
		Price:              job.Price,
		ExpiredAt:          job.ExpiredAt.UTC().Format(time.RFC3339),
		ServiceRequirement: job.ServiceRequirement,
	})
	if err != nil {
		return 0, err
	}

	jobID := resp.jobID()
	if jobID <= 0 {
		return 0, &domain.ACPError{Kind: domain.ACPErrorAPI, Op: "initiate", Err: errors.New("relay response carries no job id")}
	}
	return jobID, nil
}

func (r *Relay) submitTx(ctx context.Context, op, path string, payload interface{}) (string, error) {
	resp, err := r.submit(ctx, op, path, payload)
	if err != nil {
		return "", err
	}
	return resp.txHash(), nil
}

// errRetryable marks failures worth another attempt.
var errRetryable = errors.New("retryable relay failure")

func (r *Relay) submit(ctx context.Context, op, path string, payload interface{}) (*relayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	idempotencyKey := uuid.New().String()
	var lastErr error

	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := r.retry.delay(attempt - 1)
			logger.Warn("Retrying relay action",
				logger.String("action", op),
				logger.Int("attempt", attempt),
				logger.Duration("delay", wait),
				logger.ErrorField(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := r.doPost(ctx, op, path, idempotencyKey, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, errRetryable) {
			break
		}
	}

	kind := domain.ACPErrorTransactionFailed
	status := 0
	var acpErr *domain.ACPError
	if errors.As(lastErr, &acpErr) {
		kind = acpErr.Kind
		status = acpErr.StatusCode
		lastErr = acpErr.Err
	}
	return nil, &domain.ACPError{Kind: kind, Op: op, StatusCode: status, Err: lastErr}
}

// Helper: perform one HTTP POST against the relay
func (r *Relay) doPost(ctx context.Context, op, path, idempotencyKey string, body []byte) (*relayResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.Header.Set("wallet-address", r.walletAddress)
	req.Header.Set("x-entity-id", strconv.FormatInt(r.entityID, 10))
	req.Header.Set("x-sdk-language", sdkLanguage)
	if r.cfg.ActionToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.ActionToken)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.RecordACPRequest("relay_"+op, "error", time.Since(start).Seconds())
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()
	metrics.RecordACPRequest("relay_"+op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}

	var decoded relayResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &domain.ACPError{
				Kind:       domain.ACPErrorTransactionFailed,
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %s", errRetryable, msg),
			}
		}
		return nil, &domain.ACPError{Kind: domain.ACPErrorContract, Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	if decodeErr != nil {
		return nil, &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode relay response: %w", decodeErr)}
	}

	return &decoded, nil
}

func (r *Relay) endpoint(path string) string {
	base := strings.TrimRight(r.cfg.ActionURL, "/")
	return base + path
}
