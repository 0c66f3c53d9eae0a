// Package acp talks to the ACP backend: the REST API for reads and the
// action relay for signed writes.
package acp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/metrics"
	"github.com/alfanzaky/acpagent/pkg/observability"
)

const (
	agentSearchEndpoint = "/agents/v2/search"
	agentsEndpoint      = "/agents"
	jobsEndpoint        = "/jobs"

	sdkLanguage = "go"
)

// Client implements domain.ACPClient over the ACP REST API.
type Client struct {
	cfg           config.ACPConfig
	walletAddress string
	httpClient    *http.Client
	timeout       time.Duration
}

var _ domain.ACPClient = (*Client)(nil)

// NewClient creates a new ACP API client acting as walletAddress
func NewClient(cfg config.ACPConfig, walletAddress string, client *http.Client) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		cfg:           cfg,
		walletAddress: walletAddress,
		httpClient:    client,
		timeout:       timeout,
	}
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BrowseAgents searches agents by keyword. The calling agent is excluded.
func (c *Client) BrowseAgents(ctx context.Context, query domain.BrowseAgentsQuery) ([]*domain.Agent, error) {
	params := url.Values{}
	params.Set("search", query.Keyword)
	if len(query.SortBy) > 0 {
		sorts := make([]string, 0, len(query.SortBy))
		for _, s := range query.SortBy {
			sorts = append(sorts, string(s))
		}
		params.Set("sortBy", strings.Join(sorts, ","))
	}
	if query.TopK > 0 {
		params.Set("top_k", strconv.Itoa(query.TopK))
	}
	if c.walletAddress != "" {
		params.Set("walletAddressesToExclude", c.walletAddress)
	}
	if query.Cluster != "" {
		params.Set("cluster", query.Cluster)
	}
	if query.GraduationStatus != "" {
		params.Set("graduationStatus", string(query.GraduationStatus))
	}
	if query.OnlineStatus != "" {
		params.Set("onlineStatus", string(query.OnlineStatus))
	}

	var wire []wireAgent
	if err := c.doGet(ctx, "browse_agents", agentSearchEndpoint, params, &wire); err != nil {
		return nil, err
	}

	agents := make([]*domain.Agent, 0, len(wire))
	for i := range wire {
		agents = append(agents, wire[i].toDomain())
	}
	return agents, nil
}

// GetAgent resolves an agent by wallet address
func (c *Client) GetAgent(ctx context.Context, walletAddress string) (*domain.Agent, error) {
	params := url.Values{}
	params.Set("filters[walletAddress]", walletAddress)

	var wire []wireAgent
	if err := c.doGet(ctx, "get_agent", agentsEndpoint, params, &wire); err != nil {
		return nil, err
	}
	if len(wire) == 0 {
		return nil, domain.ErrAgentNotFound
	}
	return wire[0].toDomain(), nil
}

// ListJobs returns one page of the agent's jobs in the given listing
func (c *Client) ListJobs(ctx context.Context, status domain.JobListStatus, page, pageSize int) ([]*domain.Job, error) {
	switch status {
	case domain.JobListActive, domain.JobListCompleted, domain.JobListCancelled:
	default:
		return nil, fmt.Errorf("unknown job listing %q", status)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	params := url.Values{}
	params.Set("pagination[page]", strconv.Itoa(page))
	params.Set("pagination[pageSize]", strconv.Itoa(pageSize))

	var wire []wireJob
	if err := c.doGet(ctx, "list_jobs_"+string(status), jobsEndpoint+"/"+string(status), params, &wire); err != nil {
		return nil, err
	}

	jobs := make([]*domain.Job, 0, len(wire))
	for i := range wire {
		job, err := wire[i].toDomain()
		if err != nil {
			return nil, &domain.ACPError{Kind: domain.ACPErrorAPI, Op: "list_jobs", Err: err}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// GetActiveJobs returns one page of jobs still in progress
func (c *Client) GetActiveJobs(ctx context.Context, page, pageSize int) ([]*domain.Job, error) {
	return c.ListJobs(ctx, domain.JobListActive, page, pageSize)
}

// GetCompletedJobs returns one page of completed jobs
func (c *Client) GetCompletedJobs(ctx context.Context, page, pageSize int) ([]*domain.Job, error) {
	return c.ListJobs(ctx, domain.JobListCompleted, page, pageSize)
}

// GetCancelledJobs returns one page of cancelled jobs
func (c *Client) GetCancelledJobs(ctx context.Context, page, pageSize int) ([]*domain.Job, error) {
	return c.ListJobs(ctx, domain.JobListCancelled, page, pageSize)
}

// GetJob fetches a job by its on-chain id
func (c *Client) GetJob(ctx context.Context, jobID int64) (*domain.Job, error) {
	var wire *wireJob
	path := fmt.Sprintf("%s/%d", jobsEndpoint, jobID)
	if err := c.doGet(ctx, "get_job", path, nil, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, domain.ErrJobNotFound
	}

	job, err := wire.toDomain()
	if err != nil {
		return nil, &domain.ACPError{Kind: domain.ACPErrorAPI, Op: "get_job", Err: err}
	}
	return job, nil
}

// GetMemo fetches a single memo of a job
func (c *Client) GetMemo(ctx context.Context, jobID, memoID int64) (*domain.Memo, error) {
	var wire *wireMemo
	path := fmt.Sprintf("%s/%d/memos/%d", jobsEndpoint, jobID, memoID)
	if err := c.doGet(ctx, "get_memo", path, nil, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, fmt.Errorf("memo %d of job %d: %w", memoID, jobID, domain.ErrJobNotFound)
	}

	memo, err := wire.toDomain()
	if err != nil {
		return nil, &domain.ACPError{Kind: domain.ACPErrorAPI, Op: "get_memo", Err: err}
	}
	return memo, nil
}

// Helper: perform HTTP GET and decode the data field of the API envelope
func (c *Client) doGet(ctx context.Context, op, path string, params url.Values, target interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.endpoint(path)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-sdk-version", c.cfg.SDKVersion)
	req.Header.Set("x-sdk-language", sdkLanguage)
	if c.walletAddress != "" {
		req.Header.Set("wallet-address", c.walletAddress)
	}
	if traceID := observability.GetTraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(observability.TraceIDHeader, traceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordACPRequest(op, "error", time.Since(start).Seconds())
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordACPRequest(op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var envelope apiEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if decodeErr != nil {
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if envelope.Error != nil {
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: errors.New(envelope.Error.Message)}
	}

	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return &domain.ACPError{Kind: domain.ACPErrorAPI, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode data: %w", err)}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.cfg.APIURL, "/")
	return base + path
}
