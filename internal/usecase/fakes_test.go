package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alfanzaky/acpagent/internal/domain"
)

type actionCall struct {
	Op          string
	JobID       int64
	MemoID      int64
	Accept      bool
	Amount      float64
	Reason      string
	Deliverable domain.Deliverable
}

type fakeActions struct {
	mu        sync.Mutex
	calls     []actionCall
	initiated []domain.NewJob
	err       error
}

func (f *fakeActions) record(call actionCall) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return "", f.err
	}
	return "0xhash", nil
}

func (f *fakeActions) RespondToJob(_ context.Context, jobID, memoID int64, accept bool, _ *string, reason string) (string, error) {
	return f.record(actionCall{Op: "respond", JobID: jobID, MemoID: memoID, Accept: accept, Reason: reason})
}

func (f *fakeActions) PayJob(_ context.Context, jobID, memoID int64, amount float64, reason string) (string, error) {
	return f.record(actionCall{Op: "pay", JobID: jobID, MemoID: memoID, Amount: amount, Reason: reason})
}

func (f *fakeActions) DeliverJob(_ context.Context, jobID int64, deliverable domain.Deliverable) (string, error) {
	return f.record(actionCall{Op: "deliver", JobID: jobID, Deliverable: deliverable})
}

func (f *fakeActions) SignMemo(_ context.Context, memoID int64, accept bool, reason string) (string, error) {
	return f.record(actionCall{Op: "sign", MemoID: memoID, Accept: accept, Reason: reason})
}

func (f *fakeActions) InitiateJob(_ context.Context, job domain.NewJob) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiated = append(f.initiated, job)
	if f.err != nil {
		return 0, f.err
	}
	return 100 + int64(len(f.initiated)), nil
}

func (f *fakeActions) only() (actionCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) != 1 {
		return actionCall{}, false
	}
	return f.calls[0], true
}

type fakeACPClient struct {
	agents      []*domain.Agent
	agent       *domain.Agent
	browseCalls int
	getCalls    int
	err         error
}

func (c *fakeACPClient) BrowseAgents(context.Context, domain.BrowseAgentsQuery) ([]*domain.Agent, error) {
	c.browseCalls++
	return c.agents, c.err
}

func (c *fakeACPClient) GetAgent(context.Context, string) (*domain.Agent, error) {
	c.getCalls++
	return c.agent, c.err
}

func (c *fakeACPClient) ListJobs(context.Context, domain.JobListStatus, int, int) ([]*domain.Job, error) {
	return nil, c.err
}

func (c *fakeACPClient) GetJob(context.Context, int64) (*domain.Job, error) {
	return nil, c.err
}

func (c *fakeACPClient) GetMemo(context.Context, int64, int64) (*domain.Memo, error) {
	return nil, c.err
}

type memoryAgentCache struct {
	agents   map[string]*domain.Agent
	searches map[string][]*domain.Agent
}

func newMemoryAgentCache() *memoryAgentCache {
	return &memoryAgentCache{
		agents:   make(map[string]*domain.Agent),
		searches: make(map[string][]*domain.Agent),
	}
}

func (c *memoryAgentCache) CacheAgent(_ context.Context, agent *domain.Agent, _ time.Duration) error {
	c.agents[agent.WalletAddress] = agent
	return nil
}

func (c *memoryAgentCache) GetAgent(_ context.Context, wallet string) (*domain.Agent, error) {
	return c.agents[wallet], nil
}

func (c *memoryAgentCache) CacheAgentSearch(_ context.Context, key string, agents []*domain.Agent, _ time.Duration) error {
	c.searches[key] = agents
	return nil
}

func (c *memoryAgentCache) GetAgentSearch(_ context.Context, key string) ([]*domain.Agent, error) {
	return c.searches[key], nil
}

type memoryEventRepo struct {
	events []*domain.JobEvent
	limit  int
}

func (r *memoryEventRepo) Create(_ context.Context, event *domain.JobEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *memoryEventRepo) ListByJobID(_ context.Context, jobID int64, limit int) ([]*domain.JobEvent, error) {
	r.limit = limit
	var out []*domain.JobEvent
	for _, e := range r.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) CountByStatus(context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, e := range r.events {
		counts[e.Status]++
	}
	return counts, nil
}

var errRelay = errors.New("relay unavailable")

func memo(id int64, next domain.JobPhase) *domain.Memo {
	return &domain.Memo{ID: id, NextPhase: next, Status: domain.MemoStatusPending}
}
