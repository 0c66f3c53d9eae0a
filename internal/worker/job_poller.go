package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

const maxPollPages = 20

// JobPoller feeds active jobs from the ACP API into the notifier on a fixed
// interval. It is the polling counterpart of the webhook endpoints.
type JobPoller struct {
	client        domain.ACPClient
	notifier      domain.JobNotifier
	marker        domain.JobStateMarker
	walletAddress string
	interval      time.Duration
	pageSize      int
	markerTTL     time.Duration
}

// JobPollerConfig defines runtime options for the poller.
type JobPollerConfig struct {
	WalletAddress string
	Interval      time.Duration
	PageSize      int
	MarkerTTL     time.Duration
}

// NewJobPoller builds a poller. When marker is nil an in-process marker is
// used, which forgets its state on restart.
func NewJobPoller(client domain.ACPClient, notifier domain.JobNotifier, marker domain.JobStateMarker, cfg JobPollerConfig) *JobPoller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	ttl := cfg.MarkerTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if marker == nil {
		marker = newMemoryMarker(time.Now)
	}

	return &JobPoller{
		client:        client,
		notifier:      notifier,
		marker:        marker,
		walletAddress: strings.ToLower(cfg.WalletAddress),
		interval:      interval,
		pageSize:      pageSize,
		markerTTL:     ttl,
	}
}

// Start launches the poll loop. It blocks until context cancellation.
func (p *JobPoller) Start(ctx context.Context) {
	logger.Info("Job poller started", logger.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Job poller stopping", logger.ErrorField(ctx.Err()))
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every page of active jobs and feeds the states not seen
// before. It returns the number of jobs fed.
func (p *JobPoller) PollOnce(ctx context.Context) int {
	if p.client == nil || p.notifier == nil {
		logger.Warn("Job poller missing dependencies")
		return 0
	}

	fed := 0
	for page := 1; page <= maxPollPages; page++ {
		jobs, err := p.client.ListJobs(ctx, domain.JobListActive, page, p.pageSize)
		if err != nil {
			logger.Error("Failed to fetch active jobs",
				logger.Int("page", page),
				logger.ErrorField(err),
			)
			return fed
		}

		for _, job := range jobs {
			if job == nil || job.Phase.IsTerminal() {
				continue
			}
			if p.feed(ctx, job) {
				fed++
			}
		}

		if len(jobs) < p.pageSize {
			break
		}
	}

	if fed > 0 {
		logger.Info("Active jobs fed to queue", logger.Int("count", fed))
	}
	return fed
}

func (p *JobPoller) feed(ctx context.Context, job *domain.Job) bool {
	key := stateKey(job)

	fresh, err := p.marker.MarkJobState(ctx, key, p.markerTTL)
	if err != nil {
		// feed anyway, duplicate notifications are tolerated
		logger.Warn("Failed to mark job state", logger.JobID(job.ID), logger.ErrorField(err))
		fresh = true
	}
	if !fresh {
		return false
	}

	if p.isEvaluation(job) {
		_, err = p.notifier.OnEvaluate(job)
	} else {
		_, err = p.notifier.OnNewTask(job, pendingMemo(job))
	}

	if err != nil {
		if clearErr := p.marker.ClearJobState(ctx, key); clearErr != nil {
			logger.Warn("Failed to clear job state marker", logger.JobID(job.ID), logger.ErrorField(clearErr))
		}
		return false
	}
	return true
}

func (p *JobPoller) isEvaluation(job *domain.Job) bool {
	return job.Phase == domain.PhaseEvaluation &&
		p.walletAddress != "" &&
		strings.ToLower(job.EvaluatorAddress) == p.walletAddress
}

// pendingMemo is the latest memo still waiting for a signature.
func pendingMemo(job *domain.Job) *domain.Memo {
	memo := job.LatestMemo()
	if memo == nil || memo.Status != domain.MemoStatusPending {
		return nil
	}
	return memo
}

func stateKey(job *domain.Job) string {
	var memoID int64
	if memo := job.LatestMemo(); memo != nil {
		memoID = memo.ID
	}
	return fmt.Sprintf("%d:%s:%d", job.ID, job.Phase, memoID)
}

// NewMemoryMarker creates an in-process JobStateMarker, for when Redis is
// not configured.
func NewMemoryMarker() domain.JobStateMarker {
	return newMemoryMarker(time.Now)
}

type memoryMarker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func newMemoryMarker(now func() time.Time) *memoryMarker {
	return &memoryMarker{entries: make(map[string]time.Time), now: now}
}

func (m *memoryMarker) MarkJobState(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, expiry := range m.entries {
		if now.After(expiry) {
			delete(m.entries, k)
		}
	}

	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = now.Add(ttl)
	return true, nil
}

func (m *memoryMarker) ClearJobState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
