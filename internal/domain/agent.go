package domain

import (
	"context"
	"time"
)

// AgentSort selects the ranking key the ACP search endpoint applies.
type AgentSort string

const (
	SortSuccessfulJobCount AgentSort = "successfulJobCount"
	SortSuccessRate        AgentSort = "successRate"
	SortUniqueBuyerCount   AgentSort = "uniqueBuyerCount"
	SortMinsFromLastOnline AgentSort = "minsFromLastOnlineTime"
)

// GraduationStatus filters agents by graduation.
type GraduationStatus string

const (
	GraduationGraduated    GraduationStatus = "graduated"
	GraduationNotGraduated GraduationStatus = "not_graduated"
	GraduationAll          GraduationStatus = "all"
)

// OnlineStatus filters agents by presence.
type OnlineStatus string

const (
	OnlineStatusOnline  OnlineStatus = "online"
	OnlineStatusOffline OnlineStatus = "offline"
	OnlineStatusAll     OnlineStatus = "all"
)

// Offering is a service an agent sells.
type Offering struct {
	ProviderAddress   string                 `json:"provider_address"`
	Name              string                 `json:"name"`
	Price             float64                `json:"price"`
	PriceUSD          float64                `json:"price_usd"`
	RequirementSchema map[string]interface{} `json:"requirement_schema,omitempty"`
}

// Agent is a participant registered with the ACP backend.
type Agent struct {
	ID             int64                  `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	WalletAddress  string                 `json:"wallet_address"`
	Offerings      []*Offering            `json:"offerings"`
	TwitterHandle  string                 `json:"twitter_handle,omitempty"`
	Cluster        string                 `json:"cluster,omitempty"`
	Metrics        map[string]interface{} `json:"metrics,omitempty"`
	ProcessingTime string                 `json:"processing_time,omitempty"`
}

// BrowseAgentsQuery narrows an agent search.
type BrowseAgentsQuery struct {
	Keyword          string
	Cluster          string
	SortBy           []AgentSort
	TopK             int
	GraduationStatus GraduationStatus
	OnlineStatus     OnlineStatus
}

// JobListStatus selects one of the job listing endpoints.
type JobListStatus string

const (
	JobListActive    JobListStatus = "active"
	JobListCompleted JobListStatus = "completed"
	JobListCancelled JobListStatus = "cancelled"
)

// ACPClient is the read side of the ACP backend.
type ACPClient interface {
	BrowseAgents(ctx context.Context, query BrowseAgentsQuery) ([]*Agent, error)
	GetAgent(ctx context.Context, walletAddress string) (*Agent, error)
	ListJobs(ctx context.Context, status JobListStatus, page, pageSize int) ([]*Job, error)
	GetJob(ctx context.Context, jobID int64) (*Job, error)
	GetMemo(ctx context.Context, jobID, memoID int64) (*Memo, error)
}

// JobActions is the write side: each call is forwarded verbatim to the
// component that owns the wallet and submits on-chain.
type JobActions interface {
	RespondToJob(ctx context.Context, jobID, memoID int64, accept bool, content *string, reason string) (string, error)
	PayJob(ctx context.Context, jobID, memoID int64, amount float64, reason string) (string, error)
	DeliverJob(ctx context.Context, jobID int64, deliverable Deliverable) (string, error)
	SignMemo(ctx context.Context, memoID int64, accept bool, reason string) (string, error)
	InitiateJob(ctx context.Context, job NewJob) (int64, error)
}

// AgentUsecase resolves agents, going through the cache when possible.
type AgentUsecase interface {
	BrowseAgents(ctx context.Context, query BrowseAgentsQuery) ([]*Agent, error)
	GetAgent(ctx context.Context, walletAddress string) (*Agent, error)
}

// JobActionUsecase is the handle API processors use. It checks the memo
// preconditions for each action and fills in the default reasons before
// forwarding to JobActions.
type JobActionUsecase interface {
	Respond(ctx context.Context, job *Job, accept bool, content *string, reason string) (string, error)
	Pay(ctx context.Context, job *Job, amount float64, reason string) (string, error)
	Deliver(ctx context.Context, job *Job, deliverable Deliverable) (string, error)
	Evaluate(ctx context.Context, job *Job, accept bool, reason string) (string, error)
}

// AgentCache stores agent lookups. Get methods return nil without an error on
// a cache miss.
type AgentCache interface {
	CacheAgent(ctx context.Context, agent *Agent, ttl time.Duration) error
	GetAgent(ctx context.Context, walletAddress string) (*Agent, error)
	CacheAgentSearch(ctx context.Context, key string, agents []*Agent, ttl time.Duration) error
	GetAgentSearch(ctx context.Context, key string) ([]*Agent, error)
}
