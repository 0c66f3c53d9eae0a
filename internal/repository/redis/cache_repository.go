package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
)

type cacheRepository struct {
	client *redis.Client
}

var (
	_ domain.AgentCache     = (*cacheRepository)(nil)
	_ domain.JobStateMarker = (*cacheRepository)(nil)
)

// NewCacheRepository creates a new Redis cache repository
func NewCacheRepository(client *redis.Client) *cacheRepository {
	return &cacheRepository{client: client}
}

// Cache keys
const (
	AgentKeyPrefix       = "acp:agent:"
	AgentSearchKeyPrefix = "acp:agent_search:"
	JobStateKeyPrefix    = "acp:job_state:"

	DefaultAgentCacheTTL = 10 * time.Minute
)

func agentKey(walletAddress string) string {
	return AgentKeyPrefix + strings.ToLower(walletAddress)
}

// Agent caching
func (r *cacheRepository) CacheAgent(ctx context.Context, agent *domain.Agent, ttl time.Duration) error {
	if agent == nil || agent.WalletAddress == "" {
		return fmt.Errorf("agent with wallet address is required")
	}
	if ttl <= 0 {
		ttl = DefaultAgentCacheTTL
	}

	data, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("failed to marshal agent: %w", err)
	}

	err = r.client.Set(ctx, agentKey(agent.WalletAddress), data, ttl).Err()
	if err != nil {
		metrics.RecordCacheOperation("set_agent", "error")
		logger.Error("Failed to cache agent",
			logger.String("wallet_address", agent.WalletAddress),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to cache agent: %w", err)
	}

	metrics.RecordCacheOperation("set_agent", "ok")
	return nil
}

func (r *cacheRepository) GetAgent(ctx context.Context, walletAddress string) (*domain.Agent, error) {
	data, err := r.client.Get(ctx, agentKey(walletAddress)).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheOperation("get_agent", "miss")
			return nil, nil // Cache miss
		}
		metrics.RecordCacheOperation("get_agent", "error")
		logger.Error("Failed to get agent from cache",
			logger.String("wallet_address", walletAddress),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get agent from cache: %w", err)
	}

	var agent domain.Agent
	if err := json.Unmarshal([]byte(data), &agent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent: %w", err)
	}

	metrics.RecordCacheOperation("get_agent", "hit")
	logger.Debug("Agent retrieved from cache",
		logger.String("wallet_address", walletAddress),
	)

	return &agent, nil
}

// Agent search caching
func (r *cacheRepository) CacheAgentSearch(ctx context.Context, key string, agents []*domain.Agent, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultAgentCacheTTL
	}

	data, err := json.Marshal(agents)
	if err != nil {
		return fmt.Errorf("failed to marshal agents: %w", err)
	}

	err = r.client.Set(ctx, AgentSearchKeyPrefix+key, data, ttl).Err()
	if err != nil {
		metrics.RecordCacheOperation("set_agent_search", "error")
		return fmt.Errorf("failed to cache agent search: %w", err)
	}

	metrics.RecordCacheOperation("set_agent_search", "ok")
	return nil
}

func (r *cacheRepository) GetAgentSearch(ctx context.Context, key string) ([]*domain.Agent, error) {
	data, err := r.client.Get(ctx, AgentSearchKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheOperation("get_agent_search", "miss")
			return nil, nil // Cache miss
		}
		metrics.RecordCacheOperation("get_agent_search", "error")
		return nil, fmt.Errorf("failed to get agent search from cache: %w", err)
	}

	var agents []*domain.Agent
	if err := json.Unmarshal([]byte(data), &agents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agents: %w", err)
	}

	metrics.RecordCacheOperation("get_agent_search", "hit")
	return agents, nil
}

// Poller job state markers
func (r *cacheRepository) MarkJobState(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, JobStateKeyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		logger.Error("Failed to mark job state",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		return false, fmt.Errorf("failed to mark job state: %w", err)
	}

	return ok, nil
}

func (r *cacheRepository) ClearJobState(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, JobStateKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to clear job state: %w", err)
	}
	return nil
}

// Health check
func (r *cacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
