package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

type agentUsecase struct {
	client   domain.ACPClient
	cache    domain.AgentCache
	cacheTTL time.Duration
}

// NewAgentUsecase creates the agent lookup use case. cache may be nil.
func NewAgentUsecase(client domain.ACPClient, cache domain.AgentCache, cacheTTL time.Duration) domain.AgentUsecase {
	return &agentUsecase{
		client:   client,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (uc *agentUsecase) BrowseAgents(ctx context.Context, query domain.BrowseAgentsQuery) ([]*domain.Agent, error) {
	if strings.TrimSpace(query.Keyword) == "" {
		return nil, fmt.Errorf("keyword is required")
	}

	key := searchKey(query)
	if uc.cache != nil {
		cached, err := uc.cache.GetAgentSearch(ctx, key)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	agents, err := uc.client.BrowseAgents(ctx, query)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.CacheAgentSearch(ctx, key, agents, uc.cacheTTL); err != nil {
			logger.Warn("Failed to cache agent search", logger.ErrorField(err))
		}
	}

	return agents, nil
}

func (uc *agentUsecase) GetAgent(ctx context.Context, walletAddress string) (*domain.Agent, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}

	if uc.cache != nil {
		cached, err := uc.cache.GetAgent(ctx, walletAddress)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	agent, err := uc.client.GetAgent(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, domain.ErrAgentNotFound
	}

	if uc.cache != nil {
		if err := uc.cache.CacheAgent(ctx, agent, uc.cacheTTL); err != nil {
			logger.Warn("Failed to cache agent",
				logger.String("wallet_address", walletAddress),
				logger.ErrorField(err),
			)
		}
	}

	return agent, nil
}

// searchKey is stable for equal queries.
func searchKey(query domain.BrowseAgentsQuery) string {
	values := url.Values{}
	values.Set("keyword", strings.ToLower(strings.TrimSpace(query.Keyword)))
	values.Set("cluster", strings.ToLower(query.Cluster))
	values.Set("top_k", strconv.Itoa(query.TopK))
	values.Set("graduation", string(query.GraduationStatus))
	values.Set("online", string(query.OnlineStatus))
	for _, sort := range query.SortBy {
		values.Add("sort", string(sort))
	}
	return values.Encode()
}
