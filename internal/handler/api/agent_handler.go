package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// AgentHandler serves agent lookups against the ACP registry
type AgentHandler struct {
	agentUC domain.AgentUsecase
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agentUC domain.AgentUsecase) *AgentHandler {
	return &AgentHandler{agentUC: agentUC}
}

// BrowseAgentsRequest represents the agent search query string
type BrowseAgentsRequest struct {
	Keyword          string `form:"keyword" binding:"required"`
	Cluster          string `form:"cluster"`
	SortBy           string `form:"sort_by"`
	TopK             int    `form:"top_k" binding:"omitempty,gte=1,lte=100"`
	GraduationStatus string `form:"graduation_status" binding:"omitempty,oneof=graduated not_graduated all"`
	OnlineStatus     string `form:"online_status" binding:"omitempty,oneof=online offline all"`
}

func (r BrowseAgentsRequest) toQuery() domain.BrowseAgentsQuery {
	query := domain.BrowseAgentsQuery{
		Keyword:          strings.TrimSpace(r.Keyword),
		Cluster:          strings.TrimSpace(r.Cluster),
		TopK:             r.TopK,
		GraduationStatus: domain.GraduationStatus(r.GraduationStatus),
		OnlineStatus:     domain.OnlineStatus(r.OnlineStatus),
	}
	for _, sort := range strings.Split(r.SortBy, ",") {
		if sort = strings.TrimSpace(sort); sort != "" {
			query.SortBy = append(query.SortBy, domain.AgentSort(sort))
		}
	}
	return query
}

// BrowseAgents searches agents by keyword
func (h *AgentHandler) BrowseAgents(c *gin.Context) {
	var req BrowseAgentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		xresponse.ValidationError(c, err.Error())
		return
	}

	agents, err := h.agentUC.BrowseAgents(c.Request.Context(), req.toQuery())
	if err != nil {
		logger.Error("Failed to browse agents",
			logger.String("keyword", req.Keyword),
			logger.ErrorField(err),
		)
		respondACPError(c, err, "Failed to browse agents")
		return
	}

	xresponse.Success(c, "Agents retrieved", gin.H{
		"agents": agents,
		"count":  len(agents),
	})
}

// GetAgent returns one agent by wallet address
func (h *AgentHandler) GetAgent(c *gin.Context) {
	wallet := strings.TrimSpace(c.Param("wallet"))
	if err := config.ValidateWalletAddress(wallet); err != nil {
		xresponse.BadRequest(c, err.Error())
		return
	}

	agent, err := h.agentUC.GetAgent(c.Request.Context(), wallet)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			xresponse.NotFound(c, "Agent not found")
			return
		}
		logger.Error("Failed to get agent",
			logger.String("wallet_address", wallet),
			logger.ErrorField(err),
		)
		respondACPError(c, err, "Failed to get agent")
		return
	}

	xresponse.Success(c, "Agent retrieved", agent)
}

// respondACPError maps backend failures onto HTTP statuses
func respondACPError(c *gin.Context, err error, message string) {
	var acpErr *domain.ACPError
	if errors.As(err, &acpErr) {
		if acpErr.StatusCode == http.StatusNotFound {
			xresponse.NotFound(c, message)
			return
		}
		xresponse.UpstreamError(c, message)
		return
	}
	xresponse.InternalServerError(c, message)
}
