package api

import (
	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/observability"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Task  *TaskHandler
	Queue *QueueHandler
	Agent *AgentHandler
	Job   *JobHandler
}

// NewRouter creates the engine with the middleware every route shares. Routes
// registered on it afterwards, the health endpoints included, all get them.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(observability.ObservabilityMiddleware())
	router.Use(recoveryMiddleware())
	router.Use(corsMiddleware())
	return router
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handlers Handlers, authService domain.AuthService, cfg *config.Config) {
	v1 := router.Group("/api/v1")
	{
		if cfg.Queue.WebhookEnabled() {
			configureWebhookRoutes(v1, handlers.Task, authService, cfg)
		}
		configureOperatorRoutes(v1, handlers, authService)
		configurePublicRoutes(v1, cfg)
	}

	logger.Info("API routes configured successfully",
		logger.Bool("webhooks", cfg.Queue.WebhookEnabled()),
	)
}

func configureWebhookRoutes(group *gin.RouterGroup, taskHandler *TaskHandler, authService domain.AuthService, cfg *config.Config) {
	routes := group.Group("/acp")
	routes.Use(bodyLimitMiddleware(cfg.API.MaxRequestSize), webhookAuth(authService, cfg.Auth.AllowedIPs))
	{
		routes.POST("/tasks", taskHandler.ReceiveTask)
		routes.POST("/evaluations", taskHandler.ReceiveEvaluation)
	}
}

func configureOperatorRoutes(group *gin.RouterGroup, handlers Handlers, authService domain.AuthService) {
	operator := group.Group("")
	operator.Use(adminAuth(authService))
	{
		operator.GET("/queue/stats", handlers.Queue.GetStats)

		agents := operator.Group("/agents")
		{
			agents.GET("", handlers.Agent.BrowseAgents)
			agents.GET("/:wallet", handlers.Agent.GetAgent)
		}

		jobs := operator.Group("/jobs")
		{
			jobs.POST("", handlers.Job.InitiateJob)
			jobs.GET("/:id", handlers.Job.GetJob)
			jobs.GET("/:id/events", handlers.Job.GetJobEvents)
		}
	}
}

func configurePublicRoutes(group *gin.RouterGroup, cfg *config.Config) {
	public := group.Group("/public")
	{
		public.GET("/ping", func(c *gin.Context) {
			xresponse.Success(c, "pong", nil)
		})
		public.GET("/info", func(c *gin.Context) {
			xresponse.Success(c, "Agent info", gin.H{
				"name":   cfg.App.Name,
				"role":   cfg.Agent.Role,
				"wallet": cfg.Agent.WalletAddress,
				"chain":  cfg.ACP.ChainEnv,
				"mode":   cfg.Queue.Mode,
			})
		})
	}
}
