package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/adapter/acp"
	adapterfactory "github.com/alfanzaky/acpagent/internal/adapter/factory"
	"github.com/alfanzaky/acpagent/internal/domain"
	apihandler "github.com/alfanzaky/acpagent/internal/handler/api"
	"github.com/alfanzaky/acpagent/internal/intake"
	"github.com/alfanzaky/acpagent/internal/repository/postgres"
	redisrepo "github.com/alfanzaky/acpagent/internal/repository/redis"
	"github.com/alfanzaky/acpagent/internal/usecase"
	"github.com/alfanzaky/acpagent/internal/worker"
	"github.com/alfanzaky/acpagent/pkg/auth"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/observability"
)

const drainTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Close()

	// Print configuration in development mode
	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	metricsHandler := observability.NewMetricsHandler(cfg.App.Name)

	// Initialize the audit trail when a database is configured
	var history domain.JobHistoryUsecase
	if cfg.Database.Enabled {
		db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
		if err != nil {
			logger.Fatal("Failed to connect to database", logger.ErrorField(err))
		}
		defer db.Close()

		db.SetMaxIdleConns(cfg.Database.MaxIdle)
		db.SetMaxOpenConns(cfg.Database.MaxOpen)
		db.SetConnMaxLifetime(cfg.Database.MaxLife)

		eventRepo := postgres.NewJobEventRepository(db)
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = eventRepo.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to prepare job_events schema", logger.ErrorField(err))
		}

		history = usecase.NewJobHistoryUsecase(eventRepo)
		metricsHandler.AddReadinessCheck("postgres", eventRepo.Ping)
		logger.Info("Database connection established")
	}

	// Initialize Redis for the agent cache and poller markers
	var (
		agentCache domain.AgentCache
		marker     domain.JobStateMarker
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()

		cacheRepo := redisrepo.NewCacheRepository(rdb)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := cacheRepo.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
		}

		agentCache = cacheRepo
		marker = cacheRepo
		metricsHandler.AddReadinessCheck("redis", cacheRepo.Ping)
		logger.Info("Redis connection established")
	}

	// Initialize ACP adapters
	acpClient := acp.NewClient(cfg.ACP, cfg.Agent.WalletAddress, nil)
	relay := acp.NewRelay(cfg.ACP, cfg.Agent, nil)

	// Initialize use cases
	actionUC := usecase.NewJobActionUsecase(relay)
	agentUC := usecase.NewAgentUsecase(acpClient, agentCache, cfg.Redis.CacheTTL)
	initiationUC := usecase.NewJobInitiationUsecase(agentUC, relay, cfg.Agent.WalletAddress)

	// Resolve the processor for the configured role
	processors := adapterfactory.NewProcessorFactory()
	processors.RegisterProcessor(domain.RoleBuyer, usecase.NewBuyerProcessor(actionUC))
	var fallbackDeliverable domain.DeliverableBuilder
	if cfg.Agent.DeliverableValue != "" {
		fallbackDeliverable = usecase.StaticDeliverable(domain.Deliverable{
			Type:  cfg.Agent.DeliverableType,
			Value: cfg.Agent.DeliverableValue,
		})
	}
	deliverables := usecase.NewDeliverableRegistry(fallbackDeliverable).RegisterDefaults()
	processors.RegisterProcessor(domain.RoleSeller, usecase.NewSellerProcessor(actionUC, deliverables))
	processors.RegisterProcessor(domain.RoleEvaluator, usecase.NewEvaluatorProcessor(actionUC))

	processor, err := processors.GetProcessor(cfg.Agent.Role)
	if err != nil {
		logger.Fatal("Failed to resolve job processor", logger.ErrorField(err))
	}

	// Initialize the intake queue and its notifier
	queue := intake.NewQueue(cfg.Queue.Capacity)
	notifier := intake.NewNotifier(queue)
	if marker == nil {
		marker = worker.NewMemoryMarker()
	}
	jobWorker := worker.NewJobWorker(queue, processor, history).WithStateMarker(marker)

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize auth service
	authService := auth.NewJWTAuthService(cfg.Auth)

	// Create Gin router with the shared middleware
	router := apihandler.NewRouter()

	// Setup metrics and health endpoints
	router.GET("/metrics", metricsHandler.MetricsEndpoint())
	router.GET("/health", metricsHandler.HealthEndpoint())
	router.GET("/ready", metricsHandler.ReadinessEndpoint())
	router.GET("/live", metricsHandler.LivenessEndpoint())

	// Setup API routes
	apihandler.SetupRoutes(router, apihandler.Handlers{
		Task:  apihandler.NewTaskHandler(notifier),
		Queue: apihandler.NewQueueHandler(queue, history, cfg.Agent.Role),
		Agent: apihandler.NewAgentHandler(agentUC),
		Job:   apihandler.NewJobHandler(acpClient, initiationUC, history),
	}, authService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	// The worker outlives the signal context so it can drain after Close
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		jobWorker.Start(workerCtx)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(sigCtx)

	group.Go(func() error {
		logger.Info("Starting server",
			logger.String("port", cfg.App.Port),
			logger.String("environment", cfg.App.Environment),
			logger.String("role", cfg.Agent.Role),
			logger.String("mode", cfg.Queue.Mode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Queue.PollingEnabled() {
		poller := worker.NewJobPoller(acpClient, notifier, marker, worker.JobPollerConfig{
			WalletAddress: cfg.Agent.WalletAddress,
			Interval:      cfg.Queue.PollInterval,
			PageSize:      cfg.Queue.PollPageSize,
			MarkerTTL:     cfg.Queue.MarkerTTL,
		})
		group.Go(func() error {
			poller.Start(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", logger.ErrorField(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("Agent stopped with error", logger.ErrorField(err))
	}

	// Producers are gone; let the worker finish what is already queued
	queue.Close()
	select {
	case <-workerDone:
		logger.Info("Job queue drained")
	case <-time.After(drainTimeout):
		logger.Warn("Job queue drain timed out", logger.Int("pending", queue.Len()))
		workerCancel()
		<-workerDone
	}

	logger.Info("Agent exited")
}
