package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/alfanzaky/acpagent/pkg/utils"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	API      APIConfig
	ACP      ACPConfig
	Agent    AgentConfig
	Queue    QueueConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name        string `validate:"required"`
	Environment string `validate:"oneof=development staging production"`
	Port        string `validate:"required,numeric"`
	Debug       bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string `validate:"required_if=Enabled true"`
	Port     string
	Name     string `validate:"required_if=Enabled true"`
	User     string `validate:"required_if=Enabled true"`
	Password string
	SSLMode  string
	MaxIdle  int `validate:"gte=0"`
	MaxOpen  int `validate:"gte=0"`
	MaxLife  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string `validate:"required_if=Enabled true"`
	Port     string
	Password string
	DB       int `validate:"gte=0"`
	PoolSize int `validate:"gte=0"`
	CacheTTL time.Duration
}

// AuthConfig holds webhook authentication configuration
type AuthConfig struct {
	WebhookSecret   string `validate:"required"`
	SignatureSecret string
	Issuer          string
	Audience        string
	TokenTTL        time.Duration
	MaxClockSkew    time.Duration
	AllowedIPs      []string
}

// APIConfig holds API configuration
type APIConfig struct {
	TimeoutSeconds int   `validate:"gt=0"`
	MaxRequestSize int64 `validate:"gt=0"`
}

// ACPConfig holds the ACP backend endpoints
type ACPConfig struct {
	ChainEnv       string `validate:"oneof=base base-sepolia"`
	APIURL         string `validate:"required,url"`
	ActionURL      string `validate:"required,url"`
	ActionToken    string
	TimeoutSeconds int `validate:"gt=0"`
	SDKVersion     string

	ActionMaxAttempts int `validate:"gte=1,lte=10"`
	ActionRetryDelay  time.Duration
}

// AgentConfig identifies this agent on the ACP network
type AgentConfig struct {
	Role             string `validate:"oneof=buyer seller evaluator"`
	WalletPrivateKey string `validate:"required"`
	WalletAddress    string `validate:"required"`
	EntityID         int64  `validate:"gt=0"`
	DeliverableType  string
	DeliverableValue string
}

// QueueConfig holds intake queue and poller configuration
type QueueConfig struct {
	Mode         string `validate:"oneof=webhook polling both"`
	Capacity     int    `validate:"gte=0"`
	PollInterval time.Duration
	PollPageSize int `validate:"gt=0,lte=100"`
	MarkerTTL    time.Duration
}

// Chain presets for the ACP API, keyed by chain environment
var chainAPIURLs = map[string]string{
	"base":         "https://acpx.virtuals.io/api",
	"base-sepolia": "https://acpx.virtuals.gg/api",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	chainEnv := getEnv("ACP_CHAIN_ENV", "base")

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "acpagent"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Debug:       getEnvBool("APP_DEBUG", true),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "acpagent_db"),
			User:     getEnv("DB_USER", "acpagent"),
			Password: getEnv("DB_PASSWORD", "acpagent"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxIdle:  getEnvInt("DB_MAX_IDLE", 5),
			MaxOpen:  getEnvInt("DB_MAX_OPEN", 20),
			MaxLife:  getEnvDuration("DB_MAX_LIFE", time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			WebhookSecret:   getEnv("WEBHOOK_JWT_SECRET", ""),
			SignatureSecret: getEnv("WEBHOOK_SIGNATURE_SECRET", ""),
			Issuer:          getEnv("WEBHOOK_JWT_ISSUER", "acpagent"),
			Audience:        getEnv("WEBHOOK_JWT_AUDIENCE", "acp-webhooks"),
			TokenTTL:        getEnvDuration("WEBHOOK_JWT_TTL", 24*time.Hour),
			MaxClockSkew:    getEnvDuration("WEBHOOK_MAX_CLOCK_SKEW", 5*time.Minute),
			AllowedIPs:      getEnvSlice("WEBHOOK_ALLOWED_IPS", []string{}),
		},
		API: APIConfig{
			TimeoutSeconds: getEnvInt("API_TIMEOUT", 30),
			MaxRequestSize: getEnvInt64("API_MAX_REQUEST_SIZE", 1048576), // 1MB
		},
		ACP: ACPConfig{
			ChainEnv:       chainEnv,
			APIURL:         getEnv("ACP_API_URL", chainAPIURLs[chainEnv]),
			ActionURL:      getEnv("ACP_ACTION_URL", "http://localhost:8090"),
			ActionToken:    getEnv("ACP_ACTION_TOKEN", ""),
			TimeoutSeconds: getEnvInt("ACP_TIMEOUT", 30),
			SDKVersion:     getEnv("ACP_SDK_VERSION", "0.1.0"),

			ActionMaxAttempts: getEnvInt("ACP_ACTION_MAX_ATTEMPTS", 3),
			ActionRetryDelay:  getEnvDuration("ACP_ACTION_RETRY_DELAY", 2*time.Second),
		},
		Agent: AgentConfig{
			Role:             strings.ToLower(getEnv("AGENT_ROLE", "seller")),
			WalletPrivateKey: getEnv("WHITELISTED_WALLET_PRIVATE_KEY", ""),
			WalletAddress:    getEnv("AGENT_WALLET_ADDRESS", ""),
			EntityID:         getEnvInt64("AGENT_ENTITY_ID", 1),
			DeliverableType:  getEnv("SELLER_DELIVERABLE_TYPE", "url"),
			DeliverableValue: getEnv("SELLER_DELIVERABLE_VALUE", "https://example.com"),
		},
		Queue: QueueConfig{
			Mode:         strings.ToLower(getEnv("QUEUE_MODE", "webhook")),
			Capacity:     getEnvInt("QUEUE_CAPACITY", 0),
			PollInterval: getEnvDuration("QUEUE_POLL_INTERVAL", 20*time.Second),
			PollPageSize: getEnvInt("QUEUE_POLL_PAGE_SIZE", 10),
			MarkerTTL:    getEnvDuration("QUEUE_MARKER_TTL", 24*time.Hour),
		},
	}

	return config, nil
}

// GetDSN returns database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// GetRedisAddr returns Redis connection address
func (r *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsDevelopment returns true if environment is development
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if environment is production
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// WebhookEnabled reports whether ACP events arrive over HTTP
func (q *QueueConfig) WebhookEnabled() bool {
	return q.Mode == "webhook" || q.Mode == "both"
}

// PollingEnabled reports whether the agent polls the ACP API for jobs
func (q *QueueConfig) PollingEnabled() bool {
	return q.Mode == "polling" || q.Mode == "both"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return utils.RemoveDuplicate(result)
		}
	}
	return defaultValue
}

// ValidateWalletAddress checks the 0x-prefixed, 42 character address format
func ValidateWalletAddress(address string) error {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return fmt.Errorf("wallet address must start with '0x' and be 42 characters long")
	}
	for _, r := range address[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("wallet address contains non-hex character %q", r)
		}
	}
	return nil
}

// Validate validates configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ValidateWalletAddress(c.Agent.WalletAddress); err != nil {
		return fmt.Errorf("AGENT_WALLET_ADDRESS: %w", err)
	}
	if c.Queue.PollingEnabled() && c.Queue.PollInterval <= 0 {
		return fmt.Errorf("QUEUE_POLL_INTERVAL must be positive in polling mode")
	}
	if c.Agent.Role == "seller" && strings.TrimSpace(c.Agent.DeliverableValue) == "" {
		return fmt.Errorf("SELLER_DELIVERABLE_VALUE is required for the seller role")
	}

	return nil
}

// Print prints configuration (excluding sensitive data)
func (c *Config) Print() {
	fmt.Printf("=== Configuration ===\n")
	fmt.Printf("App Name: %s\n", c.App.Name)
	fmt.Printf("Environment: %s\n", c.App.Environment)
	fmt.Printf("Port: %s\n", c.App.Port)
	fmt.Printf("Agent: %s (%s) entity=%d\n", c.Agent.WalletAddress, c.Agent.Role, c.Agent.EntityID)
	fmt.Printf("ACP: %s [%s]\n", c.ACP.APIURL, c.ACP.ChainEnv)
	fmt.Printf("Queue: mode=%s capacity=%d poll=%v\n", c.Queue.Mode, c.Queue.Capacity, c.Queue.PollInterval)
	if c.Database.Enabled {
		fmt.Printf("Database: %s:%s/%s\n", c.Database.Host, c.Database.Port, c.Database.Name)
	}
	if c.Redis.Enabled {
		fmt.Printf("Redis: %s:%s/%d\n", c.Redis.Host, c.Redis.Port, c.Redis.DB)
	}
	fmt.Printf("====================\n")
}
