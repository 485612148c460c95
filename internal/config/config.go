package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/vigil/internal/configs/env"
	"github.com/RishiKendai/vigil/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisDB                 int
	CodeEventsStreamKey     string
	CodeEventsConsumerGroup string
	CodeEventsDeadLetterKey string
	StreamRetentionDuration time.Duration

	// AI provider
	AIProviderBaseURL string
	AIProviderAPIKey  string
	AIProviderTimeout time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentJobs int
	StoreTimeout      time.Duration

	// Prompt validation defaults
	StrictMode                 bool
	ContextSimilarityThreshold float64
	OffTopicThreshold          float64
	BlockDirectSolutions       bool
	AllowedDeviationPercentage float64
	EnableSemanticAnalysis     bool

	// Retention
	ValidationMetricsTTL     time.Duration
	SessionMetricsCacheTTL   time.Duration
	CopyPasteWindow          time.Duration
	CopyPasteSimilarityLimit float64
	CodeEventRetention       time.Duration
	SecurityEventCapacity    int

	// Logging
	LogLevel  string
	LogPretty bool

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = env.GetEnvInt("REDIS_DB", 0)
	cfg.CodeEventsStreamKey = env.GetEnv("CODE_EVENTS_STREAM_KEY", "code_events:stream")
	cfg.CodeEventsConsumerGroup = env.GetEnv("CODE_EVENTS_CONSUMER_GROUP", "code_events:group")
	cfg.CodeEventsDeadLetterKey = env.GetEnv("CODE_EVENTS_DEAD_LETTER_KEY", "code_events:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_HOURS", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// AI provider
	cfg.AIProviderBaseURL = env.GetEnv("AI_PROVIDER_BASE_URL", "")
	cfg.AIProviderAPIKey = env.GetEnv("AI_PROVIDER_API_KEY", "")
	cfg.AIProviderTimeout = time.Duration(env.GetEnvInt("AI_PROVIDER_TIMEOUT_SECONDS", 60)) * time.Second

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "vigil")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentJobs = env.GetEnvInt("MAX_CONCURRENT_JOBS", 8)
	cfg.StoreTimeout = time.Duration(env.GetEnvInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second

	// Prompt validation defaults
	cfg.StrictMode = env.GetEnvBool("VALIDATION_STRICT_MODE", false)
	cfg.ContextSimilarityThreshold = env.GetEnvFloat("VALIDATION_CONTEXT_SIMILARITY_THRESHOLD", 0.3)
	cfg.OffTopicThreshold = env.GetEnvFloat("VALIDATION_OFF_TOPIC_THRESHOLD", 0.7)
	cfg.BlockDirectSolutions = env.GetEnvBool("VALIDATION_BLOCK_DIRECT_SOLUTIONS", true)
	cfg.AllowedDeviationPercentage = env.GetEnvFloat("VALIDATION_ALLOWED_DEVIATION_PERCENTAGE", 30)
	cfg.EnableSemanticAnalysis = env.GetEnvBool("VALIDATION_ENABLE_SEMANTIC_ANALYSIS", true)

	// Retention
	cfg.ValidationMetricsTTL = time.Duration(env.GetEnvInt("VALIDATION_METRICS_TTL_HOURS", 24)) * time.Hour
	cfg.SessionMetricsCacheTTL = time.Duration(env.GetEnvInt("SESSION_METRICS_CACHE_TTL_SECONDS", 300)) * time.Second
	cfg.CopyPasteWindow = time.Duration(env.GetEnvInt("COPY_PASTE_WINDOW_MINUTES", 5)) * time.Minute
	cfg.CopyPasteSimilarityLimit = env.GetEnvFloat("COPY_PASTE_SIMILARITY_THRESHOLD", 0.8)
	cfg.CodeEventRetention = time.Duration(env.GetEnvInt("CODE_EVENT_RETENTION_HOURS", 720)) * time.Hour
	cfg.SecurityEventCapacity = env.GetEnvInt("SECURITY_EVENT_CAPACITY", 1000)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogPretty = env.GetEnvBool("LOG_PRETTY", false)

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_HOURS must be greater than 0")
	}
	if c.ContextSimilarityThreshold < 0 || c.ContextSimilarityThreshold > 1 {
		return fmt.Errorf("VALIDATION_CONTEXT_SIMILARITY_THRESHOLD must be within [0,1]")
	}
	if c.OffTopicThreshold < 0 || c.OffTopicThreshold > 1 {
		return fmt.Errorf("VALIDATION_OFF_TOPIC_THRESHOLD must be within [0,1]")
	}
	if c.AllowedDeviationPercentage < 0 || c.AllowedDeviationPercentage > 100 {
		return fmt.Errorf("VALIDATION_ALLOWED_DEVIATION_PERCENTAGE must be within [0,100]")
	}
	if c.CopyPasteWindow <= 0 {
		return fmt.Errorf("COPY_PASTE_WINDOW_MINUTES must be greater than 0")
	}
	if c.CopyPasteSimilarityLimit <= 0 || c.CopyPasteSimilarityLimit > 1 {
		return fmt.Errorf("COPY_PASTE_SIMILARITY_THRESHOLD must be within (0,1]")
	}
	if c.CodeEventRetention < c.CopyPasteWindow {
		return fmt.Errorf("CODE_EVENT_RETENTION_HOURS must cover the copy/paste window")
	}
	if c.SecurityEventCapacity <= 0 {
		return fmt.Errorf("SECURITY_EVENT_CAPACITY must be greater than 0")
	}
	return nil
}

// ValidationDefaults is the environment-wide ValidationConfig used when a
// request does not carry its own.
func (c *Config) ValidationDefaults() models.ValidationConfig {
	return models.ValidationConfig{
		StrictMode:                 c.StrictMode,
		ContextSimilarityThreshold: c.ContextSimilarityThreshold,
		OffTopicThreshold:          c.OffTopicThreshold,
		BlockDirectSolutions:       c.BlockDirectSolutions,
		AllowedDeviationPercentage: c.AllowedDeviationPercentage,
		EnableSemanticAnalysis:     c.EnableSemanticAnalysis,
	}
}
