package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/aggregation"
	"github.com/RishiKendai/vigil/internal/api"
	"github.com/RishiKendai/vigil/internal/assistant"
	"github.com/RishiKendai/vigil/internal/audit"
	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/config"
	"github.com/RishiKendai/vigil/internal/configs/env"
	"github.com/RishiKendai/vigil/internal/governance"
	"github.com/RishiKendai/vigil/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/vigil/internal/infra/redis"
	"github.com/RishiKendai/vigil/internal/logger"
	"github.com/RishiKendai/vigil/internal/metrics"
	"github.com/RishiKendai/vigil/internal/provenance"
	"github.com/RishiKendai/vigil/internal/realtime"
	"github.com/RishiKendai/vigil/internal/repository"
	"github.com/RishiKendai/vigil/internal/stream"
	"github.com/RishiKendai/vigil/internal/worker"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log.Info().Msg("Starting vigil")

	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer, metricsErr := api.StartServer(metricsMux, cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Repositories
	mongoRepo := repository.NewMongoRepository(mongoClient)
	attemptsRepo := repository.NewAttemptRepository(mongoRepo)
	snapshotsRepo := repository.NewSnapshotRepository(mongoRepo)
	codeEventsRepo := repository.NewCodeEventRepository(mongoRepo)

	indexCtx, indexCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := snapshotsRepo.EnsureIndexes(indexCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure snapshot indexes")
	}
	if err := codeEventsRepo.EnsureIndexes(indexCtx, cfg.CodeEventRetention); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure code event indexes")
	}
	indexCancel()

	// Services
	redisCache := cache.NewRedisCache(redisClient.Client)
	securityLog := audit.NewSecurityLog(cfg.SecurityEventCapacity)
	validator := governance.NewValidator(
		governance.NewValidationMetricsStore(redisCache, cfg.ValidationMetricsTTL),
		redisCache,
		cfg.ValidationDefaults(),
		securityLog,
	)
	aggregator := aggregation.NewAggregator(redisCache, snapshotsRepo, attemptsRepo, cfg.SessionMetricsCacheTTL)
	correlator := provenance.NewCorrelator(redisCache, codeEventsRepo, cfg.CopyPasteWindow, cfg.CopyPasteSimilarityLimit)
	assistantSvc := assistant.NewService(
		validator,
		assistant.NewProviderClient(cfg.AIProviderBaseURL, cfg.AIProviderAPIKey, cfg.AIProviderTimeout),
	)

	hub := realtime.NewHub()
	streams := realtime.NewStreamManager(cfg.StoreTimeout)
	pool := worker.NewPool(ctx, cfg.MaxConcurrentJobs)

	// Editor telemetry consumer
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.CodeEventsStreamKey,
		cfg.CodeEventsConsumerGroup,
		consumerName,
		correlator,
		stream.NewRetryHandler(redisClient.Client, cfg.CodeEventsDeadLetterKey, 3, 500*time.Millisecond),
		cfg.StreamRetentionDuration,
	)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Code event consumer stopped")
		}
	}()
	log.Info().Str("consumer", consumerName).Msg("Code event consumer started")

	router := api.SetupRoutes(cfg, api.Dependencies{
		Prompts:    validator,
		Attempts:   attemptsRepo,
		Aggregator: aggregator,
		CopyPaste:  correlator,
		Assistant:  assistantSvc,
		Security:   securityLog,
		Hub:        hub,
		Streams:    streams,
		Pool:       pool,
	})
	srv, serverErr := api.StartServer(router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case err := <-metricsErr:
		log.Error().Err(err).Msg("Metrics server failed")
	}

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}
	streams.StopAll()
	hub.Close()
	pool.Close()

	cancel()
	<-consumerDone

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
