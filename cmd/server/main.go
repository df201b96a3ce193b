// Package main is the entrypoint for the Lumina analysis server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumina-ai/lumina/internal/alerting"
	"github.com/lumina-ai/lumina/internal/api"
	"github.com/lumina-ai/lumina/internal/api/handler"
	mw "github.com/lumina-ai/lumina/internal/api/middleware"
	"github.com/lumina-ai/lumina/internal/cache"
	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/internal/judge"
	"github.com/lumina-ai/lumina/internal/replay"
	"github.com/lumina-ai/lumina/internal/scoring"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/internal/stream"
	"github.com/lumina-ai/lumina/internal/webhook"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 30 * time.Second
	webhookTimeout  = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"judge", cfg.Judge.Provider,
		"replay_executor", cfg.Replay.Executor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect to Redis. One client is shared by the cache and the
	// trace stream.
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	redisCache := cache.NewRedisCacheFromClient(redisClient)
	qualityCache := cache.NewDegraded(redisCache)

	// 5. Build the analysis pipeline
	pgStore := store.NewPostgresStore(pool)

	qualityJudge, err := judge.NewJudge(cfg.Judge)
	if err != nil {
		return fmt.Errorf("create quality judge: %w", err)
	}

	scorer := scoring.NewScorer(qualityJudge, qualityCache, cfg.Scoring, cfg.Judge.Timeout)
	engine := alerting.NewEngine(cfg.Alerting)
	sender := webhook.NewSender(webhookTimeout, cfg.Webhooks.MaxRetries, cfg.Webhooks.BackoffBase)
	dispatcher := webhook.NewDispatcher(sender, cfg.Webhooks)

	pipeline, err := stream.NewPipeline(pgStore, scorer, engine, dispatcher,
		cfg.Alerting, cfg.Scoring, cfg.Stream.RetryDelay)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	publisher := stream.NewPublisher(redisClient, cfg.Stream.Name, cfg.Stream.MaxLen)
	consumer := stream.NewConsumer(redisClient, cfg.Stream, pipeline.Handle)

	// 6. Replay orchestrator
	executor, err := newExecutor(cfg.Replay)
	if err != nil {
		return fmt.Errorf("create replay executor: %w", err)
	}
	orchestrator := replay.NewOrchestrator(pgStore, executor)

	// 7. Build router with dependencies
	lifecycle := alerting.NewLifecycle(pgStore)

	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 120),

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),
		IngestHandler: handler.NewIngestHandler(publisher),

		ListAlertsHandler:       handler.NewListAlertsHandler(pgStore),
		GetAlertHandler:         handler.NewGetAlertHandler(pgStore),
		AcknowledgeAlertHandler: handler.NewAcknowledgeAlertHandler(lifecycle),
		ResolveAlertHandler:     handler.NewResolveAlertHandler(lifecycle),

		CreateReplayHandler:    handler.NewCreateReplayHandler(orchestrator),
		RunReplayHandler:       handler.NewRunReplayHandler(orchestrator),
		GetReplayHandler:       handler.NewGetReplayHandler(orchestrator),
		ListReplayDiffsHandler: handler.NewListReplayDiffsHandler(orchestrator),
	}

	router := api.NewRouter(deps)

	// 8. Start stream consumer
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(consumerCtx)
	}()

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal, server error, or consumer failure
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case err := <-consumerDone:
		return fmt.Errorf("stream consumer stopped: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown: drain HTTP first so no new traces are enqueued,
	// then stop the consumer. Unacked messages are redelivered on restart.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		slog.Warn("consumer did not stop before shutdown deadline")
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newExecutor(cfg config.ReplayConfig) (replay.Executor, error) {
	switch cfg.Executor {
	case "simulate":
		return replay.NewSimulatingExecutor(), nil
	case "openai":
		return replay.NewOpenAIExecutor(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), nil
	default:
		return nil, fmt.Errorf("unknown replay executor %q", cfg.Executor)
	}
}
