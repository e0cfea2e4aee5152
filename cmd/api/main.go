package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"map_widget_backend/internal/host"
	apphttp "map_widget_backend/internal/http"
	"map_widget_backend/internal/http/router"
	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/poisync"
	"map_widget_backend/internal/routectx"
	"map_widget_backend/internal/session"
	"map_widget_backend/internal/stream"
	"map_widget_backend/internal/webhook"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"
	"map_widget_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting widget bridge", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	dedup, redisHealth, closeRedis := initDedup(ctx, cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// The stream service is the command sink: every map view mutation fans
	// out to connected renderers over SSE.
	streamSvc := stream.New(log)
	streamSvc.RegisterHandlers(eventBus)
	defer streamSvc.Close()

	view := mapview.New(cfg, streamSvc)
	routes := routectx.New()
	hostClient := host.NewClient(cfg, log)

	syncModule := poisync.NewModule(hostClient, view, routes, cfg, eventBus, val, log)

	// Readiness handshake: declare the column contract to the host. The
	// synchronizer stays idle (record pushes ignored) until this succeeds.
	if err := withRetry(ctx, log, "host handshake", cfg.HostRetryAttempts, cfg.HostRetryBaseDelay, func() error {
		return syncModule.Service().Start(ctx)
	}); err != nil {
		log.Error("host handshake failed", "error", err)
		panic("host handshake failed: " + err.Error())
	}

	streamModule := stream.NewModule(streamSvc, view.Snapshot)
	sessionModule := session.NewModule(cfg)
	webhookModule := webhook.NewModule(syncModule.Service(), dedup, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   redisHealth,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			sessionModule,
			streamModule,
			syncModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// redisPinger adapts the Redis client to the health check interface.
type redisPinger struct {
	client *redis.Client
}

func (p *redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func initDedup(ctx context.Context, cfg *config.Config, log *logger.Logger) (webhook.Dedup, apphttp.HealthChecker, func()) {
	if !cfg.IsDedupEnabled() {
		log.Warn("REDIS_URL not configured; webhook delivery dedup disabled")
		return webhook.NoopDedup{}, nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL, dedup disabled", "error", err)
		return webhook.NoopDedup{}, nil, nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup, continuing", "error", err)
	}

	return webhook.NewRedisDedup(client, cfg.DedupTTL), &redisPinger{client: client}, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
