// Command pharmacy-assistant runs the conversational pharmacy service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/pharmacy-assistant/agent"
	"github.com/sweetpotato0/pharmacy-assistant/audit"
	"github.com/sweetpotato0/pharmacy-assistant/config"
	"github.com/sweetpotato0/pharmacy-assistant/middleware"
	"github.com/sweetpotato0/pharmacy-assistant/pharmacy"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/telemetry"
	"github.com/sweetpotato0/pharmacy-assistant/prompt"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
	"github.com/sweetpotato0/pharmacy-assistant/provider/anthropic"
	"github.com/sweetpotato0/pharmacy-assistant/provider/openai"
	"github.com/sweetpotato0/pharmacy-assistant/server"
	"github.com/sweetpotato0/pharmacy-assistant/store"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

func main() {
	if err := run(); err != nil {
		logging.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "pharmacy-assistant",
		ServiceVersion: server.Version,
		Environment:    cfg.Environment,
		Disable:        cfg.DisableTracing,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	gateway := buildGateway(cfg)
	if !gateway.Configured() {
		logger.Warn("provider key missing, chat endpoints will refuse requests",
			"provider", gateway.Name())
	}

	recorder, closeRecorder, err := buildRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	registry := tool.NewRegistry()
	if err := pharmacy.NewTools(st).RegisterAll(registry); err != nil {
		return err
	}

	assistant := agent.New(
		agent.WithGateway(gateway),
		agent.WithRegistry(registry),
		agent.WithSystemPrompt(prompt.System),
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithRecorder(recorder),
		// The error handler runs with no fallback: the sync endpoint
		// reports run failures as HTTP 500, so errors must propagate.
		agent.WithMiddlewares(
			middleware.NewRequestLogger(),
			middleware.NewErrorHandler(""),
		),
	)

	web := server.New(cfg, st, gateway, assistant)
	if archive, ok := recorder.(server.RunArchive); ok {
		web.WithRunArchive(archive)
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "provider", gateway.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// buildStore selects PostgreSQL when DATABASE_URL is set and falls back to
// the in-memory store otherwise, seeding either one on first boot. A Redis
// address layers the medication read cache on top.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	logger := logging.WithComponent("main")
	cleanup := func() {}

	var st store.Store
	var seeder store.Seeder
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st, seeder = pg, pg
		cleanup = func() { _ = pg.Close() }
		logger.Info("using postgres store")
	} else {
		mem := store.NewInMemory()
		st, seeder = mem, mem
		logger.Info("using in-memory store")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cached := store.NewCachedStore(st, client, store.DefaultCacheTTL)
		if err := cached.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, running without cache", "error", err)
			_ = client.Close()
		} else {
			logger.Info("medication cache enabled", "addr", cfg.RedisAddr)
			// Seeding goes through the cached store too, so a reseed
			// drops cached catalogue entries.
			st, seeder = cached, cached
			inner := cleanup
			cleanup = func() {
				_ = client.Close()
				inner()
			}
		}
	}

	if cfg.SeedDatabase {
		seeded, err := store.Seed(ctx, seeder, false)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if seeded {
			logger.Info("seeded demo dataset")
		}
	}
	return st, cleanup, nil
}

func buildGateway(cfg *config.Config) provider.Gateway {
	if cfg.Provider == config.ProviderAnthropic {
		return anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
}

func buildRecorder(cfg *config.Config) (audit.Recorder, func(), error) {
	if cfg.MongoURI == "" {
		return audit.NopRecorder{}, func() {}, nil
	}
	rec, err := audit.NewMongoRecorder(audit.DefaultMongoConfig(cfg.MongoURI))
	if err != nil {
		// The archive is best-effort; a missing Mongo must not block boot.
		logging.WithComponent("main").Warn("mongo recorder unavailable", "error", err)
		return audit.NopRecorder{}, func() {}, nil
	}
	logging.WithComponent("main").Info("conversation archive enabled")
	return rec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rec.Close(ctx)
	}, nil
}
