// Package main - the API binary: serves the Telegram webhook ingress and
// the health endpoint. Scenario jobs and the polling ingress live in the
// worker binary; deployments run one ingress or the other, never both.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/purplepatch/notify-hub/config"
	"github.com/purplepatch/notify-hub/internal/application/linking"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/telegram"
	"github.com/purplepatch/notify-hub/internal/infrastructure/persistence/postgres"
	"github.com/purplepatch/notify-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/purplepatch/notify-hub/internal/interface/http"
	"github.com/purplepatch/notify-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(string(cfg.App.Environment), cfg.App.LogLevel == "debug")
	log.Info("starting notify-hub api",
		"env", cfg.App.Environment,
		"addr", cfg.HTTP.Addr(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator := postgres.NewMigrator(db)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// REDIS (health probe only in this binary)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	cache, err = redis.NewCache(redisConfig(cfg))
	if err != nil {
		log.Warn("redis unavailable, /healthz reports cache disabled", logger.Err(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// TELEGRAM AND LINKING
	// ─────────────────────────────────────────────────────────────────────────
	tgConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	tgConfig.Logger = log
	tgClient := telegram.NewClient(tgConfig)

	if cfg.Telegram.WebhookURL != "" && tgClient.Configured() {
		if err := tgClient.SetWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
			log.Error("failed to register webhook", "url", cfg.Telegram.WebhookURL, logger.Err(err))
		} else {
			log.Info("webhook registered", "url", cfg.Telegram.WebhookURL)
		}
	}

	linkService := linking.NewService(
		postgres.NewUserRepository(db),
		postgres.NewContactRepository(db),
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout

	deps := httpserver.Dependencies{
		Webhook:  httpserver.NewWebhookHandler(linkService, tgClient, log),
		Database: db,
		Logger:   log,
	}
	if cache != nil {
		deps.Cache = cache
	}

	server := httpserver.NewServer(httpConfig, deps)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop http server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown complete")
	return nil
}

// connectDatabase prefers DATABASE_URL, falling back to discrete fields.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}
	return postgres.NewConnection(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
}

func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	return rc
}
