// Package main - the worker binary: runs the daily scenario schedule and
// the Telegram long-polling ingress.
//
// Each scenario fires once per day at its configured local time, walks the
// user population, and dispatches best-effort notifications over the
// configured channel. The poller handles "/start" account linking; any
// registered webhook is deleted first so the two ingress paths never run
// at once.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/purplepatch/notify-hub/config"
	"github.com/purplepatch/notify-hub/internal/application/linking"
	"github.com/purplepatch/notify-hub/internal/application/scenario"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/discord"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/mail"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/quizboard"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/telegram"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/whatsapp"
	"github.com/purplepatch/notify-hub/internal/infrastructure/persistence/postgres"
	"github.com/purplepatch/notify-hub/internal/infrastructure/persistence/redis"
	"github.com/purplepatch/notify-hub/internal/infrastructure/scheduler"
	"github.com/purplepatch/notify-hub/internal/infrastructure/scheduler/jobs"
	"github.com/purplepatch/notify-hub/internal/interface/poller"
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
	log.Info("starting notify-hub worker",
		"env", cfg.App.Environment,
		"timezone", cfg.Scheduler.Timezone,
		"channel", cfg.Scheduler.DefaultChannel,
	)

	location, err := cfg.Scheduler.Location()
	if err != nil {
		return fmt.Errorf("failed to resolve timezone: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// POSTGRES AND REDIS
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

	cache, err := redis.NewCache(redisConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer cache.Close()

	log.Info("stores ready")

	users := postgres.NewUserRepository(db)
	contacts := postgres.NewContactRepository(db)
	packages := postgres.NewPackageRepository(db)
	links := postgres.NewLinkRepository(db)
	quizzes := postgres.NewQuizRepository(db)
	dispatchLog := postgres.NewDispatchLogRepository(db)

	// ─────────────────────────────────────────────────────────────────────────
	// CHANNEL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	tgConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	tgConfig.Logger = log
	tgClient := telegram.NewClient(tgConfig)

	if tgClient.Configured() {
		if me, err := tgClient.GetMe(ctx); err != nil {
			log.Warn("telegram health probe failed", logger.Err(err))
		} else {
			log.Info("telegram bot connected", "username", me.Username)
		}
	}

	dcConfig := discord.DefaultClientConfig(cfg.Discord.BotToken)
	dcConfig.Logger = log

	mailConfig := mail.DefaultClientConfig(cfg.Mail.AccessToken, cfg.Mail.From)
	mailConfig.Subject = cfg.Mail.Subject
	mailConfig.Logger = log

	waConfig := whatsapp.DefaultClientConfig(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID)
	waConfig.Logger = log

	registry := notification.NewRegistry(
		tgClient,
		discord.NewClient(dcConfig),
		mail.NewClient(mailConfig),
		whatsapp.NewClient(waConfig),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// LEADERBOARD SOURCE
	// ─────────────────────────────────────────────────────────────────────────
	fetcher := quizboard.NewFetcher(quizboard.FetcherConfig{
		Timeout: cfg.Quizboard.FetchTimeout,
		Logger:  log,
	})
	ranks := redis.NewSnapshotCache(fetcher, cache, cfg.Redis.SnapshotTTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// COORDINATOR AND RULES
	// ─────────────────────────────────────────────────────────────────────────
	coordinator := scenario.NewCoordinator(registry, users, contacts, dispatchLog, log)

	for _, rule := range []scenario.Rule{
		&scenario.UnsubscribedReminderRule{Users: users, Links: links, Packages: packages},
		&scenario.DailyScoreMilestoneRule{Quizzes: quizzes, Packages: packages},
		&scenario.SubscriptionExpiryRule{Links: links, Packages: packages},
		&scenario.InactiveSubscriberRule{Links: links, Quizzes: quizzes},
		&scenario.DailyPlayReminderRule{Links: links, Quizzes: quizzes},
		&scenario.ReferralPromoRule{
			Users:           users,
			BroadcastTarget: cfg.Quizboard.ReferralBroadcastTarget,
			ReferralLink:    cfg.Quizboard.ReferralLink,
		},
		&scenario.WeeklyStreakPromoRule{Quizzes: quizzes},
		&scenario.EveningRankStatusRule{Quizzes: quizzes, Packages: packages, Users: users, Ranks: ranks, Logger: log},
		&scenario.WinningWarningRule{
			Quizzes:   quizzes,
			Packages:  packages,
			Users:     users,
			Ranks:     ranks,
			Logger:    log,
			Threshold: cfg.Quizboard.WinningThreshold,
		},
		&scenario.WinnerCongratsRule{Users: users, Ranks: ranks, Logger: log, WinnersURL: cfg.Quizboard.WinnersURL},
	} {
		coordinator.Register(rule)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// SCHEDULE
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{Logger: log, Timezone: location})
	channel := notification.ChannelType(cfg.Scheduler.DefaultChannel)

	if cfg.Scheduler.Enabled {
		for id, at := range cfg.Scheduler.Times() {
			if cfg.Scheduler.ScenarioDisabled(id) {
				log.Info("scenario disabled", "scenario", id)
				continue
			}
			daily, err := scheduler.ParseDailySchedule(at, location)
			if err != nil {
				return fmt.Errorf("invalid schedule for %s: %w", id, err)
			}
			job := jobs.NewScenarioJob(coordinator, scenario.ID(id), channel, log)
			if err := sched.Register(job, daily); err != nil {
				return fmt.Errorf("failed to register %s: %w", id, err)
			}
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		log.Warn("scheduler disabled, running ingress only")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// POLLING INGRESS
	// ─────────────────────────────────────────────────────────────────────────
	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()

	errCh := make(chan error, 1)
	if tgClient.Configured() {
		// The worker owns the pull path; drop any webhook left by the API.
		if err := tgClient.DeleteWebhook(ctx, false); err != nil {
			log.Warn("failed to delete webhook", logger.Err(err))
		}

		linkService := linking.NewService(users, contacts, log)
		p := poller.New(
			tgClient,
			tgClient,
			linkService,
			redis.NewCursorStore(cache),
			poller.Config{
				BatchLimit:   cfg.Telegram.PollBatchLimit,
				PollTimeout:  cfg.Telegram.PollTimeout,
				ErrorBackoff: cfg.Telegram.PollErrorBackoff,
			},
			log,
		)
		go func() {
			errCh <- p.Run(pollCtx)
		}()
	} else {
		log.Warn("telegram token not configured, polling ingress disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Error("poller error", logger.Err(err))
		}
	}

	stopPoller()
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", logger.Err(err))
		}
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
