// Package config loads the engine configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	Telegram  TelegramConfig
	Discord   DiscordConfig
	Mail      MailConfig
	WhatsApp  WhatsAppConfig
	Quizboard QuizboardConfig
	Scheduler SchedulerConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `env:"APP_NAME" env-default:"notify-hub"`
	Environment Environment `env:"APP_ENV" env-default:"development"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// DatabaseConfig holds PostgreSQL connection settings. URL, when set,
// takes precedence over the individual fields.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`

	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     int    `env:"DB_PORT" env-default:"5432"`
	Name     string `env:"DB_NAME" env-default:"purplepatch"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	MaxConns        int32         `env:"DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"30m"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" env-default:"10s"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"10"`

	// SnapshotTTL is how long leaderboard snapshots stay cached.
	SnapshotTTL time.Duration `env:"REDIS_SNAPSHOT_TTL" env-default:"10m"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Host string `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port int    `env:"HTTP_PORT" env-default:"8080"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	Token string `env:"TELEGRAM_BOT_TOKEN"`

	// WebhookURL, when set, is registered on API startup. The worker
	// always long-polls and deletes any webhook first.
	WebhookURL string `env:"TELEGRAM_WEBHOOK_URL"`

	PollBatchLimit   int           `env:"TELEGRAM_POLL_BATCH_LIMIT" env-default:"100"`
	PollTimeout      int           `env:"TELEGRAM_POLL_TIMEOUT" env-default:"30"`
	PollErrorBackoff time.Duration `env:"TELEGRAM_POLL_ERROR_BACKOFF" env-default:"5s"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	BotToken string `env:"DISCORD_BOT_TOKEN"`
}

// MailConfig holds Gmail API settings.
type MailConfig struct {
	AccessToken string `env:"GMAIL_ACCESS_TOKEN"`
	From        string `env:"MAIL_FROM" env-default:"noreply@purplepatch.app"`
	Subject     string `env:"MAIL_SUBJECT" env-default:"PurplePatch update"`
}

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	AccessToken   string `env:"WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
}

// QuizboardConfig holds leaderboard provider settings.
type QuizboardConfig struct {
	// WinnersURL is the weekly winners endpoint used by the winner
	// congrats scenario.
	WinnersURL string `env:"QUIZBOARD_WINNERS_URL"`

	// WinningThreshold is the worst rank still treated as winnable.
	WinningThreshold int `env:"QUIZBOARD_WINNING_THRESHOLD" env-default:"50"`

	// ReferralLink is appended to referral promo messages.
	ReferralLink string `env:"REFERRAL_LINK"`

	// ReferralBroadcastTarget, when set, sends the referral promo to one
	// group chat instead of fanning out per user.
	ReferralBroadcastTarget string `env:"REFERRAL_BROADCAST_TARGET"`

	FetchTimeout time.Duration `env:"QUIZBOARD_FETCH_TIMEOUT" env-default:"30s"`
}

// SchedulerConfig holds the daily scenario schedule. Times are "HH:MM"
// in Timezone.
type SchedulerConfig struct {
	Enabled  bool   `env:"SCHEDULER_ENABLED" env-default:"true"`
	Timezone string `env:"SCHEDULER_TIMEZONE" env-default:"Asia/Dhaka"`

	// DisabledScenarios lists scenario IDs to skip, comma separated.
	DisabledScenarios []string `env:"DISABLED_SCENARIOS"`

	// DefaultChannel is the channel scenario jobs dispatch over.
	DefaultChannel string `env:"SCENARIO_CHANNEL" env-default:"telegram"`

	SubscriptionExpiryAt   string `env:"SCHEDULE_SUBSCRIPTION_EXPIRY" env-default:"09:00"`
	DailyPlayReminderAt    string `env:"SCHEDULE_DAILY_PLAY_REMINDER" env-default:"10:00"`
	UnsubscribedReminderAt string `env:"SCHEDULE_UNSUBSCRIBED_REMINDER" env-default:"11:00"`
	WeeklyStreakPromoAt    string `env:"SCHEDULE_WEEKLY_WINNER_LIST_PROMO" env-default:"11:30"`
	ReferralPromoAt        string `env:"SCHEDULE_DAILY_REFERRAL_PROMO" env-default:"12:00"`
	InactiveSubscriberAt   string `env:"SCHEDULE_INACTIVE_SUBSCRIBER" env-default:"15:00"`
	DailyScoreMilestoneAt  string `env:"SCHEDULE_DAILY_SCORE_MILESTONE" env-default:"20:00"`
	EveningRankStatusAt    string `env:"SCHEDULE_EVE_SCORE_RANKING" env-default:"22:00"`
	WinningWarningAt       string `env:"SCHEDULE_WINNING_POSITION_WARNING" env-default:"22:30"`
	WinnerCongratsAt       string `env:"SCHEDULE_DAILY_WINNER_CONGRATS" env-default:"00:05"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING
// ══════════════════════════════════════════════════════════════════════════════

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail at job time.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("config: unknown environment %q", c.App.Environment)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Scheduler.Timezone, err)
	}

	switch c.Scheduler.DefaultChannel {
	case "mail", "whatsapp", "telegram", "discord":
	default:
		return fmt.Errorf("config: unknown scenario channel %q", c.Scheduler.DefaultChannel)
	}

	for name, at := range c.Scheduler.Times() {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("config: invalid schedule time %q for scenario %s", at, name)
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// Location resolves the scheduler timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Times maps scenario ID to its configured "HH:MM" fire time.
func (s SchedulerConfig) Times() map[string]string {
	return map[string]string{
		"subscription_expiry":      s.SubscriptionExpiryAt,
		"daily_play_reminder":      s.DailyPlayReminderAt,
		"unsubscribed_reminder":    s.UnsubscribedReminderAt,
		"weekly_winner_list_promo": s.WeeklyStreakPromoAt,
		"daily_referral_promo":     s.ReferralPromoAt,
		"inactive_subscriber":      s.InactiveSubscriberAt,
		"daily_score_milestone":    s.DailyScoreMilestoneAt,
		"eve_score_ranking":        s.EveningRankStatusAt,
		"winning_position_warning": s.WinningWarningAt,
		"daily_winner_congrats":    s.WinnerCongratsAt,
	}
}

// ScenarioDisabled reports whether the given scenario ID was disabled
// through DISABLED_SCENARIOS.
func (s SchedulerConfig) ScenarioDisabled(id string) bool {
	return slices.ContainsFunc(s.DisabledScenarios, func(d string) bool {
		return strings.EqualFold(strings.TrimSpace(d), id)
	})
}

// Addr joins host and port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}
