package postgres

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema step.
type Migration struct {
	Version   int
	Name      string
	Up        string
	Down      string
	AppliedAt time.Time
}

// GetMigrations returns the full ordered migration list.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users",
			Up: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username TEXT NOT NULL UNIQUE,
					full_name TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					phone_number TEXT NOT NULL DEFAULT '',
					on_quizard BOOLEAN NOT NULL DEFAULT FALSE,
					on_brainburst BOOLEAN NOT NULL DEFAULT FALSE,
					on_triviapark BOOLEAN NOT NULL DEFAULT FALSE,
					contact_profile_id BIGINT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
			`,
			Down: `DROP TABLE IF EXISTS users;`,
		},
		{
			Version: 2,
			Name:    "create_contact_profiles",
			Up: `
				CREATE TABLE IF NOT EXISTS contact_profiles (
					id BIGSERIAL PRIMARY KEY,
					telegram JSONB,
					whatsapp JSONB,
					discord JSONB,
					mail JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
			Down: `DROP TABLE IF EXISTS contact_profiles;`,
		},
		{
			Version: 3,
			Name:    "create_subscription_packages",
			Up: `
				CREATE TABLE IF NOT EXISTS subscription_packages (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					platform TEXT NOT NULL,
					duration TEXT NOT NULL,
					active_members INT NOT NULL DEFAULT 0,
					leaderboard_url TEXT NOT NULL DEFAULT ''
				);
			`,
			Down: `DROP TABLE IF EXISTS subscription_packages;`,
		},
		{
			Version: 4,
			Name:    "create_user_subscriptions",
			Up: `
				CREATE TABLE IF NOT EXISTS user_subscriptions (
					user_id BIGINT NOT NULL REFERENCES users(id),
					package_id BIGINT NOT NULL REFERENCES subscription_packages(id),
					start_date TIMESTAMPTZ NOT NULL,
					end_date TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (user_id, package_id, start_date)
				);
				CREATE INDEX IF NOT EXISTS idx_user_subscriptions_end_date ON user_subscriptions(end_date);
			`,
			Down: `DROP TABLE IF EXISTS user_subscriptions;`,
		},
		{
			Version: 5,
			Name:    "create_played_quizzes",
			Up: `
				CREATE TABLE IF NOT EXISTS played_quizzes (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					package_id BIGINT NOT NULL REFERENCES subscription_packages(id),
					score INT NOT NULL DEFAULT 0,
					duration_sec INT NOT NULL DEFAULT 0,
					played_at TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_played_quizzes_played_at ON played_quizzes(played_at);
			`,
			Down: `DROP TABLE IF EXISTS played_quizzes;`,
		},
		{
			Version: 6,
			Name:    "create_dispatch_logs",
			Up: `
				CREATE TABLE IF NOT EXISTS dispatch_logs (
					id UUID PRIMARY KEY,
					user_id BIGINT,
					channel TEXT NOT NULL,
					body TEXT NOT NULL,
					link TEXT NOT NULL DEFAULT '',
					delivered BOOLEAN NOT NULL,
					sent_at TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_dispatch_logs_sent_at ON dispatch_logs(sent_at);
			`,
			Down: `DROP TABLE IF EXISTS dispatch_logs;`,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migrator applies versioned migrations in order.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator over the built-in migration list.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
	}
}

// EnsureMigrationTable creates the bookkeeping table if missing.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: create migration table: %v", ErrMigrationFailed, err)
	}
	return nil
}

// GetAppliedMigrations returns applied versions with their apply time.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("%w: query applied migrations: %v", ErrMigrationFailed, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("%w: scan migration row: %v", ErrMigrationFailed, err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Migrate applies every pending migration in version order.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, done := applied[mig.Version]; done {
			continue
		}

		if _, err := m.conn.Exec(ctx, mig.Up); err != nil {
			return fmt.Errorf("%w: apply %d_%s: %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
		if _, err := m.conn.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			mig.Version, mig.Name,
		); err != nil {
			return fmt.Errorf("%w: record %d_%s: %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}
