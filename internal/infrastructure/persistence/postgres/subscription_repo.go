package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/purplepatch/notify-hub/internal/domain/subscription"
	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

// PackageRepository implements subscription.PackageRepository for PostgreSQL.
type PackageRepository struct {
	conn *Connection
}

// NewPackageRepository creates a new PackageRepository.
func NewPackageRepository(conn *Connection) *PackageRepository {
	return &PackageRepository{conn: conn}
}

// GetByID returns a package by ID.
func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*subscription.Package, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, platform, duration, active_members, leaderboard_url
		FROM subscription_packages
		WHERE id = $1
	`, id)

	var p subscription.Package
	err := row.Scan(&p.ID, &p.Name, &p.Platform, &p.Duration, &p.ActiveMembers, &p.LeaderboardURL)
	if err != nil {
		if IsNoRows(err) {
			return nil, subscription.ErrPackageNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return &p, nil
}

// List returns all packages ordered by ID.
func (r *PackageRepository) List(ctx context.Context) ([]*subscription.Package, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, name, platform, duration, active_members, leaderboard_url
		FROM subscription_packages
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var pkgs []*subscription.Package
	for rows.Next() {
		var p subscription.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Platform, &p.Duration, &p.ActiveMembers, &p.LeaderboardURL); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, &p)
	}
	return pkgs, rows.Err()
}

// LinkRepository implements subscription.LinkRepository for PostgreSQL.
type LinkRepository struct {
	conn *Connection
}

// NewLinkRepository creates a new LinkRepository.
func NewLinkRepository(conn *Connection) *LinkRepository {
	return &LinkRepository{conn: conn}
}

// ListActiveAt returns links active at the given instant, bounds inclusive.
func (r *LinkRepository) ListActiveAt(ctx context.Context, t time.Time) ([]*subscription.Link, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, package_id, start_date, end_date
		FROM user_subscriptions
		WHERE start_date <= $1 AND end_date >= $1
	`, t)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// ListExpiringOn returns links whose end date falls on the given day.
func (r *LinkRepository) ListExpiringOn(ctx context.Context, day time.Time) ([]*subscription.Link, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, package_id, start_date, end_date
		FROM user_subscriptions
		WHERE end_date >= $1 AND end_date <= $2
	`, timeutil.StartOfDay(day), timeutil.EndOfDay(day))
	if err != nil {
		return nil, fmt.Errorf("list expiring links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

func scanLinks(rows pgx.Rows) ([]*subscription.Link, error) {
	var links []*subscription.Link
	for rows.Next() {
		var l subscription.Link
		if err := rows.Scan(&l.UserID, &l.PackageID, &l.StartDate, &l.EndDate); err != nil {
			return nil, fmt.Errorf("scan subscription link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}
