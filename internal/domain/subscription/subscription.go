// Package subscription contains the package catalogue and the user-package
// subscription links. Both are created by external collaborators; the
// engine only reads them.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/user"
	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PACKAGE
// ══════════════════════════════════════════════════════════════════════════════

// Duration classifies how long a package subscription lasts.
type Duration string

const (
	DurationMonthly  Duration = "monthly"
	DurationYearly   Duration = "yearly"
	DurationLifetime Duration = "lifetime"
)

// Package is a purchasable quiz package on one of the partner platforms.
type Package struct {
	ID       int64
	Name     string
	Platform user.Platform
	Duration Duration

	// ActiveMembers is a counter maintained elsewhere; read-only here.
	ActiveMembers int

	// LeaderboardURL is the third-party leaderboard endpoint for this
	// package, empty when the provider publishes none.
	LeaderboardURL string
}

// ══════════════════════════════════════════════════════════════════════════════
// USER-SUBSCRIPTION LINK
// ══════════════════════════════════════════════════════════════════════════════

// Link is a (user, package) subscription with its validity window.
type Link struct {
	ID        int64
	UserID    int64
	PackageID int64
	StartDate time.Time
	EndDate   time.Time
}

// ActiveAt reports whether the link is active at t (inclusive bounds).
func (l *Link) ActiveAt(t time.Time) bool {
	return !t.Before(l.StartDate) && !t.After(l.EndDate)
}

// ExpiresOn reports whether the link's end date falls on day's calendar day.
func (l *Link) ExpiresOn(day time.Time) bool {
	return timeutil.SameDay(day, l.EndDate)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// ErrPackageNotFound is returned when a package lookup misses.
var ErrPackageNotFound = errors.New("package not found")

// PackageRepository is the read side of the package catalogue.
type PackageRepository interface {
	// GetByID returns a package by ID.
	GetByID(ctx context.Context, id int64) (*Package, error)

	// List returns all packages.
	List(ctx context.Context) ([]*Package, error)
}

// LinkRepository is the read side of the user-subscription links.
type LinkRepository interface {
	// ListActiveAt returns links whose window contains t.
	ListActiveAt(ctx context.Context, t time.Time) ([]*Link, error)

	// ListExpiringOn returns links whose end date falls on day's calendar day.
	ListExpiringOn(ctx context.Context, day time.Time) ([]*Link, error)
}
