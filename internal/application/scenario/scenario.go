// Package scenario contains the rule catalogue of the notification engine
// and the dispatch coordinator that turns rule output into delivery
// attempts.
//
// Each rule is an independent query+decision unit keyed by a scenario ID.
// Rules are deliberately not idempotent across runs: firing the same
// scenario twice on the same day re-notifies the same qualifying users
// unless the data changed. The external scheduler owns the cadence.
package scenario

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/leaderboard"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCENARIO IDS
// ══════════════════════════════════════════════════════════════════════════════

// ID names an independently schedulable scenario.
type ID string

const (
	// UnsubscribedReminder - registered users without an active
	// subscription, reminded every other day since joining.
	UnsubscribedReminder ID = "unsubscribed_reminder"

	// DailyScoreMilestone - users with two or more plays of the same
	// package today; carries today's top score.
	DailyScoreMilestone ID = "daily_score_milestone"

	// EveningRankStatus - today's leaderboard rank for users who played.
	EveningRankStatus ID = "eve_score_ranking"

	// SubscriptionExpiry - subscription links ending today.
	SubscriptionExpiry ID = "subscription_expiry"

	// InactiveSubscriber - active subscribers with no play in the
	// trailing three days.
	InactiveSubscriber ID = "inactive_subscriber"

	// DailyPlayReminder - subscribed users who have not played today.
	DailyPlayReminder ID = "daily_play_reminder"

	// WinnerCongrats - cross-reference of the weekly winners snapshot
	// against local usernames, first fifty entries only.
	WinnerCongrats ID = "daily_winner_congrats"

	// ReferralPromo - unconditional promo to all users, or a single
	// channel broadcast when a broadcast target is configured.
	ReferralPromo ID = "daily_referral_promo"

	// WeeklyStreakPromo - users who played on three or more distinct days
	// within the trailing three-day window.
	WeeklyStreakPromo ID = "weekly_winner_list_promo"

	// WinningWarning - users whose resolved rank is strictly worse than
	// the winning cutoff.
	WinningWarning ID = "winning_position_warning"
)

// All returns every scenario ID in schedule order.
func All() []ID {
	return []ID{
		UnsubscribedReminder,
		DailyScoreMilestone,
		EveningRankStatus,
		SubscriptionExpiry,
		InactiveSubscriber,
		DailyPlayReminder,
		WinnerCongrats,
		ReferralPromo,
		WeeklyStreakPromo,
		WinningWarning,
	}
}

// ErrUnknownScenario is returned when RunScenario gets an unregistered ID.
var ErrUnknownScenario = errors.New("unknown scenario")

// ErrUnknownChannel is returned when the requested channel is not registered.
var ErrUnknownChannel = errors.New("unknown channel")

// ══════════════════════════════════════════════════════════════════════════════
// RULE CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Rule evaluates one scenario against "now" and produces dispatch intents.
// Evaluation must isolate per-package failures (leaderboard fetch errors are
// logged and skipped, never propagated).
type Rule interface {
	// ID returns the scenario this rule implements.
	ID() ID

	// Evaluate computes the dispatch intents for the given time.
	Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error)
}

// RankSource produces a leaderboard snapshot for a package. Implemented by
// the quizboard fetcher, optionally wrapped in the redis snapshot cache.
type RankSource interface {
	Snapshot(ctx context.Context, packageName, url string) (leaderboard.Snapshot, error)
}

// Render substitutes {placeholder} occurrences in a message template.
// Unknown placeholders are left as-is.
func Render(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
