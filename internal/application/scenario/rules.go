package scenario

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/quiz"
	"github.com/purplepatch/notify-hub/internal/domain/subscription"
	"github.com/purplepatch/notify-hub/internal/domain/user"
	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNSUBSCRIBED REMINDER
// ══════════════════════════════════════════════════════════════════════════════

// UnsubscribedReminderRule reminds registered-but-unsubscribed users, only
// on every other day counted from their join date.
type UnsubscribedReminderRule struct {
	Users    user.Repository
	Links    subscription.LinkRepository
	Packages subscription.PackageRepository
}

func (r *UnsubscribedReminderRule) ID() ID { return UnsubscribedReminder }

func (r *UnsubscribedReminderRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	users, err := r.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	subscribed, err := activePlatforms(ctx, r.Links, r.Packages, now)
	if err != nil {
		return nil, err
	}

	var intents []notification.Intent
	for _, u := range users {
		if !u.RegisteredAnywhere() {
			continue
		}
		days := timeutil.DaysBetween(u.CreatedAt, now)
		if days <= 0 || days%2 != 0 {
			continue
		}

		missing := firstUnsubscribedPlatform(u, subscribed[u.ID])
		if missing == "" {
			continue
		}

		intents = append(intents, notification.Intent{
			UserID: u.ID,
			Text: Render("Hi {username}! You are registered on {platform} but have no active subscription. "+
				"Subscribe today and start winning!", map[string]string{
				"username": u.Username,
				"platform": string(missing),
			}),
		})
	}
	return intents, nil
}

// activePlatforms maps user ID to the set of platforms with a currently
// active subscription.
func activePlatforms(ctx context.Context, links subscription.LinkRepository, pkgs subscription.PackageRepository, now time.Time) (map[int64]map[user.Platform]bool, error) {
	active, err := links.ListActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}

	byPkg, err := packagesByID(ctx, pkgs)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]map[user.Platform]bool)
	for _, l := range active {
		p, ok := byPkg[l.PackageID]
		if !ok {
			continue
		}
		if out[l.UserID] == nil {
			out[l.UserID] = make(map[user.Platform]bool)
		}
		out[l.UserID][p.Platform] = true
	}
	return out, nil
}

func packagesByID(ctx context.Context, pkgs subscription.PackageRepository) (map[int64]*subscription.Package, error) {
	all, err := pkgs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	byID := make(map[int64]*subscription.Package, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	return byID, nil
}

func firstUnsubscribedPlatform(u *user.User, subscribed map[user.Platform]bool) user.Platform {
	for _, p := range u.Platforms() {
		if !subscribed[p] {
			return p
		}
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY SCORE MILESTONE
// ══════════════════════════════════════════════════════════════════════════════

// DailyScoreMilestoneRule congratulates users who logged two or more plays
// of the same package today, carrying today's top score for that pairing.
type DailyScoreMilestoneRule struct {
	Quizzes  quiz.Repository
	Packages subscription.PackageRepository
}

func (r *DailyScoreMilestoneRule) ID() ID { return DailyScoreMilestone }

func (r *DailyScoreMilestoneRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	plays, err := r.Quizzes.ListBetween(ctx, timeutil.StartOfDay(now), now)
	if err != nil {
		return nil, fmt.Errorf("list today's plays: %w", err)
	}

	byPkg, err := packagesByID(ctx, r.Packages)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ userID, pkgID int64 }
	counts := make(map[pairKey]int)
	maxScore := make(map[pairKey]int)
	for _, p := range plays {
		k := pairKey{p.UserID, p.PackageID}
		counts[k]++
		if p.Score > maxScore[k] {
			maxScore[k] = p.Score
		}
	}

	var intents []notification.Intent
	for k, n := range counts {
		if n < 2 {
			continue
		}
		pkgName := "your package"
		if p, ok := byPkg[k.pkgID]; ok {
			pkgName = p.Name
		}
		intents = append(intents, notification.Intent{
			UserID: k.userID,
			Text: Render("What a run! You played {package} {count} times today. "+
				"Top score: {score}. Keep it up!", map[string]string{
				"package": pkgName,
				"count":   strconv.Itoa(n),
				"score":   strconv.Itoa(maxScore[k]),
			}),
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION EXPIRY
// ══════════════════════════════════════════════════════════════════════════════

// SubscriptionExpiryRule notifies users whose subscription ends today.
type SubscriptionExpiryRule struct {
	Links    subscription.LinkRepository
	Packages subscription.PackageRepository
}

func (r *SubscriptionExpiryRule) ID() ID { return SubscriptionExpiry }

func (r *SubscriptionExpiryRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	expiring, err := r.Links.ListExpiringOn(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expiring links: %w", err)
	}

	byPkg, err := packagesByID(ctx, r.Packages)
	if err != nil {
		return nil, err
	}

	var intents []notification.Intent
	for _, l := range expiring {
		pkgName := "your package"
		if p, ok := byPkg[l.PackageID]; ok {
			pkgName = p.Name
		}
		intents = append(intents, notification.Intent{
			UserID: l.UserID,
			Text: Render("Your {package} subscription expires today. "+
				"Renew now to keep playing without interruption.", map[string]string{
				"package": pkgName,
			}),
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INACTIVE SUBSCRIBER
// ══════════════════════════════════════════════════════════════════════════════

// InactiveSubscriberRule nudges active subscribers with no play event in
// the trailing three days.
type InactiveSubscriberRule struct {
	Links   subscription.LinkRepository
	Quizzes quiz.Repository
}

func (r *InactiveSubscriberRule) ID() ID { return InactiveSubscriber }

func (r *InactiveSubscriberRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	active, err := r.Links.ListActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}

	plays, err := r.Quizzes.ListBetween(ctx, timeutil.DaysAgo(now, 3), now)
	if err != nil {
		return nil, fmt.Errorf("list recent plays: %w", err)
	}
	played := make(map[int64]bool)
	for _, p := range plays {
		played[p.UserID] = true
	}

	seen := make(map[int64]bool)
	var intents []notification.Intent
	for _, l := range active {
		if seen[l.UserID] || played[l.UserID] {
			continue
		}
		seen[l.UserID] = true
		intents = append(intents, notification.Intent{
			UserID: l.UserID,
			Text:   "We miss you! You haven't played in a few days. Jump back in - your subscription is waiting.",
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY PLAY REMINDER
// ══════════════════════════════════════════════════════════════════════════════

// DailyPlayReminderRule reminds subscribed users who have not played today.
type DailyPlayReminderRule struct {
	Links   subscription.LinkRepository
	Quizzes quiz.Repository
}

func (r *DailyPlayReminderRule) ID() ID { return DailyPlayReminder }

func (r *DailyPlayReminderRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	active, err := r.Links.ListActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}

	plays, err := r.Quizzes.ListBetween(ctx, timeutil.StartOfDay(now), now)
	if err != nil {
		return nil, fmt.Errorf("list today's plays: %w", err)
	}
	playedToday := make(map[int64]bool)
	for _, p := range plays {
		playedToday[p.UserID] = true
	}

	seen := make(map[int64]bool)
	var intents []notification.Intent
	for _, l := range active {
		if seen[l.UserID] || playedToday[l.UserID] {
			continue
		}
		seen[l.UserID] = true
		intents = append(intents, notification.Intent{
			UserID: l.UserID,
			Text:   "Today's quizzes are live! Play now and defend your spot on the leaderboard.",
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REFERRAL PROMO
// ══════════════════════════════════════════════════════════════════════════════

// ReferralPromoRule promotes the referral program. With a broadcast target
// configured it emits a single channel broadcast; otherwise it fans out to
// every user.
type ReferralPromoRule struct {
	Users user.Repository

	// BroadcastTarget, when non-empty, replaces per-user fan-out with one
	// channel-level broadcast (e.g. a Telegram channel chat ID).
	BroadcastTarget string

	// ReferralLink is appended to the message by the channel transport.
	ReferralLink string
}

func (r *ReferralPromoRule) ID() ID { return ReferralPromo }

func (r *ReferralPromoRule) Evaluate(ctx context.Context, _ time.Time) ([]notification.Intent, error) {
	const text = "Bring a friend, win together! Refer a friend and you both get a free week of premium quizzes."

	if r.BroadcastTarget != "" {
		return []notification.Intent{{
			BroadcastTo: r.BroadcastTarget,
			Text:        text,
			Link:        r.ReferralLink,
		}}, nil
	}

	users, err := r.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var intents []notification.Intent
	for _, u := range users {
		intents = append(intents, notification.Intent{
			UserID: u.ID,
			Text:   text,
			Link:   r.ReferralLink,
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY STREAK PROMO
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyStreakPromoRule rewards users who played on three or more distinct
// days within the trailing three-day window.
type WeeklyStreakPromoRule struct {
	Quizzes quiz.Repository
}

func (r *WeeklyStreakPromoRule) ID() ID { return WeeklyStreakPromo }

func (r *WeeklyStreakPromoRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	plays, err := r.Quizzes.ListBetween(ctx, timeutil.DaysAgo(now, 2), now)
	if err != nil {
		return nil, fmt.Errorf("list window plays: %w", err)
	}

	byUser := make(map[int64][]time.Time)
	for _, p := range plays {
		byUser[p.UserID] = append(byUser[p.UserID], p.PlayedAt)
	}

	var intents []notification.Intent
	for userID, times := range byUser {
		days := timeutil.DistinctDays(times, now.Location())
		if days < 3 {
			continue
		}
		intents = append(intents, notification.Intent{
			UserID: userID,
			Text: Render("You're on fire - {days} days playing in a row! "+
				"Keep the streak alive and climb the weekly board.", map[string]string{
				"days": strconv.Itoa(days),
			}),
		})
	}
	return intents, nil
}
