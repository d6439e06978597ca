package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/leaderboard"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/quiz"
	"github.com/purplepatch/notify-hub/internal/domain/subscription"
	"github.com/purplepatch/notify-hub/internal/domain/user"
	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

// winnersListLimit caps how many entries of the weekly winners snapshot are
// cross-referenced against local usernames.
const winnersListLimit = 50

// DefaultWinningThreshold is the worst rank that can still plausibly win.
const DefaultWinningThreshold = 50

// resolvedRank is one (user, package) pair with its leaderboard rank.
type resolvedRank struct {
	user *user.User
	pkg  *subscription.Package
	rank int
}

// resolveTodayRanks builds the (user, package) pairs from today's plays and
// resolves each user's rank on the package leaderboard. A fetch or parse
// failure for one package is logged and skipped; other packages still
// evaluate. Snapshots are fetched at most once per package per call.
func resolveTodayRanks(
	ctx context.Context,
	now time.Time,
	quizzes quiz.Repository,
	packages subscription.PackageRepository,
	users user.Repository,
	ranks RankSource,
	logger *slog.Logger,
) ([]resolvedRank, error) {
	plays, err := quizzes.ListBetween(ctx, timeutil.StartOfDay(now), now)
	if err != nil {
		return nil, fmt.Errorf("list today's plays: %w", err)
	}

	byPkg, err := packagesByID(ctx, packages)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ userID, pkgID int64 }
	pairs := make(map[pairKey]bool)
	for _, p := range plays {
		pairs[pairKey{p.UserID, p.PackageID}] = true
	}

	snapshots := make(map[int64]*leaderboard.Snapshot)
	userCache := make(map[int64]*user.User)

	var out []resolvedRank
	for pair := range pairs {
		pkg, ok := byPkg[pair.pkgID]
		if !ok || pkg.LeaderboardURL == "" {
			continue
		}

		snap, cached := snapshots[pkg.ID]
		if !cached {
			s, err := ranks.Snapshot(ctx, pkg.Name, pkg.LeaderboardURL)
			if err != nil {
				logger.Warn("leaderboard fetch failed, skipping package",
					"package", pkg.Name,
					"url", pkg.LeaderboardURL,
					"error", err,
				)
				snapshots[pkg.ID] = nil
				continue
			}
			snap = &s
			snapshots[pkg.ID] = snap
		}
		if snap == nil {
			// Earlier fetch for this package already failed.
			continue
		}

		u, ok := userCache[pair.userID]
		if !ok {
			loaded, err := users.GetByID(ctx, pair.userID)
			if err != nil {
				logger.Warn("user lookup failed during rank resolution",
					"user_id", pair.userID,
					"error", err,
				)
				userCache[pair.userID] = nil
				continue
			}
			u = loaded
			userCache[pair.userID] = u
		}
		if u == nil {
			continue
		}

		rank, found := leaderboard.Match(u.Username, *snap)
		if !found {
			continue
		}
		out = append(out, resolvedRank{user: u, pkg: pkg, rank: rank})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENING RANK STATUS
// ══════════════════════════════════════════════════════════════════════════════

// EveningRankStatusRule reports today's leaderboard rank to every user who
// played a package with a known leaderboard.
type EveningRankStatusRule struct {
	Quizzes  quiz.Repository
	Packages subscription.PackageRepository
	Users    user.Repository
	Ranks    RankSource
	Logger   *slog.Logger
}

func (r *EveningRankStatusRule) ID() ID { return EveningRankStatus }

func (r *EveningRankStatusRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	resolved, err := resolveTodayRanks(ctx, now, r.Quizzes, r.Packages, r.Users, r.Ranks, r.Logger)
	if err != nil {
		return nil, err
	}

	var intents []notification.Intent
	for _, rr := range resolved {
		intents = append(intents, notification.Intent{
			UserID: rr.user.ID,
			Text: Render("Evening update: you are ranked #{rank} in {package} today. "+
				"One more game could push you higher!", map[string]string{
				"rank":    strconv.Itoa(rr.rank),
				"package": rr.pkg.Name,
			}),
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WINNING-POSITION WARNING
// ══════════════════════════════════════════════════════════════════════════════

// WinningWarningRule warns users whose rank is strictly worse than the
// winning cutoff. Rank equal to the threshold does not trigger a warning.
type WinningWarningRule struct {
	Quizzes  quiz.Repository
	Packages subscription.PackageRepository
	Users    user.Repository
	Ranks    RankSource
	Logger   *slog.Logger

	// Threshold is the worst winnable rank; zero means DefaultWinningThreshold.
	Threshold int
}

func (r *WinningWarningRule) ID() ID { return WinningWarning }

func (r *WinningWarningRule) Evaluate(ctx context.Context, now time.Time) ([]notification.Intent, error) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultWinningThreshold
	}

	resolved, err := resolveTodayRanks(ctx, now, r.Quizzes, r.Packages, r.Users, r.Ranks, r.Logger)
	if err != nil {
		return nil, err
	}

	var intents []notification.Intent
	for _, rr := range resolved {
		if rr.rank <= threshold {
			continue
		}
		intents = append(intents, notification.Intent{
			UserID: rr.user.ID,
			Text: Render("Heads up: you are #{rank} in {package}, but only the top {threshold} "+
				"can win this round. Play a few more games to close the gap!", map[string]string{
				"rank":      strconv.Itoa(rr.rank),
				"package":   rr.pkg.Name,
				"threshold": strconv.Itoa(threshold),
			}),
		})
	}
	return intents, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WINNER CONGRATULATIONS
// ══════════════════════════════════════════════════════════════════════════════

// WinnerCongratsRule cross-references the weekly winners snapshot against
// local usernames and congratulates the matches. Only the first fifty
// snapshot entries are considered.
type WinnerCongratsRule struct {
	Users  user.Repository
	Ranks  RankSource
	Logger *slog.Logger

	// WinnersURL is the fixed weekly winners endpoint.
	WinnersURL string
}

func (r *WinnerCongratsRule) ID() ID { return WinnerCongrats }

func (r *WinnerCongratsRule) Evaluate(ctx context.Context, _ time.Time) ([]notification.Intent, error) {
	snap, err := r.Ranks.Snapshot(ctx, "weekly-winners", r.WinnersURL)
	if err != nil {
		// One unreachable provider must not fail the scenario run; there is
		// simply nobody to congratulate.
		r.Logger.Warn("weekly winners fetch failed", "url", r.WinnersURL, "error", err)
		return nil, nil
	}
	if len(snap.Entries) > winnersListLimit {
		snap.Entries = snap.Entries[:winnersListLimit]
	}

	users, err := r.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var intents []notification.Intent
	for _, u := range users {
		rank, ok := leaderboard.Match(u.Username, snap)
		if !ok {
			continue
		}
		intents = append(intents, notification.Intent{
			UserID: u.ID,
			Text: Render("Congratulations {username}! 🎉 You finished #{rank} among this week's winners. "+
				"Your prize is on its way.", map[string]string{
				"username": u.Username,
				"rank":     strconv.Itoa(rank),
			}),
		})
	}
	return intents, nil
}
