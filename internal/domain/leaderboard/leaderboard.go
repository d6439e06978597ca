// Package leaderboard contains third-party leaderboard snapshots and the
// identifier-matching rule for resolving a local user's rank.
package leaderboard

import (
	"strings"
	"time"
)

// Entry is one ranked player in a snapshot. Identifier is whatever the
// provider publishes: a username, or a phone number that may or may not
// carry its leading zero.
type Entry struct {
	Identifier string
	Rank       int
	Score      int
}

// Snapshot is a ranked player list for one package, fetched on demand.
type Snapshot struct {
	PackageName string
	SourceURL   string
	Entries     []Entry
	FetchedAt   time.Time
}

// Match resolves the local username to a rank in the snapshot. Identifiers
// are compared with three equality tests, first match wins:
//
//  1. exact match
//  2. local with leading zeros stripped vs remote
//  3. local vs remote with leading zeros stripped
//
// This makes phone-number matching symmetric: local "01711000000" matches
// remote "1711000000" and vice versa.
func Match(username string, snap Snapshot) (int, bool) {
	stripped := stripLeadingZeros(username)
	for _, e := range snap.Entries {
		if e.Identifier == username {
			return e.Rank, true
		}
		if stripped == e.Identifier {
			return e.Rank, true
		}
		if username == stripLeadingZeros(e.Identifier) {
			return e.Rank, true
		}
	}
	return 0, false
}

func stripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		// All zeros; keep a single zero so "0" never matches "".
		return "0"
	}
	return trimmed
}
