// Package quizboard fetches leaderboard snapshots from the partner quiz
// platforms. Two response shapes exist in the wild: the quizard family
// returns entries in rank order without a rank field, the other platforms
// carry the rank explicitly on each entry.
package quizboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/leaderboard"
)

// FetcherConfig contains configuration for the leaderboard fetcher.
type FetcherConfig struct {
	// Timeout is the HTTP request timeout per fetch.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// Fetcher retrieves and parses leaderboard snapshots. It implements the
// rank source consumed by the rank-based scenario rules.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewFetcher creates a leaderboard fetcher.
func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
		now:    time.Now,
	}
}

// providerEntry is the union of both provider shapes. The quizard family
// omits the rank field; the others fill it.
type providerEntry struct {
	Username string `json:"username"`
	Player   string `json:"player,omitempty"`
	Rank     int    `json:"rank,omitempty"`
	Score    int    `json:"score"`
}

func (e providerEntry) identifier() string {
	if e.Username != "" {
		return e.Username
	}
	return e.Player
}

// Snapshot fetches one leaderboard and parses it according to its provider
// family.
func (f *Fetcher) Snapshot(ctx context.Context, packageName, rawURL string) (leaderboard.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("fetch leaderboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return leaderboard.Snapshot{}, fmt.Errorf("leaderboard status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("read response: %w", err)
	}

	var raw []providerEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("parse leaderboard from %s: %w", rawURL, err)
	}

	ordered := rankIsListOrder(rawURL)
	entries := make([]leaderboard.Entry, 0, len(raw))
	for i, e := range raw {
		id := e.identifier()
		if id == "" {
			continue
		}
		rank := e.Rank
		if ordered {
			rank = i + 1
		}
		entries = append(entries, leaderboard.Entry{
			Identifier: id,
			Rank:       rank,
			Score:      e.Score,
		})
	}

	return leaderboard.Snapshot{
		PackageName: packageName,
		SourceURL:   rawURL,
		Entries:     entries,
		FetchedAt:   f.now(),
	}, nil
}

// rankIsListOrder reports whether the URL belongs to the quizard provider
// family, whose responses are sorted but carry no rank field.
func rankIsListOrder(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(strings.ToLower(rawURL), "quizard")
	}
	return strings.Contains(strings.ToLower(u.Host), "quizard")
}
