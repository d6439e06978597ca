// Package quiz contains the played-quiz event stream: the append-only record
// of every play, and the source of truth for activity, streak and rank
// computations. The engine never writes it.
package quiz

import (
	"context"
	"time"
)

// PlayedQuiz is one immutable play event.
type PlayedQuiz struct {
	ID        int64
	UserID    int64
	PackageID int64
	Score     int

	// DurationSec is how long the play took, in seconds.
	DurationSec int

	PlayedAt time.Time
}

// Repository is the read side of the play event stream.
type Repository interface {
	// ListBetween returns all play events with PlayedAt in [from, to).
	ListBetween(ctx context.Context, from, to time.Time) ([]*PlayedQuiz, error)
}
