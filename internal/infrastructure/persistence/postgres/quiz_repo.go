package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/quiz"
)

// QuizRepository implements quiz.Repository for PostgreSQL.
type QuizRepository struct {
	conn *Connection
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

// ListBetween returns play events in [from, to), oldest first.
func (r *QuizRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*quiz.PlayedQuiz, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, package_id, score, duration_sec, played_at
		FROM played_quizzes
		WHERE played_at >= $1 AND played_at < $2
		ORDER BY played_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list played quizzes: %w", err)
	}
	defer rows.Close()

	var plays []*quiz.PlayedQuiz
	for rows.Next() {
		var p quiz.PlayedQuiz
		if err := rows.Scan(&p.ID, &p.UserID, &p.PackageID, &p.Score, &p.DurationSec, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan played quiz: %w", err)
		}
		plays = append(plays, &p)
	}
	return plays, rows.Err()
}
