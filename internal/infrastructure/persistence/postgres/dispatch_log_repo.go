package postgres

import (
	"context"
	"fmt"

	"github.com/purplepatch/notify-hub/internal/domain/notification"
)

// DispatchLogRepository implements notification.LogRepository for
// PostgreSQL. The log is append-only.
type DispatchLogRepository struct {
	conn *Connection
}

// NewDispatchLogRepository creates a new DispatchLogRepository.
func NewDispatchLogRepository(conn *Connection) *DispatchLogRepository {
	return &DispatchLogRepository{conn: conn}
}

// Append inserts one dispatch log entry.
func (r *DispatchLogRepository) Append(ctx context.Context, entry *notification.LogEntry) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO dispatch_logs (id, user_id, channel, body, link, delivered, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.UserID,
		entry.Channel.String(),
		entry.Text,
		entry.Link,
		entry.Delivered,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("append dispatch log: %w", err)
	}
	return nil
}
