// Package poller implements the pull ingress: a long-polling loop that
// fetches Telegram updates in batches, runs each through the linking core
// and advances a persisted cursor. The engine runs either this or the
// webhook, never both.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/purplepatch/notify-hub/internal/application/linking"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/telegram"
)

// UpdateSource fetches batches of updates since an offset.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, limit int, timeout int) ([]telegram.Update, error)
}

// ReplySender sends linking acknowledgements back to the chat.
type ReplySender interface {
	SendText(ctx context.Context, chatID string, text string) (*telegram.Message, error)
}

// CursorStore persists the polling offset across restarts.
type CursorStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, cursor int64) error
}

// Config contains poller tuning.
type Config struct {
	// BatchLimit is the maximum updates fetched per request.
	BatchLimit int

	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int

	// ErrorBackoff is the wait after a failed fetch.
	ErrorBackoff time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchLimit:   100,
		PollTimeout:  30,
		ErrorBackoff: 5 * time.Second,
	}
}

// Poller drives the pull ingress loop.
type Poller struct {
	source  UpdateSource
	replies ReplySender
	linking *linking.Service
	cursor  CursorStore
	config  Config
	logger  *slog.Logger
}

// New creates a poller.
func New(source UpdateSource, replies ReplySender, linkSvc *linking.Service, cursor CursorStore, config Config, logger *slog.Logger) *Poller {
	if config.BatchLimit <= 0 {
		config.BatchLimit = 100
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		source:  source,
		replies: replies,
		linking: linkSvc,
		cursor:  cursor,
		config:  config,
		logger:  logger,
	}
}

// Run blocks polling for updates until the context is cancelled. A failed
// fetch backs off and retries the same cursor; the cursor only moves past
// updates whose processing was attempted.
func (p *Poller) Run(ctx context.Context) error {
	offset, err := p.cursor.Load(ctx)
	if err != nil {
		p.logger.Warn("poll cursor load failed, starting from zero", "error", err)
		offset = 0
	}

	p.logger.Info("poller started", "offset", offset)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		default:
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.config.BatchLimit, p.config.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			p.logger.Error("get updates failed", "offset", offset, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(p.config.ErrorBackoff):
			}
			continue
		}

		for _, update := range updates {
			p.handleUpdate(ctx, &update)
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
		}

		if len(updates) > 0 {
			if err := p.cursor.Save(ctx, offset); err != nil {
				p.logger.Error("poll cursor save failed", "offset", offset, "error", err)
			}
		}
	}
}

// handleUpdate runs one update through linking and sends the reply.
func (p *Poller) handleUpdate(ctx context.Context, update *telegram.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	inbound := linking.Inbound{
		UpdateID: update.UpdateID,
		ChatID:   msg.Chat.ID,
		Text:     msg.Text,
	}
	if msg.From != nil {
		inbound.SenderID = msg.From.ID
		inbound.SenderHandle = msg.From.Username
	}

	outcome := p.linking.Process(ctx, inbound)
	if outcome.Reply == "" {
		return
	}

	chatID := strconv.FormatInt(inbound.ChatID, 10)
	if _, err := p.replies.SendText(ctx, chatID, outcome.Reply); err != nil {
		p.logger.Error("linking reply failed",
			"chat_id", inbound.ChatID,
			"result", outcome.Result,
			"error", err,
		)
	}
}
