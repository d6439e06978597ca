// Package notification contains the delivery-side domain model: channel
// types, the channel strategy contract, dispatch intents produced by
// scenario rules, and the dispatch audit log.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL TYPE
// ══════════════════════════════════════════════════════════════════════════════

// ChannelType identifies a delivery medium.
type ChannelType string

const (
	// ChannelMail delivers via the Gmail REST API.
	ChannelMail ChannelType = "mail"

	// ChannelWhatsApp delivers via the WhatsApp Cloud API.
	ChannelWhatsApp ChannelType = "whatsapp"

	// ChannelTelegram delivers via the Telegram Bot API.
	ChannelTelegram ChannelType = "telegram"

	// ChannelDiscord delivers via the Discord REST API.
	ChannelDiscord ChannelType = "discord"
)

// IsValid reports whether ct is a known channel type.
func (ct ChannelType) IsValid() bool {
	switch ct {
	case ChannelMail, ChannelWhatsApp, ChannelTelegram, ChannelDiscord:
		return true
	default:
		return false
	}
}

// String returns the string form of the channel type.
func (ct ChannelType) String() string {
	return string(ct)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL STRATEGY
// ══════════════════════════════════════════════════════════════════════════════

// Extra keys understood by channel implementations.
const (
	// ExtraDiscordUserID carries a raw Discord user ID when no DM channel
	// is known yet.
	ExtraDiscordUserID = "user_id"

	// ExtraDiscordCreateDM asks the Discord channel to open a DM channel
	// before sending. Attempted at most once per call.
	ExtraDiscordCreateDM = "create_dm"
)

// Channel is the strategy contract implemented once per delivery medium.
//
// Implementations append the link to the body when present, treat an absent
// or placeholder credential as a logged no-op success, and report transport
// errors by returning false. They never panic past this boundary.
type Channel interface {
	// Type returns the channel's type.
	Type() ChannelType

	// Send transmits text (plus optional link) to the resolved address.
	Send(ctx context.Context, to, text, link string, extra map[string]string) bool
}

// Registry maps channel types to their strategy implementations.
// Built once at startup; read-only afterwards.
type Registry struct {
	channels map[ChannelType]Channel
}

// NewRegistry builds a registry from the given channels.
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[ChannelType]Channel, len(channels))}
	for _, ch := range channels {
		r.channels[ch.Type()] = ch
	}
	return r
}

// Get returns the channel for the given type, or nil if not registered.
func (r *Registry) Get(ct ChannelType) Channel {
	return r.channels[ct]
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH INTENT
// ══════════════════════════════════════════════════════════════════════════════

// Intent is a message a scenario rule wants delivered. It is not yet
// resolved to a physical address.
//
// Either UserID is set (per-user fan-out, address resolved via the contact
// resolver) or BroadcastTo is set (a single channel-level broadcast target
// used by context messages).
type Intent struct {
	UserID      int64
	BroadcastTo string
	Text        string
	Link        string
}

// IsBroadcast reports whether the intent targets a broadcast address
// instead of a user.
func (i Intent) IsBroadcast() bool {
	return i.BroadcastTo != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH LOG
// ══════════════════════════════════════════════════════════════════════════════

// LogEntry is the immutable audit record written after every delivery
// attempt, successful or not.
type LogEntry struct {
	ID        uuid.UUID
	UserID    *int64
	Channel   ChannelType
	Text      string
	Link      string
	Delivered bool
	SentAt    time.Time
}

// NewLogEntry builds a log entry for one attempt. userID of 0 means the
// attempt had no user reference (broadcast).
func NewLogEntry(userID int64, ch ChannelType, text, link string, delivered bool, at time.Time) *LogEntry {
	e := &LogEntry{
		ID:        uuid.New(),
		Channel:   ch,
		Text:      text,
		Link:      link,
		Delivered: delivered,
		SentAt:    at,
	}
	if userID != 0 {
		e.UserID = &userID
	}
	return e
}

// LogRepository appends dispatch log entries. Append failures are non-fatal
// to the batch; callers log and continue.
type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
}
