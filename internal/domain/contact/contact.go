// Package contact contains the contact profile aggregate: per-user verified
// channel addresses. The original store kept these as free-form per-channel
// JSON maps; here each channel is a typed sub-record where a nil pointer
// means "not linked" (never an error).
package contact

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// TelegramContact is a verified Telegram binding.
type TelegramContact struct {
	ChatID   int64
	UserID   int64
	Handle   string
	LinkedAt time.Time
}

// WhatsAppContact is a verified WhatsApp address.
type WhatsAppContact struct {
	Phone string
}

// DiscordContact is a verified Discord binding. DMChannelID may be empty
// while UserID is known; the Discord channel then opens a DM first.
type DiscordContact struct {
	DMChannelID string
	UserID      string
}

// MailContact is a verified mail address distinct from the user's
// account email.
type MailContact struct {
	Address string
}

// Profile holds a user's linked channel addresses. At most one per user.
type Profile struct {
	ID        int64
	Telegram  *TelegramContact
	WhatsApp  *WhatsAppContact
	Discord   *DiscordContact
	Mail      *MailContact
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LinkTelegram overwrites the telegram sub-record with a fresh binding.
func (p *Profile) LinkTelegram(chatID, userID int64, handle string, now time.Time) {
	p.Telegram = &TelegramContact{
		ChatID:   chatID,
		UserID:   userID,
		Handle:   handle,
		LinkedAt: now,
	}
	p.UpdatedAt = now
}

// TelegramLinkedTo reports whether the profile is already bound to the
// given chat. Used for the idempotency check during linking.
func (p *Profile) TelegramLinkedTo(chatID int64) bool {
	return p.Telegram != nil && p.Telegram.ChatID == chatID
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ErrProfileNotFound is returned when a profile lookup misses.
var ErrProfileNotFound = errors.New("contact profile not found")

// Repository persists contact profiles. The engine creates a profile on
// first successful link and mutates channel sub-records afterwards.
type Repository interface {
	// GetByID returns a profile by ID.
	GetByID(ctx context.Context, id int64) (*Profile, error)

	// Create persists a new profile and fills in its ID.
	Create(ctx context.Context, p *Profile) error

	// Update persists changed channel sub-records.
	Update(ctx context.Context, p *Profile) error
}
