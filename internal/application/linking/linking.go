// Package linking implements the account-linking state machine: inbound chat
// text binds a Telegram chat to a local user account.
//
// Both ingress paths (webhook push and long-poll pull) are thin adapters
// around the single Process function, so chat-id/username extraction and the
// idempotency check cannot drift between them.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// INBOUND AND OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Inbound is one normalized chat update, regardless of ingress path.
type Inbound struct {
	UpdateID     int64
	ChatID       int64
	SenderID     int64
	SenderHandle string
	Text         string
}

// Result classifies what Process did with an inbound update.
type Result string

const (
	// ResultIgnored - update carried no usable text.
	ResultIgnored Result = "ignored"

	// ResultBadCommand - "/start" without a username.
	ResultBadCommand Result = "bad_command"

	// ResultUnknownUser - username not registered; terminal, no state change.
	ResultUnknownUser Result = "unknown_user"

	// ResultAlreadyLinked - duplicate signal for an existing binding;
	// idempotent no-op.
	ResultAlreadyLinked Result = "already_linked"

	// ResultLinked - first successful link for this user.
	ResultLinked Result = "linked"

	// ResultRelinked - binding moved to a new chat id.
	ResultRelinked Result = "relinked"

	// ResultError - a persistence write failed; logged, not retried.
	ResultError Result = "error"
)

// Outcome is the decision plus the acknowledgement to send back through the
// same channel. Reply may be empty (nothing to say).
type Outcome struct {
	Result   Result
	Reply    string
	Username string
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Service runs the linking protocol against the user and contact stores.
type Service struct {
	users    user.Repository
	contacts contact.Repository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a linking service.
func NewService(users user.Repository, contacts contact.Repository, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		contacts: contacts,
		logger:   logger,
		now:      time.Now,
	}
}

// ExtractUsername pulls the candidate username out of inbound chat text.
// Accepted forms are "/start <username>" and a bare username. The second
// return is false for "/start" with no argument.
func ExtractUsername(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/start") {
		return text, text != ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	if rest == "" {
		return "", false
	}
	// "/start alice extra" keeps only the first token.
	return strings.Fields(rest)[0], true
}

// Process runs the linking state machine for one inbound update.
//
// Unlinked → Linked(chat_id) → Relinked(new chat_id). Duplicate delivery of
// the same (username, chat_id) pair is an acknowledged no-op.
func (s *Service) Process(ctx context.Context, in Inbound) Outcome {
	if strings.TrimSpace(in.Text) == "" {
		return Outcome{Result: ResultIgnored}
	}

	username, ok := ExtractUsername(in.Text)
	if !ok {
		return Outcome{
			Result: ResultBadCommand,
			Reply:  "❌ Invalid command format.\n\nUsage: /start <your_username>\n\nExample: /start john_doe",
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, user.ErrUserNotFound) {
		s.logger.Info("link attempt for unknown username",
			"username", username,
			"chat_id", in.ChatID,
		)
		return Outcome{
			Result:   ResultUnknownUser,
			Username: username,
			Reply: fmt.Sprintf("❌ Username '%s' not found in our system.\n\n"+
				"Please register on our platform first or check your username spelling.", username),
		}
	}
	if err != nil {
		// A store failure is not a miss; replying "not found" here would
		// tell a registered user to re-register.
		s.logger.Error("failed to look up username",
			"username", username,
			"error", err,
		)
		return Outcome{Result: ResultError, Username: username}
	}

	profile, relink, err := s.loadProfile(ctx, u)
	if err != nil {
		s.logger.Error("failed to load contact profile",
			"username", username,
			"error", err,
		)
		return Outcome{Result: ResultError, Username: username}
	}

	if profile != nil && profile.TelegramLinkedTo(in.ChatID) {
		return Outcome{
			Result:   ResultAlreadyLinked,
			Username: username,
			Reply: fmt.Sprintf("✅ You are already linked to account: %s.\n\n"+
				"Notifications keep coming to this chat.", u.Username),
		}
	}

	if err := s.persistLink(ctx, u, profile, in); err != nil {
		// At-most-once attempt per inbound message; do not retry.
		s.logger.Error("failed to persist telegram link",
			"username", username,
			"chat_id", in.ChatID,
			"error", err,
		)
		return Outcome{Result: ResultError, Username: username}
	}

	s.logger.Info("telegram account linked",
		"username", username,
		"chat_id", in.ChatID,
		"relink", relink,
	)

	if relink {
		return Outcome{
			Result:   ResultRelinked,
			Username: username,
			Reply: fmt.Sprintf("🔄 Account %s is now linked to this chat instead of the previous one.\n\n"+
				"Notifications will arrive here from now on.", u.Username),
		}
	}
	return Outcome{
		Result:   ResultLinked,
		Username: username,
		Reply: fmt.Sprintf("✅ Successfully linked to account: %s\n\n"+
			"You will now receive notifications via Telegram!", u.Username),
	}
}

// loadProfile fetches the user's profile if any. The second return reports
// whether a different chat was previously bound (re-link wording).
func (s *Service) loadProfile(ctx context.Context, u *user.User) (*contact.Profile, bool, error) {
	if u.ContactProfileID == nil {
		return nil, false, nil
	}
	profile, err := s.contacts.GetByID(ctx, *u.ContactProfileID)
	if err != nil {
		return nil, false, err
	}
	relink := profile.Telegram != nil && profile.Telegram.ChatID != 0
	return profile, relink, nil
}

func (s *Service) persistLink(ctx context.Context, u *user.User, profile *contact.Profile, in Inbound) error {
	now := s.now()

	if profile == nil {
		profile = &contact.Profile{CreatedAt: now}
		profile.LinkTelegram(in.ChatID, in.SenderID, in.SenderHandle, now)
		if err := s.contacts.Create(ctx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := s.users.SetContactProfile(ctx, u.ID, profile.ID); err != nil {
			return fmt.Errorf("attach profile to user: %w", err)
		}
		return nil
	}

	profile.LinkTelegram(in.ChatID, in.SenderID, in.SenderHandle, now)
	if err := s.contacts.Update(ctx, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
