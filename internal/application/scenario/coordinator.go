package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/user"
	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

// Coordinator drives one scenario run: evaluate the rule, resolve each
// intent to a physical address, send, and append an audit log entry for
// every attempt. Per-user failures never abort the batch.
type Coordinator struct {
	rules    map[ID]Rule
	registry *notification.Registry
	users    user.Repository
	contacts contact.Repository
	log      notification.LogRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewCoordinator builds a coordinator over the given stores and channel
// registry. Rules are added with Register.
func NewCoordinator(
	registry *notification.Registry,
	users user.Repository,
	contacts contact.Repository,
	log notification.LogRepository,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		rules:    make(map[ID]Rule),
		registry: registry,
		users:    users,
		contacts: contacts,
		log:      log,
		logger:   logger,
		// Rules reason about calendar days in the platform timezone.
		now: timeutil.Now,
	}
}

// Register adds a rule to the catalogue. Later registrations for the same
// ID overwrite earlier ones.
func (c *Coordinator) Register(rule Rule) {
	c.rules[rule.ID()] = rule
}

// RunScenario evaluates one scenario and dispatches its intents over the
// requested channel. It returns the number of attempted dispatches; a
// failed send still counts as attempted, a user skipped by the contact
// resolver does not. Cancellation between per-user iterations leaves the
// batch partially completed, which is valid.
func (c *Coordinator) RunScenario(ctx context.Context, id ID, chType notification.ChannelType) (int, error) {
	rule, ok := c.rules[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}
	channel := c.registry.Get(chType)
	if channel == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, chType)
	}

	started := c.now()
	intents, err := rule.Evaluate(ctx, started)
	if err != nil {
		return 0, fmt.Errorf("evaluate scenario %s: %w", id, err)
	}

	attempted := 0
	for _, intent := range intents {
		select {
		case <-ctx.Done():
			c.logger.Info("scenario run aborted",
				"scenario", id,
				"attempted", attempted,
			)
			return attempted, ctx.Err()
		default:
		}

		if intent.IsBroadcast() {
			delivered := channel.Send(ctx, intent.BroadcastTo, intent.Text, intent.Link, nil)
			attempted++
			c.appendLog(ctx, 0, chType, intent, delivered)
			continue
		}

		if c.dispatchToUser(ctx, channel, chType, intent) {
			attempted++
		}
	}

	c.logger.Info("scenario run finished",
		"scenario", id,
		"channel", chType,
		"intents", len(intents),
		"attempted", attempted,
		"took", time.Since(started),
	)
	return attempted, nil
}

// dispatchToUser resolves and sends one per-user intent. It reports whether
// a delivery was actually attempted.
func (c *Coordinator) dispatchToUser(ctx context.Context, channel notification.Channel, chType notification.ChannelType, intent notification.Intent) bool {
	u, err := c.users.GetByID(ctx, intent.UserID)
	if err != nil {
		c.logger.Warn("skipping intent, user lookup failed",
			"user_id", intent.UserID,
			"error", err,
		)
		return false
	}

	var profile *contact.Profile
	if u.ContactProfileID != nil {
		profile, err = c.contacts.GetByID(ctx, *u.ContactProfileID)
		if err != nil {
			// The resolver may still find an address on the user record itself.
			c.logger.Warn("contact profile load failed",
				"user_id", u.ID,
				"error", err,
			)
			profile = nil
		}
	}

	addr, ok := contact.Resolve(u, profile, chType)
	if !ok {
		c.logger.Debug("no address for user on channel, skipping",
			"user_id", u.ID,
			"channel", chType,
		)
		return false
	}

	delivered := channel.Send(ctx, addr.To, intent.Text, intent.Link, addr.Extra)
	if !delivered {
		c.logger.Warn("send failed",
			"user_id", u.ID,
			"channel", chType,
		)
	}

	c.appendLog(ctx, u.ID, chType, intent, delivered)
	return true
}

// appendLog writes the audit entry for one attempt. Log failures are
// non-fatal to the batch.
func (c *Coordinator) appendLog(ctx context.Context, userID int64, chType notification.ChannelType, intent notification.Intent, delivered bool) {
	entry := notification.NewLogEntry(userID, chType, intent.Text, intent.Link, delivered, c.now())
	if err := c.log.Append(ctx, entry); err != nil {
		c.logger.Error("dispatch log append failed",
			"user_id", userID,
			"channel", chType,
			"error", err,
		)
	}
}
