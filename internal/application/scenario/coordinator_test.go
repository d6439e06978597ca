package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/user"
)

// stubRule returns a fixed intent list.
type stubRule struct {
	id      ID
	intents []notification.Intent
	err     error
}

func (s *stubRule) ID() ID { return s.id }

func (s *stubRule) Evaluate(_ context.Context, _ time.Time) ([]notification.Intent, error) {
	return s.intents, s.err
}

func newTestCoordinator(users user.Repository, contacts contact.Repository, log notification.LogRepository, channels ...notification.Channel) *Coordinator {
	return NewCoordinator(notification.NewRegistry(channels...), users, contacts, log, testLogger())
}

func TestCoordinator_RunScenario(t *testing.T) {
	profileID := int64(7)
	users := &fakeUsers{users: []*user.User{
		{ID: 1, Username: "alice", ContactProfileID: &profileID},
		{ID: 2, Username: "bob", PhoneNumber: "8801711000000"},
	}}
	contacts := &fakeContacts{byID: map[int64]*contact.Profile{
		7: {ID: 7, Telegram: &contact.TelegramContact{ChatID: 555}},
	}}

	t.Run("dispatches and logs each resolved intent", func(t *testing.T) {
		log := &fakeLog{}
		tg := &fakeChannel{typ: notification.ChannelTelegram}
		c := newTestCoordinator(users, contacts, log, tg)
		c.Register(&stubRule{id: DailyPlayReminder, intents: []notification.Intent{
			{UserID: 1, Text: "play today"},
		}})

		n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelTelegram)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, tg.sends, 1)
		assert.Equal(t, "555", tg.sends[0].to)
		require.Len(t, log.entries, 1)
		require.NotNil(t, log.entries[0].UserID)
		assert.Equal(t, int64(1), *log.entries[0].UserID)
		assert.True(t, log.entries[0].Delivered)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		c := newTestCoordinator(users, contacts, &fakeLog{}, &fakeChannel{typ: notification.ChannelTelegram})

		n, err := c.RunScenario(context.Background(), ID("bogus"), notification.ChannelTelegram)

		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrUnknownScenario)
	})

	t.Run("unregistered channel", func(t *testing.T) {
		c := newTestCoordinator(users, contacts, &fakeLog{}, &fakeChannel{typ: notification.ChannelTelegram})
		c.Register(&stubRule{id: DailyPlayReminder})

		n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelDiscord)

		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrUnknownChannel)
	})

	t.Run("rule failure aborts before any dispatch", func(t *testing.T) {
		tg := &fakeChannel{typ: notification.ChannelTelegram}
		c := newTestCoordinator(users, contacts, &fakeLog{}, tg)
		c.Register(&stubRule{id: DailyPlayReminder, err: errors.New("db down")})

		n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelTelegram)

		assert.Zero(t, n)
		assert.Error(t, err)
		assert.Empty(t, tg.sends)
	})
}

func TestCoordinator_ResolverSkipDoesNotCount(t *testing.T) {
	profileID := int64(7)
	users := &fakeUsers{users: []*user.User{
		// Alice has a telegram binding, Bob has nothing resolvable.
		{ID: 1, Username: "alice", ContactProfileID: &profileID},
		{ID: 2, Username: "bob"},
	}}
	contacts := &fakeContacts{byID: map[int64]*contact.Profile{
		7: {ID: 7, Telegram: &contact.TelegramContact{ChatID: 555}},
	}}
	log := &fakeLog{}
	tg := &fakeChannel{typ: notification.ChannelTelegram}

	c := newTestCoordinator(users, contacts, log, tg)
	c.Register(&stubRule{id: DailyPlayReminder, intents: []notification.Intent{
		{UserID: 2, Text: "play today"},
		{UserID: 1, Text: "play today"},
	}})

	n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelTelegram)

	require.NoError(t, err)
	// Bob is skipped without a channel invocation or a log row; Alice's
	// delivery is unaffected.
	assert.Equal(t, 1, n)
	require.Len(t, tg.sends, 1)
	assert.Equal(t, "555", tg.sends[0].to)
	assert.Len(t, log.entries, 1)
}

func TestCoordinator_FailedSendStillCountsAndLogs(t *testing.T) {
	profileID := int64(7)
	users := &fakeUsers{users: []*user.User{
		{ID: 1, Username: "alice", ContactProfileID: &profileID},
	}}
	contacts := &fakeContacts{byID: map[int64]*contact.Profile{
		7: {ID: 7, Telegram: &contact.TelegramContact{ChatID: 555}},
	}}
	log := &fakeLog{}
	tg := &fakeChannel{typ: notification.ChannelTelegram, fail: true}

	c := newTestCoordinator(users, contacts, log, tg)
	c.Register(&stubRule{id: DailyPlayReminder, intents: []notification.Intent{
		{UserID: 1, Text: "play today"},
	}})

	n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelTelegram)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, log.entries, 1)
	assert.False(t, log.entries[0].Delivered)
}

func TestCoordinator_LogAppendFailureIsNonFatal(t *testing.T) {
	profileID := int64(7)
	users := &fakeUsers{users: []*user.User{
		{ID: 1, Username: "alice", ContactProfileID: &profileID},
	}}
	contacts := &fakeContacts{byID: map[int64]*contact.Profile{
		7: {ID: 7, Telegram: &contact.TelegramContact{ChatID: 555}},
	}}
	log := &fakeLog{err: errors.New("log table gone")}
	tg := &fakeChannel{typ: notification.ChannelTelegram}

	c := newTestCoordinator(users, contacts, log, tg)
	c.Register(&stubRule{id: DailyPlayReminder, intents: []notification.Intent{
		{UserID: 1, Text: "play today"},
	}})

	n, err := c.RunScenario(context.Background(), DailyPlayReminder, notification.ChannelTelegram)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, tg.sends, 1)
}

func TestCoordinator_Broadcast(t *testing.T) {
	log := &fakeLog{}
	tg := &fakeChannel{typ: notification.ChannelTelegram}

	c := newTestCoordinator(&fakeUsers{}, &fakeContacts{}, log, tg)
	c.Register(&stubRule{id: ReferralPromo, intents: []notification.Intent{
		{BroadcastTo: "-100123456", Text: "refer a friend", Link: "https://purplepatch.app/refer"},
	}})

	n, err := c.RunScenario(context.Background(), ReferralPromo, notification.ChannelTelegram)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, tg.sends, 1)
	assert.Equal(t, "-100123456", tg.sends[0].to)
	assert.Equal(t, "https://purplepatch.app/refer", tg.sends[0].link)
	require.Len(t, log.entries, 1)
	assert.Nil(t, log.entries[0].UserID)
	assert.True(t, log.entries[0].Delivered)
}

func TestCoordinator_CancellationReturnsPartialCount(t *testing.T) {
	profileID := int64(7)
	users := &fakeUsers{users: []*user.User{
		{ID: 1, Username: "alice", ContactProfileID: &profileID},
		{ID: 2, Username: "bob", ContactProfileID: &profileID},
	}}
	contacts := &fakeContacts{byID: map[int64]*contact.Profile{
		7: {ID: 7, Telegram: &contact.TelegramContact{ChatID: 555}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tg := &fakeChannel{typ: notification.ChannelTelegram}
	c := newTestCoordinator(users, contacts, &fakeLog{}, tg)
	c.Register(&stubRule{id: DailyPlayReminder, intents: []notification.Intent{
		{UserID: 1, Text: "play today"},
		{UserID: 2, Text: "play today"},
	}})

	n, err := c.RunScenario(ctx, DailyPlayReminder, notification.ChannelTelegram)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, tg.sends)
}
