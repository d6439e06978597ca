package http

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplepatch/notify-hub/internal/application/linking"
	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/user"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/telegram"
)

type fakeUserRepo struct {
	users map[string]*user.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*user.User, error) { return nil, nil }

func (f *fakeUserRepo) SetContactProfile(_ context.Context, userID, profileID int64) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.ContactProfileID = &profileID
			return nil
		}
	}
	return user.ErrUserNotFound
}

type fakeContactRepo struct {
	profiles map[int64]*contact.Profile
	nextID   int64
}

func (f *fakeContactRepo) GetByID(_ context.Context, id int64) (*contact.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, contact.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeContactRepo) Create(_ context.Context, p *contact.Profile) error {
	f.nextID++
	p.ID = f.nextID
	if f.profiles == nil {
		f.profiles = make(map[int64]*contact.Profile)
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeContactRepo) Update(_ context.Context, p *contact.Profile) error {
	f.profiles[p.ID] = p
	return nil
}

type fakeReplySender struct {
	chatIDs []string
	texts   []string
	err     error
}

func (f *fakeReplySender) SendText(_ context.Context, chatID, text string) (*telegram.Message, error) {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return &telegram.Message{MessageID: 1}, f.err
}

func newTestWebhook(t *testing.T) (*WebhookHandler, *fakeReplySender) {
	t.Helper()
	users := &fakeUserRepo{users: map[string]*user.User{
		"alice": {ID: 1, Username: "alice", CreatedAt: time.Now()},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	replies := &fakeReplySender{}
	svc := linking.NewService(users, &fakeContactRepo{}, logger)
	return NewWebhookHandler(svc, replies, logger), replies
}

func postUpdate(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/telegram", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_StartCommand(t *testing.T) {
	h, replies := newTestWebhook(t)

	rec := postUpdate(t, h, `{
		"update_id": 100,
		"message": {
			"message_id": 1,
			"chat": {"id": 555, "type": "private"},
			"from": {"id": 9000, "username": "alice_tg"},
			"text": "/start alice"
		}
	}`)

	assert.Equal(t, 200, rec.Code)
	require.Len(t, replies.texts, 1)
	assert.Equal(t, "555", replies.chatIDs[0])
	assert.Contains(t, replies.texts[0], "Successfully linked to account: alice")
}

func TestWebhookHandler_BareTextIsTreatedAsUsername(t *testing.T) {
	h, replies := newTestWebhook(t)

	rec := postUpdate(t, h, `{
		"update_id": 101,
		"message": {
			"message_id": 2,
			"chat": {"id": 555, "type": "private"},
			"text": "alice"
		}
	}`)

	assert.Equal(t, 200, rec.Code)
	require.Len(t, replies.texts, 1)
	assert.Contains(t, replies.texts[0], "Successfully linked to account: alice")
}

func TestWebhookHandler_EmptyTextIsSilent(t *testing.T) {
	h, replies := newTestWebhook(t)

	// A photo or sticker update carries a message with no text.
	rec := postUpdate(t, h, `{
		"update_id": 101,
		"message": {
			"message_id": 2,
			"chat": {"id": 555, "type": "private"}
		}
	}`)

	assert.Equal(t, 200, rec.Code)
	assert.Empty(t, replies.texts)
}

func TestWebhookHandler_MalformedBodyStill200(t *testing.T) {
	h, replies := newTestWebhook(t)

	rec := postUpdate(t, h, `{not json`)

	// Telegram retries non-2xx deliveries forever; a broken payload must
	// be swallowed.
	assert.Equal(t, 200, rec.Code)
	assert.Empty(t, replies.texts)
}

func TestWebhookHandler_ReplySendFailureIsNonFatal(t *testing.T) {
	h, replies := newTestWebhook(t)
	replies.err = assert.AnError

	rec := postUpdate(t, h, `{
		"update_id": 102,
		"message": {
			"message_id": 3,
			"chat": {"id": 555, "type": "private"},
			"text": "/start ghost"
		}
	}`)

	assert.Equal(t, 200, rec.Code)
	require.Len(t, replies.texts, 1)
	assert.Contains(t, replies.texts[0], "not found")
}
