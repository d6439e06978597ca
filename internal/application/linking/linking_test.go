package linking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/user"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	byUsername map[string]*user.User
	lookupErr  error
	attachErr  error
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range f.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.byUsername[username]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*user.User, error) {
	var out []*user.User
	for _, u := range f.byUsername {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) SetContactProfile(_ context.Context, userID, profileID int64) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	for _, u := range f.byUsername {
		if u.ID == userID {
			id := profileID
			u.ContactProfileID = &id
			return nil
		}
	}
	return user.ErrUserNotFound
}

type fakeContactRepo struct {
	byID      map[int64]*contact.Profile
	nextID    int64
	writes    int
	createErr error
	updateErr error
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{byID: make(map[int64]*contact.Profile), nextID: 1}
}

func (f *fakeContactRepo) GetByID(_ context.Context, id int64) (*contact.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, contact.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeContactRepo) Create(_ context.Context, p *contact.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.byID[p.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeContactRepo) Update(_ context.Context, p *contact.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *p
	f.byID[p.ID] = &cp
	f.writes++
	return nil
}

func newService(users *fakeUserRepo, contacts *fakeContactRepo) *Service {
	s := NewService(users, contacts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Username extraction
// ─────────────────────────────────────────────────────────────────────────────

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/start alice", "alice", true},
		{"/start   alice  ", "alice", true},
		{"/start alice extra words", "alice", true},
		{"alice", "alice", true},
		{"  alice  ", "alice", true},
		{"/start", "", false},
		{"/start   ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractUsername(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// State machine
// ─────────────────────────────────────────────────────────────────────────────

func TestProcess_FirstLinkThenDuplicate(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{
		"alice": {ID: 1, Username: "alice"},
	}}
	contacts := newFakeContactRepo()
	svc := newService(users, contacts)

	in := Inbound{ChatID: 500, SenderID: 42, SenderHandle: "alice_tg", Text: "/start alice"}

	first := svc.Process(context.Background(), in)
	assert.Equal(t, ResultLinked, first.Result)
	assert.Contains(t, first.Reply, "Successfully linked")
	assert.Equal(t, 1, contacts.writes)

	require.NotNil(t, users.byUsername["alice"].ContactProfileID)
	profile := contacts.byID[*users.byUsername["alice"].ContactProfileID]
	require.NotNil(t, profile.Telegram)
	assert.Equal(t, int64(500), profile.Telegram.ChatID)
	assert.Equal(t, int64(42), profile.Telegram.UserID)
	assert.Equal(t, "alice_tg", profile.Telegram.Handle)

	// Same update delivered again: acknowledged, but no second write.
	second := svc.Process(context.Background(), in)
	assert.Equal(t, ResultAlreadyLinked, second.Result)
	assert.Equal(t, 1, contacts.writes, "duplicate delivery must not write")
	assert.NotEqual(t, first.Reply, second.Reply, "replies must differ in wording")
	assert.NotEmpty(t, second.Reply)
}

func TestProcess_Relink(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{
		"alice": {ID: 1, Username: "alice"},
	}}
	contacts := newFakeContactRepo()
	svc := newService(users, contacts)

	first := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "/start alice"})
	require.Equal(t, ResultLinked, first.Result)

	second := svc.Process(context.Background(), Inbound{ChatID: 900, Text: "/start alice"})
	assert.Equal(t, ResultRelinked, second.Result)
	assert.NotEqual(t, first.Reply, second.Reply)

	profile := contacts.byID[*users.byUsername["alice"].ContactProfileID]
	assert.Equal(t, int64(900), profile.Telegram.ChatID)
}

func TestProcess_BareUsernameWorksLikeStart(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{
		"alice": {ID: 1, Username: "alice"},
	}}
	contacts := newFakeContactRepo()
	svc := newService(users, contacts)

	out := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "alice"})
	assert.Equal(t, ResultLinked, out.Result)
}

func TestProcess_UnknownUser(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{}}
	contacts := newFakeContactRepo()
	svc := newService(users, contacts)

	out := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "/start mallory"})
	assert.Equal(t, ResultUnknownUser, out.Result)
	assert.Contains(t, out.Reply, "not found")
	assert.Zero(t, contacts.writes, "unknown user is terminal, no state change")
}

func TestProcess_LookupFailureIsNotUnknownUser(t *testing.T) {
	users := &fakeUserRepo{
		byUsername: map[string]*user.User{
			"alice": {ID: 1, Username: "alice", CreatedAt: time.Now()},
		},
		lookupErr: errors.New("pg: connection refused"),
	}
	contacts := newFakeContactRepo()
	svc := newService(users, contacts)

	out := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "/start alice"})
	assert.Equal(t, ResultError, out.Result)
	assert.Empty(t, out.Reply, "a store failure must not tell the user to re-register")
	assert.Zero(t, contacts.writes)
}

func TestProcess_BadCommandAndIgnored(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{}}
	svc := newService(users, newFakeContactRepo())

	out := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "/start"})
	assert.Equal(t, ResultBadCommand, out.Result)
	assert.Contains(t, out.Reply, "Usage")

	out = svc.Process(context.Background(), Inbound{ChatID: 500, Text: "   "})
	assert.Equal(t, ResultIgnored, out.Result)
	assert.Empty(t, out.Reply)
}

func TestProcess_PersistenceErrorIsSwallowed(t *testing.T) {
	users := &fakeUserRepo{byUsername: map[string]*user.User{
		"alice": {ID: 1, Username: "alice"},
	}}
	contacts := newFakeContactRepo()
	contacts.createErr = errors.New("connection refused")
	svc := newService(users, contacts)

	out := svc.Process(context.Background(), Inbound{ChatID: 500, Text: "/start alice"})
	assert.Equal(t, ResultError, out.Result)
	assert.Empty(t, out.Reply, "no acknowledgement on persistence failure")
	assert.Nil(t, users.byUsername["alice"].ContactProfileID)
}
