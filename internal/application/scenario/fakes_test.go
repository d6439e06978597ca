package scenario

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
	"github.com/purplepatch/notify-hub/internal/domain/leaderboard"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/quiz"
	"github.com/purplepatch/notify-hub/internal/domain/subscription"
	"github.com/purplepatch/notify-hub/internal/domain/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsers struct {
	users []*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]*user.User, error) {
	return f.users, nil
}

func (f *fakeUsers) SetContactProfile(_ context.Context, _, _ int64) error {
	return nil
}

type fakePackages struct {
	pkgs []*subscription.Package
}

func (f *fakePackages) GetByID(_ context.Context, id int64) (*subscription.Package, error) {
	for _, p := range f.pkgs {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, subscription.ErrPackageNotFound
}

func (f *fakePackages) List(_ context.Context) ([]*subscription.Package, error) {
	return f.pkgs, nil
}

type fakeLinks struct {
	links []*subscription.Link
}

func (f *fakeLinks) ListActiveAt(_ context.Context, t time.Time) ([]*subscription.Link, error) {
	var out []*subscription.Link
	for _, l := range f.links {
		if l.ActiveAt(t) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLinks) ListExpiringOn(_ context.Context, day time.Time) ([]*subscription.Link, error) {
	var out []*subscription.Link
	for _, l := range f.links {
		if l.ExpiresOn(day) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeQuizzes struct {
	plays []*quiz.PlayedQuiz
}

func (f *fakeQuizzes) ListBetween(_ context.Context, from, to time.Time) ([]*quiz.PlayedQuiz, error) {
	var out []*quiz.PlayedQuiz
	for _, p := range f.plays {
		if !p.PlayedAt.Before(from) && p.PlayedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeContacts struct {
	byID map[int64]*contact.Profile
}

func (f *fakeContacts) GetByID(_ context.Context, id int64) (*contact.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, contact.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeContacts) Create(_ context.Context, _ *contact.Profile) error { return nil }
func (f *fakeContacts) Update(_ context.Context, _ *contact.Profile) error { return nil }

type fakeLog struct {
	entries []*notification.LogEntry
	err     error
}

func (f *fakeLog) Append(_ context.Context, e *notification.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

// fakeChannel records sends and answers with a scripted result.
type fakeChannel struct {
	typ   notification.ChannelType
	fail  bool
	sends []fakeSend
}

type fakeSend struct {
	to, text, link string
	extra          map[string]string
}

func (f *fakeChannel) Type() notification.ChannelType { return f.typ }

func (f *fakeChannel) Send(_ context.Context, to, text, link string, extra map[string]string) bool {
	f.sends = append(f.sends, fakeSend{to: to, text: text, link: link, extra: extra})
	return !f.fail
}

// fakeRanks serves scripted snapshots keyed by URL.
type fakeRanks struct {
	snaps map[string]leaderboard.Snapshot
	calls int
}

var errSnapshotUnavailable = errors.New("snapshot unavailable")

func (f *fakeRanks) Snapshot(_ context.Context, pkgName, url string) (leaderboard.Snapshot, error) {
	f.calls++
	snap, ok := f.snaps[url]
	if !ok {
		return leaderboard.Snapshot{}, errSnapshotUnavailable
	}
	snap.PackageName = pkgName
	return snap, nil
}
