// Package user contains the user aggregate of the PurplePatch platform.
// Users are created by onboarding and the external sync pipeline; the
// notification engine only reads them, except for attaching a contact
// profile during account linking.
package user

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLATFORM
// ══════════════════════════════════════════════════════════════════════════════

// Platform identifies one of the partner quiz platforms a user can be
// registered on.
type Platform string

const (
	// PlatformQuizard is the primary quiz platform.
	PlatformQuizard Platform = "quizard"

	// PlatformBrainburst is the tournament platform.
	PlatformBrainburst Platform = "brainburst"

	// PlatformTriviapark is the casual trivia platform.
	PlatformTriviapark Platform = "triviapark"
)

// AllPlatforms lists every known platform.
func AllPlatforms() []Platform {
	return []Platform{PlatformQuizard, PlatformBrainburst, PlatformTriviapark}
}

// IsValid reports whether p is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformQuizard, PlatformBrainburst, PlatformTriviapark:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is a platform end user. Identity fields (username, email, phone) are
// immutable from the engine's point of view; the registration flags and the
// contact profile link are mutated elsewhere (and by account linking).
type User struct {
	ID          int64
	Username    string
	FullName    string
	Email       string
	PhoneNumber string

	// Registration flags, one per partner platform.
	OnQuizard    bool
	OnBrainburst bool
	OnTriviapark bool

	// ContactProfileID links to the user's contact profile, nil if the user
	// has never linked any channel.
	ContactProfileID *int64

	// CreatedAt is the join date, used by "days since joining" rules.
	CreatedAt time.Time
}

// RegisteredOn reports whether the user is registered on the given platform.
func (u *User) RegisteredOn(p Platform) bool {
	switch p {
	case PlatformQuizard:
		return u.OnQuizard
	case PlatformBrainburst:
		return u.OnBrainburst
	case PlatformTriviapark:
		return u.OnTriviapark
	default:
		return false
	}
}

// RegisteredAnywhere reports whether the user carries at least one
// platform registration flag.
func (u *User) RegisteredAnywhere() bool {
	return u.OnQuizard || u.OnBrainburst || u.OnTriviapark
}

// Platforms returns the platforms the user is registered on.
func (u *User) Platforms() []Platform {
	var out []Platform
	for _, p := range AllPlatforms() {
		if u.RegisteredOn(p) {
			out = append(out, p)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ErrUserNotFound is returned when a user lookup misses.
var ErrUserNotFound = errors.New("user not found")

// Repository is the read side of the user store, plus the single write the
// linking flow needs.
type Repository interface {
	// GetByID returns a user by internal ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername returns a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users.
	List(ctx context.Context) ([]*User, error)

	// SetContactProfile attaches a contact profile to a user.
	SetContactProfile(ctx context.Context, userID, profileID int64) error
}
