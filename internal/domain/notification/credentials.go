package notification

import "strings"

// placeholders are credential values used in example env files and local
// setups. A channel configured with one of these must not hit the real
// provider.
var placeholders = map[string]bool{
	"":            true,
	"dummy":       true,
	"changeme":    true,
	"test":        true,
	"xxx":         true,
	"your-key":    true,
	"api-key":     true,
	"secret":      true,
	"token":       true,
	"placeholder": true,
}

// IsPlaceholderCredential reports whether the credential is absent or one
// of the well-known placeholder values. Channels treat such configuration
// as a logged no-op that still reports success.
func IsPlaceholderCredential(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}
