package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("real-access-token", "noreply@purplepatch.app")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "alice@example.com", "you won", "https://purplepatch.app", nil)

	assert.True(t, ok)
	assert.Equal(t, "/gmail/v1/users/me/messages/send", gotPath)
	assert.Equal(t, "Bearer real-access-token", gotAuth)

	decoded, err := base64.URLEncoding.DecodeString(gotBody["raw"])
	require.NoError(t, err)
	msg := string(decoded)
	assert.Contains(t, msg, "From: noreply@purplepatch.app")
	assert.Contains(t, msg, "To: alice@example.com")
	assert.Contains(t, msg, "Subject: PurplePatch update")
	assert.Contains(t, msg, "you won\n\nLink: https://purplepatch.app")
}

func TestClient_Send_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("real-access-token", "noreply@purplepatch.app")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "alice@example.com", "you won", "", nil)

	assert.False(t, ok)
}

func TestClient_Send_PlaceholderToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("", "noreply@purplepatch.app")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "alice@example.com", "you won", "", nil)

	assert.True(t, ok)
	assert.False(t, called)
}
