package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("real-access-token", "10055501")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "8801711000000", "you won", "https://purplepatch.app", nil)

	assert.True(t, ok)
	assert.Equal(t, "/10055501/messages", gotPath)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "8801711000000", gotBody["to"])
	text := gotBody["text"].(map[string]interface{})
	assert.Equal(t, "you won\n\nLink: https://purplepatch.app", text["body"])
}

func TestClient_Send_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("real-access-token", "10055501")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "8801711000000", "you won", "", nil)

	assert.False(t, ok)
}

func TestClient_Send_PlaceholderToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("dummy", "10055501")
	cfg.BaseURL = srv.URL
	client := NewClient(cfg)

	ok := client.Send(context.Background(), "8801711000000", "you won", "", nil)

	assert.True(t, ok)
	assert.False(t, called)
}
