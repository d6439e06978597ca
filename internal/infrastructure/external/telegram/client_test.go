package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("123:real-token")
	cfg.BaseURL = srv.URL
	return srv, NewClient(cfg)
}

func TestClient_SendText(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(APIResponse{
			OK:     true,
			Result: json.RawMessage(`{"message_id": 42, "chat": {"id": 555}}`),
		})
	})

	msg, err := client.SendText(context.Background(), "555", "hello")

	require.NoError(t, err)
	assert.Equal(t, "/bot123:real-token/sendMessage", gotPath)
	assert.Equal(t, "555", gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, int64(42), msg.MessageID)
}

func TestClient_APIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(APIResponse{
			OK:          false,
			ErrorCode:   403,
			Description: "Forbidden: bot was blocked by the user",
		})
	})

	_, err := client.SendText(context.Background(), "555", "hello")

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
}

func TestClient_GetUpdates(t *testing.T) {
	var gotBody map[string]interface{}

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(APIResponse{
			OK: true,
			Result: json.RawMessage(`[
				{"update_id": 10, "message": {"message_id": 1, "chat": {"id": 555, "type": "private"}, "text": "/start alice"}}
			]`),
		})
	})

	updates, err := client.GetUpdates(context.Background(), 10, 100, 30)

	require.NoError(t, err)
	assert.Equal(t, float64(10), gotBody["offset"])
	require.Len(t, updates, 1)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "/start alice", updates[0].Message.Text)
}

func TestClient_Send(t *testing.T) {
	t.Run("appends link to body", func(t *testing.T) {
		var gotBody map[string]interface{}
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(APIResponse{OK: true, Result: json.RawMessage(`{"message_id": 1}`)})
		})

		ok := client.Send(context.Background(), "555", "play today", "https://purplepatch.app", nil)

		assert.True(t, ok)
		assert.Equal(t, "play today\n\nLink: https://purplepatch.app", gotBody["text"])
	})

	t.Run("transport failure returns false", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(APIResponse{OK: false, ErrorCode: 400, Description: "Bad Request: chat not found"})
		})

		ok := client.Send(context.Background(), "555", "play today", "", nil)

		assert.False(t, ok)
	})

	t.Run("placeholder token is a no-op success", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		t.Cleanup(srv.Close)

		cfg := DefaultClientConfig("dummy")
		cfg.BaseURL = srv.URL
		client := NewClient(cfg)

		ok := client.Send(context.Background(), "555", "play today", "", nil)

		assert.True(t, ok)
		assert.False(t, called)
	})
}
