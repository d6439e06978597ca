// Package discord implements the Discord notification channel over the
// Discord REST API. Discord cannot message a user directly; when only a
// user ID is known the client first opens a DM channel, then posts the
// message into it.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/notification"
)

// ClientConfig contains configuration for the Discord client.
type ClientConfig struct {
	// BotToken is the Discord bot token, sent as "Bot <token>".
	BotToken string

	// BaseURL is the Discord API base URL (default: https://discord.com/api/v10).
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		BotToken: token,
		BaseURL:  "https://discord.com/api/v10",
		Timeout:  15 * time.Second,
	}
}

// Client is the Discord REST client implementing notification.Channel.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Discord client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://discord.com/api/v10"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// Type returns the channel type.
func (c *Client) Type() notification.ChannelType {
	return notification.ChannelDiscord
}

// Send implements notification.Channel. The recipient is a DM channel ID,
// unless extra asks for a DM channel to be opened first from a raw user
// ID. The open is attempted at most once; a failed open fails the send.
func (c *Client) Send(ctx context.Context, to, text, link string, extra map[string]string) bool {
	if notification.IsPlaceholderCredential(c.config.BotToken) {
		c.logger.Info("discord channel not configured, skipping send", "to", to)
		return true
	}

	channelID := to
	if extra[notification.ExtraDiscordCreateDM] == "true" {
		opened, err := c.openDM(ctx, extra[notification.ExtraDiscordUserID])
		if err != nil {
			c.logger.Error("discord dm open failed",
				"user_id", extra[notification.ExtraDiscordUserID],
				"error", err,
			)
			return false
		}
		channelID = opened
	}

	body := text
	if link != "" {
		body = text + "\n\nLink: " + link
	}

	if err := c.postMessage(ctx, channelID, body); err != nil {
		c.logger.Error("discord send failed", "channel_id", channelID, "error", err)
		return false
	}
	return true
}

// openDM opens (or fetches) the DM channel with a user and returns its ID.
func (c *Client) openDM(ctx context.Context, userID string) (string, error) {
	payload := map[string]string{"recipient_id": userID}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/users/@me/channels", payload, &result); err != nil {
		return "", fmt.Errorf("open dm channel: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("open dm channel: empty channel id in response")
	}
	return result.ID, nil
}

// postMessage posts a message into a channel.
func (c *Client) postMessage(ctx context.Context, channelID, content string) error {
	payload := map[string]string{"content": content}
	path := fmt.Sprintf("/channels/%s/messages", channelID)

	if err := c.post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// post performs one authenticated POST against the Discord API.
func (c *Client) post(ctx context.Context, path string, payload interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.config.BotToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord api status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
