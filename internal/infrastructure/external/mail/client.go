// Package mail implements the mail notification channel over the Gmail
// REST API. The message is built as an RFC 2822 string, base64url-encoded
// and posted to the messages.send endpoint with a bearer token.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/purplepatch/notify-hub/internal/domain/notification"
)

// ClientConfig contains configuration for the mail client.
type ClientConfig struct {
	// AccessToken is the Gmail API OAuth bearer token.
	AccessToken string

	// From is the sender address shown in the From header.
	From string

	// Subject is the subject line applied to engine notifications.
	Subject string

	// BaseURL is the Gmail API base URL (default: https://gmail.googleapis.com).
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token, from string) ClientConfig {
	return ClientConfig{
		AccessToken: token,
		From:        from,
		Subject:     "PurplePatch update",
		BaseURL:     "https://gmail.googleapis.com",
		Timeout:     15 * time.Second,
	}
}

// Client is the Gmail REST client implementing notification.Channel.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new mail client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://gmail.googleapis.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Subject == "" {
		config.Subject = "PurplePatch update"
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
	return notification.ChannelMail
}

// Send implements notification.Channel. The recipient is an email address.
func (c *Client) Send(ctx context.Context, to, text, link string, _ map[string]string) bool {
	if notification.IsPlaceholderCredential(c.config.AccessToken) {
		c.logger.Info("mail channel not configured, skipping send", "to", to)
		return true
	}

	body := text
	if link != "" {
		body = text + "\n\nLink: " + link
	}

	if err := c.sendMessage(ctx, to, body); err != nil {
		c.logger.Error("mail send failed", "to", to, "error", err)
		return false
	}
	return true
}

// sendMessage posts one raw message to the Gmail API.
func (c *Client) sendMessage(ctx context.Context, to, body string) error {
	raw := buildRaw(c.config.From, to, c.config.Subject, body)

	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	url := c.config.BaseURL + "/gmail/v1/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gmail api status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// buildRaw assembles the RFC 2822 message and base64url-encodes it the way
// the Gmail API expects.
func buildRaw(from, to, subject, body string) string {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s", from, to, subject, body)
	return base64.URLEncoding.EncodeToString([]byte(msg))
}
