// Package whatsapp implements the WhatsApp notification channel over the
// Meta Cloud API.
package whatsapp

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

// ClientConfig contains configuration for the WhatsApp client.
type ClientConfig struct {
	// AccessToken is the Cloud API bearer token.
	AccessToken string

	// PhoneNumberID is the sending business phone number ID.
	PhoneNumberID string

	// BaseURL is the Graph API base URL (default: https://graph.facebook.com/v19.0).
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token, phoneNumberID string) ClientConfig {
	return ClientConfig{
		AccessToken:   token,
		PhoneNumberID: phoneNumberID,
		BaseURL:       "https://graph.facebook.com/v19.0",
		Timeout:       15 * time.Second,
	}
}

// Client is the WhatsApp Cloud API client implementing notification.Channel.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new WhatsApp client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://graph.facebook.com/v19.0"
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
	return notification.ChannelWhatsApp
}

// Send implements notification.Channel. The recipient is a phone number in
// international format.
func (c *Client) Send(ctx context.Context, to, text, link string, _ map[string]string) bool {
	if notification.IsPlaceholderCredential(c.config.AccessToken) {
		c.logger.Info("whatsapp channel not configured, skipping send", "to", to)
		return true
	}

	body := text
	if link != "" {
		body = text + "\n\nLink: " + link
	}

	if err := c.sendMessage(ctx, to, body); err != nil {
		c.logger.Error("whatsapp send failed", "to", to, "error", err)
		return false
	}
	return true
}

// sendMessage posts one text message to the Cloud API.
func (c *Client) sendMessage(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.config.BaseURL, c.config.PhoneNumberID)
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
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
