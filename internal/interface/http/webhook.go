package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/purplepatch/notify-hub/internal/application/linking"
	"github.com/purplepatch/notify-hub/internal/infrastructure/external/telegram"
)

// ReplySender sends linking acknowledgements back to the chat.
type ReplySender interface {
	SendText(ctx context.Context, chatID string, text string) (*telegram.Message, error)
}

// WebhookHandler is the push ingress: Telegram posts one update per
// request. The response is always 200 so Telegram never re-delivers; all
// failures are handled internally.
type WebhookHandler struct {
	linking *linking.Service
	replies ReplySender
	logger  *slog.Logger
}

// NewWebhookHandler creates the Telegram webhook handler.
func NewWebhookHandler(linkSvc *linking.Service, replies ReplySender, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		linking: linkSvc,
		replies: replies,
		logger:  logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("webhook decode failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	h.handleUpdate(r.Context(), &update)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleUpdate runs one update through the linking core and sends the
// reply, if any. Shared with the poller via identical semantics.
func (h *WebhookHandler) handleUpdate(ctx context.Context, update *telegram.Update) {
	inbound, ok := toInbound(update)
	if !ok {
		return
	}

	outcome := h.linking.Process(ctx, inbound)
	if outcome.Reply == "" {
		return
	}

	chatID := strconv.FormatInt(inbound.ChatID, 10)
	if _, err := h.replies.SendText(ctx, chatID, outcome.Reply); err != nil {
		h.logger.Error("linking reply failed",
			"chat_id", inbound.ChatID,
			"result", outcome.Result,
			"error", err,
		)
	}
}

// toInbound maps a raw Telegram update to the linking core's input.
// Updates without a usable message are dropped.
func toInbound(update *telegram.Update) (linking.Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return linking.Inbound{}, false
	}

	inbound := linking.Inbound{
		UpdateID: update.UpdateID,
		ChatID:   msg.Chat.ID,
		Text:     msg.Text,
	}
	if msg.From != nil {
		inbound.SenderID = msg.From.ID
		inbound.SenderHandle = msg.From.Username
	}
	return inbound, true
}
