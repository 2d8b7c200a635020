package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookParams contains all parameters needed to initialize a Webhook
type WebhookParams struct {
	URL     string
	ChatID  string
	Timeout time.Duration
}

// Webhook posts alerts as form-encoded chat_id and text fields, the
// shape of the Telegram Bot API sendMessage method
type Webhook struct {
	url    string
	chatID string
	client *http.Client
	log    logger.Logger
}

// NewWebhook creates a Webhook. It fails when the URL or the chat id is missing.
func NewWebhook(log logger.Logger, params WebhookParams) (*Webhook, error) {
	if params.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if _, err := url.ParseRequestURI(params.URL); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if params.ChatID == "" {
		return nil, fmt.Errorf("webhook chat id is required")
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &Webhook{
		url:    params.URL,
		chatID: params.ChatID,
		client: &http.Client{Timeout: timeout},
		log:    log.WithField("sink", "webhook"),
	}, nil
}

// Send posts text once and reports the outcome
func (w *Webhook) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", w.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotificationDelivery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotificationDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", core.ErrNotificationDelivery, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// Notify sends text and logs any failure
func (w *Webhook) Notify(text string) {
	if err := w.Send(context.Background(), text); err != nil {
		w.log.WithError(err).Error("failed to send notification")
	}
}

// OnError sends an error notification
func (w *Webhook) OnError(err error) {
	w.Notify(formatError(err))
}
