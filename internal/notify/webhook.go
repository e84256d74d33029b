package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SlackChannel posts arrival alerts to a Slack-compatible incoming webhook.
type SlackChannel struct {
	url    string
	client *http.Client
}

// NewSlackChannel creates a Slack webhook channel.
func NewSlackChannel(url string) *SlackChannel {
	return &SlackChannel{url: url, client: http.DefaultClient}
}

func (s *SlackChannel) Name() string { return "slack" }

// Send posts the message text to the webhook.
func (s *SlackChannel) Send(ctx context.Context, msg Message) error {
	return postJSON(ctx, s.client, s.url, map[string]string{"text": msg.Text})
}

// DiscordChannel posts arrival alerts to a Discord webhook.
type DiscordChannel struct {
	url    string
	client *http.Client
}

// NewDiscordChannel creates a Discord webhook channel.
func NewDiscordChannel(url string) *DiscordChannel {
	return &DiscordChannel{url: url, client: http.DefaultClient}
}

func (d *DiscordChannel) Name() string { return "discord" }

// Send posts the message text to the webhook.
func (d *DiscordChannel) Send(ctx context.Context, msg Message) error {
	return postJSON(ctx, d.client, d.url, map[string]string{"content": msg.Text})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status: %d", resp.StatusCode)
	}
	return nil
}
