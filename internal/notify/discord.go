package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	colorGreen  = 0x2ECC71 // republished
	colorYellow = 0xF1C40F // skipped by a safety check
	colorRed    = 0xE74C3C // hard failure, listing may be down
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendOutcome sends a relist outcome as a Discord embed.
func (d *DiscordNotifier) SendOutcome(ctx context.Context, ev Event) error {
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(ev)},
	}
	return d.post(ctx, payload)
}

func buildEmbed(ev Event) discordEmbed {
	title := ev.Title
	if title == "" {
		title = ev.SKU
	}
	if title == "" {
		title = ev.OldListingID
	}

	switch ev.Outcome {
	case OutcomeSuccess:
		return discordEmbed{
			Title: fmt.Sprintf("Relisted: %s", title),
			Color: colorGreen,
			Fields: []discordEmbedField{
				{Name: "Old listing", Value: ev.OldListingID, Inline: true},
				{Name: "New listing", Value: ev.NewListingID, Inline: true},
			},
		}
	case OutcomeSkipped:
		return discordEmbed{
			Title:       fmt.Sprintf("Relist skipped: %s", title),
			Color:       colorYellow,
			Description: ev.SkipReason,
		}
	default:
		return discordEmbed{
			Title:       fmt.Sprintf("Relist FAILED: %s", title),
			Color:       colorRed,
			Description: ev.Error,
			Fields: []discordEmbedField{
				{Name: "Phase", Value: ev.ErrorPhase, Inline: true},
				{Name: "Listing", Value: ev.OldListingID, Inline: true},
			},
		}
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
