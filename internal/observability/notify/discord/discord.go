// Package discord delivers job status notifications to a Discord webhook as
// a rich embed.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buildrelay/relay-worker/internal/observability/notify"
)

// Embed accent colors: green for success, red for failure.
const (
	colorSuccess = 0x33A64F
	colorFailure = 0xD32F2F
)

// Config captures the subset of Discord webhook behaviour we need.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Client     *http.Client
}

// Client posts job status embeds to a Discord webhook.
type Client struct {
	webhookURL string
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Discord webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("discord webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{webhookURL: webhookURL, client: hc}, nil
}

// SendJobStatus posts a formatted embed message to Discord.
func (c *Client) SendJobStatus(ctx context.Context, payload notify.JobStatusPayload) error {
	body, err := json.Marshal(formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func formatMessage(payload notify.JobStatusPayload) map[string]any {
	color := colorFailure
	if payload.Status.Succeeded() {
		color = colorSuccess
	}

	fields := []field{
		{Name: "Project", Value: orNA(payload.Project), Inline: true},
		{Name: "Platform", Value: orNA(payload.Platform), Inline: true},
		{Name: "Source", Value: orNA(payload.Source), Inline: true},
		{Name: "Services", Value: orNA(strings.Join(payload.Services, ", ")), Inline: true},
	}
	if duration := payload.Duration(); duration != "" {
		fields = append(fields, field{Name: "Distribution Time", Value: duration, Inline: true})
	}
	fields = append(fields, field{Name: "Job ID", Value: "`" + orNA(payload.JobID) + "`"})
	if payload.CDNURL != "" {
		fields = append(fields, field{Name: "CDN URL", Value: fmt.Sprintf("[Download](%s)", payload.CDNURL)})
	}
	if payload.SteamBuildID != "" {
		value := "Build ID: `" + payload.SteamBuildID + "`"
		if payload.SteamBranch != "" {
			value += "\nBranch: `" + payload.SteamBranch + "`"
		}
		fields = append(fields, field{Name: "Steam Upload", Value: value})
	}
	if payload.Error != "" {
		fields = append(fields, field{Name: "Error", Value: payload.Error})
	}

	timestamp := time.Now().UTC()
	if payload.CompletedAt != nil {
		timestamp = payload.CompletedAt.UTC()
	}

	title := title(payload)
	return map[string]any{
		"content": title,
		"embeds": []map[string]any{
			{
				"title":     title,
				"color":     color,
				"fields":    fields,
				"timestamp": timestamp.Format(time.RFC3339),
			},
		},
	}
}

func title(payload notify.JobStatusPayload) string {
	project := payload.Project
	if project == "" {
		project = "Unknown"
	}
	status := strings.ToUpper(string(payload.Status[:1])) + string(payload.Status[1:])
	return fmt.Sprintf("Build Distribution %s: %s", status, project)
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
