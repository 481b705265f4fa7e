// Package slack delivers job status notifications to a Slack incoming
// webhook.
package slack

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

const (
	colorSuccess = "#36a64f"
	colorFailure = "#d32f2f"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Client     *http.Client
}

// Client posts job status attachments to a Slack webhook.
type Client struct {
	webhookURL string
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client. Callers should pass a validated
// config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
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

// SendJobStatus posts a formatted attachment message to Slack.
func (c *Client) SendJobStatus(ctx context.Context, payload notify.JobStatusPayload) error {
	body, err := json.Marshal(formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func formatMessage(payload notify.JobStatusPayload) map[string]any {
	color := colorFailure
	if payload.Status.Succeeded() {
		color = colorSuccess
	}

	fields := []field{
		{Title: "Project", Value: orNA(payload.Project), Short: true},
		{Title: "Platform", Value: orNA(payload.Platform), Short: true},
		{Title: "Source", Value: orNA(payload.Source), Short: true},
		{Title: "Services", Value: orNA(strings.Join(payload.Services, ", ")), Short: true},
	}
	if duration := payload.Duration(); duration != "" {
		fields = append(fields, field{Title: "Distribution Time", Value: duration, Short: true})
	}
	fields = append(fields, field{Title: "Job ID", Value: orNA(payload.JobID)})
	if payload.CDNURL != "" {
		fields = append(fields, field{Title: "CDN URL", Value: payload.CDNURL})
	}
	if payload.SteamBuildID != "" {
		value := "Build ID: " + payload.SteamBuildID
		if payload.SteamBranch != "" {
			value += "\nBranch: " + payload.SteamBranch
		}
		fields = append(fields, field{Title: "Steam Upload", Value: value})
	}
	if payload.Error != "" {
		fields = append(fields, field{Title: "Error", Value: payload.Error})
	}

	return map[string]any{
		"attachments": []map[string]any{
			{
				"color":  color,
				"title":  title(payload),
				"fields": fields,
				"ts":     time.Now().UTC().Unix(),
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
