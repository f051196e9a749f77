package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/docklog/internal/models"
)

// NtfyConfig holds ntfy push endpoint configuration.
type NtfyConfig struct {
	URL           string // full topic URL, e.g. https://ntfy.sh/mytopic
	AuthToken     string // optional bearer token
	TitlePrefix   string // prepended to the notification title
	AllowInsecure bool   // permit plain http:// endpoints
	AppName       string // reported in the JSON payload
	RunID         string // per-process instance ID
}

// Validate validates the ntfy configuration.
func (c *NtfyConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("ntfy URL is required")
	}
	if strings.HasPrefix(c.URL, "https://") {
		return nil
	}
	if strings.HasPrefix(c.URL, "http://") {
		if !c.AllowInsecure {
			return fmt.Errorf("ntfy URL must use HTTPS (set allow_insecure to override)")
		}
		return nil
	}
	return fmt.Errorf("ntfy URL must be an http(s) URL")
}

// NtfyNotifier sends notifications to an ntfy topic via HTTP POST.
type NtfyNotifier struct {
	config     NtfyConfig
	httpClient *http.Client
}

// NewNtfyNotifier creates a new ntfy notifier.
func NewNtfyNotifier(config NtfyConfig) (*NtfyNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ntfy config: %w", err)
	}

	return &NtfyNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Name returns "ntfy".
func (n *NtfyNotifier) Name() string {
	return "ntfy"
}

// ntfyPayload is the JSON body posted to the topic.
type ntfyPayload struct {
	App       string `json:"app"`
	RunID     string `json:"run_id,omitempty"`
	Source    string `json:"source"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Send posts one record to the ntfy topic.
func (n *NtfyNotifier) Send(ctx context.Context, rec models.Record) error {
	payload := ntfyPayload{
		App:       n.config.AppName,
		RunID:     n.config.RunID,
		Source:    rec.Source,
		Level:     string(rec.Severity),
		Message:   rec.Text,
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Title", n.title(rec))
	req.Header.Set("Tags", strings.ToLower(string(rec.Severity)))
	if n.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.config.AuthToken)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ntfy API error: status %d, body: %s", resp.StatusCode, string(b))
	}

	return nil
}

// title builds the notification title: prefix + severity + source.
func (n *NtfyNotifier) title(rec models.Record) string {
	return fmt.Sprintf("%s %s [%s]", n.config.TitlePrefix, rec.Severity, rec.Source)
}

// Close is a no-op for the ntfy notifier.
func (n *NtfyNotifier) Close() error {
	return nil
}
