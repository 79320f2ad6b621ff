// Package notify posts job summaries to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"autopilot/internal/logging"
)

// DefaultTimeout bounds a single webhook post.
const DefaultTimeout = 5 * time.Second

// Slack posts plain-text messages to one webhook.
type Slack struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures Slack during construction.
type Option func(*slackConfig) error

type slackConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// NewSlack creates a notifier for webhookURL.
func NewSlack(webhookURL string, opts ...Option) (*Slack, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil, fmt.Errorf("notify: webhook URL is required")
	}

	cfg := &slackConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// The caller's client is never modified.
	httpClient := &http.Client{}
	if cfg.httpClient != nil {
		c := *cfg.httpClient
		httpClient = &c
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.New("notify")
	}

	return &Slack{webhookURL: webhookURL, httpClient: httpClient, logger: logger}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *slackConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *slackConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *slackConfig) error {
		if d <= 0 {
			return fmt.Errorf("notify: timeout must be positive, got %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// Notify posts {"text": text}. Any non-2xx status is an error.
func (s *Slack) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	s.logger.DebugContext(ctx, "webhook posted", "status", resp.StatusCode)
	return nil
}
