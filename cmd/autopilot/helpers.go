package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"autopilot/internal/artifact"
	"autopilot/internal/config"
	"autopilot/internal/deploy"
	"autopilot/internal/llm"
	"autopilot/internal/logging"
	"autopilot/internal/notify"
	"autopilot/internal/orchestrate"
	"autopilot/internal/stage"
)

// Completion adapters selectable with --adapter.
const (
	adapterOpenAI = "openai"
	adapterStub   = "stub"
)

// loadStats reads a statistics record from a YAML (or JSON) file. Missing
// cohort name and urgency fall back to the wedge defaults.
func loadStats(path string) (artifact.CohortStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return artifact.CohortStats{}, fmt.Errorf("read stats: %w", err)
	}
	var stats artifact.CohortStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return artifact.CohortStats{}, fmt.Errorf("parse stats %s: %w", path, err)
	}
	w, ok := artifact.LookupWedge(strings.TrimSpace(stats.WedgeKey))
	if !ok {
		return artifact.CohortStats{}, fmt.Errorf("stats %s: unknown wedge_key %q", path, stats.WedgeKey)
	}
	stats.WedgeKey = w.Key
	if stats.CohortName == "" {
		stats.CohortName = w.CohortName
	}
	if stats.UrgencyHint == "" {
		stats.UrgencyHint = w.UrgencyHint
	}
	return stats, nil
}

// parseModes splits a comma-separated --mode value. Duplicates collapse.
func parseModes(s string) ([]deploy.Mode, error) {
	var modes []deploy.Mode
	seen := make(map[deploy.Mode]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := deploy.ParseMode(part)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no mode given (want one or more of shadow, assisted, auto)")
	}
	return modes, nil
}

// newPipeline builds the pipeline for the chosen adapter. Sinks are wired
// by the caller.
func newPipeline(cfg config.Config, adapter string) (*orchestrate.Pipeline, error) {
	models := orchestrate.Models{Fast: cfg.LLM.ModelFast, Quality: cfg.LLM.ModelQuality}
	switch strings.ToLower(strings.TrimSpace(adapter)) {
	case adapterStub:
		return orchestrate.NewPipeline(stage.NewStubClient(), models), nil
	case adapterOpenAI, "":
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		client := llm.NewHTTPClient(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.ModelFast,
			Timeout: cfg.LLM.Timeout(),
		})
		return orchestrate.NewPipeline(client, models), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q (want %s or %s)", adapter, adapterOpenAI, adapterStub)
	}
}

// newNotifier returns nil when no webhook is configured.
func newNotifier(cfg config.Config) (orchestrate.Notifier, error) {
	if cfg.Notify.SlackWebhookURL == "" {
		return nil, nil
	}
	s, err := notify.NewSlack(cfg.Notify.SlackWebhookURL, notify.WithLogger(logging.New("notify")))
	if err != nil {
		return nil, fmt.Errorf("slack notifier: %w", err)
	}
	return s, nil
}
