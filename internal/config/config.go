// Package config loads the autopilot configuration: defaults, then an
// optional YAML file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"autopilot/internal/logging"
	"autopilot/internal/store"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvAPIKey       = "OPENAI_API_KEY"
	EnvSlackWebhook = "SLACK_WEBHOOK_URL"
)

type Config struct {
	LLM     LLM     `yaml:"llm"`
	Exports Exports `yaml:"exports"`
	Notify  Notify  `yaml:"notify"`
	Log     Log     `yaml:"log"`
}

type LLM struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	ModelFast      string `yaml:"model_fast"`
	ModelQuality   string `yaml:"model_quality"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout is TimeoutSeconds as a duration.
func (l LLM) Timeout() time.Duration { return time.Duration(l.TimeoutSeconds) * time.Second }

type Exports struct {
	Dir string `yaml:"dir"`
	DB  string `yaml:"db"`
}

type Notify struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLM{
			BaseURL:        "https://api.openai.com/v1",
			ModelFast:      "gpt-4o-mini",
			ModelQuality:   "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Exports: Exports{
			Dir: "exports",
			DB:  store.DefaultDBPath,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path means defaults plus
// environment only.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		cfg.LLM.APIKey = v
	}
	if v, ok := lookup(EnvSlackWebhook); ok && v != "" {
		cfg.Notify.SlackWebhookURL = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with. The API key is not
// checked here; only the openai adapter needs it.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if c.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds))
	}
	if strings.TrimSpace(c.LLM.ModelFast) == "" || strings.TrimSpace(c.LLM.ModelQuality) == "" {
		errs = append(errs, errors.New("llm.model_fast and llm.model_quality are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireAPIKey fails when no completion key is configured.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("no API key: set llm.api_key or %s", EnvAPIKey)
	}
	return nil
}
