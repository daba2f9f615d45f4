// Package config loads ticket-extract settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/strrl/ticket-extract/internal/ai"
	"github.com/strrl/ticket-extract/internal/synth"
)

const (
	DefaultPath            = "ticket-extract.yaml"
	DefaultOpenRouterModel = "google/gemini-3-flash-preview"
)

type Config struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Concurrency    int     `yaml:"concurrency"`

	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`

	DataDir string `yaml:"data_dir"`
	Seed    uint64 `yaml:"seed"`
	Train   int    `yaml:"train"`
	Val     int    `yaml:"val"`
	Weights string `yaml:"weights"`
	Workers int    `yaml:"workers"`

	DBPath string `yaml:"db_path"`

	// Source is the file the config was read from, empty when none was found.
	Source string `yaml:"-"`
}

func Defaults() Config {
	return Config{
		Provider:       ai.ProviderOpenRouter,
		Temperature:    0.1,
		TopP:           0.9,
		MaxTokens:      256,
		TimeoutSeconds: 45,
		Concurrency:    1,
		DataDir:        "data",
		Seed:           42,
		Train:          5000,
		Val:            500,
		Weights:        synth.DefaultTableVersion,
		Workers:        4,
		DBPath:         "ticket-extract.duckdb",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path falls back to TICKET_EXTRACT_CONFIG
// and then to DefaultPath; only an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := true
	if path == "" {
		path = os.Getenv("TICKET_EXTRACT_CONFIG")
	}
	if path == "" {
		path = DefaultPath
		explicit = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Provider, "TICKET_EXTRACT_PROVIDER")
	envOverride(&cfg.Model, "TICKET_EXTRACT_MODEL")
	envOverride(&cfg.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	envOverride(&cfg.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	envOverride(&cfg.DataDir, "TICKET_EXTRACT_DATA_DIR")
	envOverride(&cfg.Weights, "TICKET_EXTRACT_WEIGHTS")
	envOverride(&cfg.DBPath, "TICKET_EXTRACT_DB_PATH")

	return errors.Join(
		envOverrideFloat(&cfg.Temperature, "TICKET_EXTRACT_TEMPERATURE"),
		envOverrideFloat(&cfg.TopP, "TICKET_EXTRACT_TOP_P"),
		envOverrideInt(&cfg.MaxTokens, "TICKET_EXTRACT_MAX_TOKENS"),
		envOverrideInt(&cfg.TimeoutSeconds, "TICKET_EXTRACT_TIMEOUT_SECONDS"),
		envOverrideInt(&cfg.Concurrency, "TICKET_EXTRACT_CONCURRENCY"),
		envOverrideInt(&cfg.Workers, "TICKET_EXTRACT_WORKERS"),
		envOverrideUint(&cfg.Seed, "TICKET_EXTRACT_SEED"),
	)
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ai.ProviderOpenRouter, ai.ProviderAnthropic, ai.ProviderGemini, ai.ProviderOracle:
	default:
		return fmt.Errorf("provider must be one of openrouter, anthropic, gemini, oracle, got '%s'", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("invalid temperature '%v': must be between 0 and 2", c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("invalid top_p '%v': must be in (0, 1]", c.TopP)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens '%d': must be >= 1", c.MaxTokens)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid timeout_seconds '%d': must be >= 1", c.TimeoutSeconds)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency '%d': must be >= 1", c.Concurrency)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers '%d': must be >= 1", c.Workers)
	}
	if c.Train < 0 || c.Val < 0 {
		return fmt.Errorf("invalid split sizes (train=%d, val=%d): must be >= 0", c.Train, c.Val)
	}
	if _, err := synth.Table(c.Weights); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	return nil
}

// Inference maps the config onto the settings of the selected backend.
func (c Config) Inference() ai.Config {
	cfg := ai.Config{
		Provider:    strings.ToLower(c.Provider),
		Model:       c.Model,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		MaxTokens:   c.MaxTokens,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
	}
	switch cfg.Provider {
	case ai.ProviderOpenRouter:
		cfg.APIKey = c.OpenRouterAPIKey
		cfg.BaseURL = c.OpenRouterBaseURL
		if cfg.Model == "" {
			cfg.Model = DefaultOpenRouterModel
		}
	case ai.ProviderAnthropic:
		cfg.APIKey = c.AnthropicAPIKey
	case ai.ProviderGemini:
		cfg.APIKey = c.GeminiAPIKey
	}
	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideUint(field *uint64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
