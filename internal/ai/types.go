package ai

import (
	"context"
	"time"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderOracle     = "oracle"
)

// Inferer is the model runtime: it turns a prompt into a completion.
// Implementations own their transport and are released with Close.
type Inferer interface {
	Infer(ctx context.Context, prompt string) (string, error)
	Close() error
}

// InferFunc adapts a plain function to Inferer.
type InferFunc func(ctx context.Context, prompt string) (string, error)

func (f InferFunc) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f InferFunc) Close() error { return nil }

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}
