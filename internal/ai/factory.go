package ai

import (
	"context"
	"fmt"
	"strings"
)

// NewInferer builds the backend named by cfg.Provider. The oracle backend
// needs a corpus and is constructed with NewOracle instead.
func NewInferer(ctx context.Context, cfg Config) (Inferer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenRouter, "":
		return NewOpenRouterClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOracle:
		return nil, fmt.Errorf("provider %q needs a corpus, use NewOracle", cfg.Provider)
	default:
		return nil, fmt.Errorf("unknown provider %q (want openrouter, anthropic, gemini or oracle)", cfg.Provider)
	}
}
