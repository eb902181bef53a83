// Package ai implements the platform's LLM-backed features: lead scoring,
// the master agent, campaign data analysis, and city recommendations.
// Prompts encode the business rubric; the model's free-text replies are
// parsed and validated against per-feature schemas before anything is
// returned to a caller.
package ai

import (
	"context"
	"fmt"

	"github.com/naybourhood/naybourhood-server/internal/config"
)

// Request is one completion call to a hosted model.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider abstracts the hosted model behind a single completion call.
// Implementations: AnthropicClient (direct Messages API) and
// BedrockProvider (AWS-managed).
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	ModelID() string
}

// NewProvider builds the configured provider.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic", "":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ai: anthropic provider requires an API key")
		}
		return NewAnthropicClient(cfg), nil
	case "bedrock":
		return NewBedrockProvider(cfg)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}
