// Package llm wraps the text-generation services used to write scripts and
// episode metadata. Every provider takes a system and a user instruction and
// returns plain text.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one text-generation call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	TopP        float64 // zero leaves the provider default
}

// Client sends a Request to a text-generation service.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ProviderNames lists the supported providers.
func ProviderNames() []string {
	return []string{"openai", "claude", "gemini", "nova"}
}

// DefaultModel returns the model used when Config.Model is empty.
func DefaultModel(provider string) string {
	switch provider {
	case "claude":
		return claudeModels["haiku"]
	case "gemini":
		return geminiModels["gemini-flash"]
	case "nova":
		return novaModels["nova-lite"]
	default:
		return defaultOpenAIModel
	}
}

// APIKeyEnv names the environment variable holding the provider's key, or ""
// for providers that authenticate through the AWS credential chain.
func APIKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// New creates a client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "gemini":
		return NewGeminiClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "nova":
		return NewNovaClient(ctx, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: choose %s", cfg.Provider, strings.Join(ProviderNames(), ", "))
	}
}
