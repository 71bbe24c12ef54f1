package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderFake      = "fake"
)

// Settings is the provider-neutral configuration for New.
type Settings struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// New builds the backend client named by s.Provider (anthropic when empty).
func New(s Settings) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey: s.APIKey, Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL, Timeout: s.Timeout,
		}), nil
	case ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey: s.APIKey, Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL, Timeout: s.Timeout,
		}), nil
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey: s.APIKey, Model: s.Model, MaxTokens: s.MaxTokens, BaseURL: s.BaseURL, Timeout: s.Timeout,
		}), nil
	case ProviderFake:
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", s.Provider)
	}
}
