package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-opus-20240229"
	DefaultMaxTokens      = 4096
	DefaultTimeout        = 120 * time.Second
)

// AnthropicConfig configures the Messages API client. APIKey has no default.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// AnthropicClient calls POST /v1/messages with a single user message and an
// optional system instruction, returning the first text block.
type AnthropicClient struct {
	cli       anthropic.Client
	apiKey    string
	model     string
	maxTokens int
}

func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// A retry is a distinct, user-triggered re-invocation.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		cli:       anthropic.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (a *AnthropicClient) Name() string { return "Anthropic:" + a.model }
func (a *AnthropicClient) Close() error { return nil }

func (a *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	if !usableKey(strings.TrimSpace(a.apiKey)) {
		return "", ErrCredentialMissing
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.cli.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: anthropic status %d: %v", ErrModelUnavailable, apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%w: anthropic: %v", ErrModelUnavailable, err)
	}
	if len(msg.Content) == 0 {
		return "", fmt.Errorf("%w: anthropic: empty content", ErrModelUnavailable)
	}
	if tb, ok := msg.Content[0].AsAny().(anthropic.TextBlock); ok {
		return tb.Text, nil
	}
	return "", fmt.Errorf("%w: anthropic: first content block is %q, not text", ErrModelUnavailable, msg.Content[0].Type)
}
