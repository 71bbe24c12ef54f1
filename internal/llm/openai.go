package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// OpenAIClient implements Client using the official openai-go SDK (chat completions).
type OpenAIClient struct {
	cli       openai.Client
	apiKey    string
	model     string
	maxTokens int
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
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
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		cli:       openai.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (o *OpenAIClient) Name() string { return "OpenAI:" + o.model }
func (o *OpenAIClient) Close() error { return nil }

func (o *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if !usableKey(strings.TrimSpace(o.apiKey)) {
		return "", ErrCredentialMissing
	}
	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	resp, err := o.cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai: empty choices", ErrModelUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
