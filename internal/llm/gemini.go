package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	genai "google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
}

// GeminiClient is a thin wrapper around the official genai client. The
// underlying client is created lazily so that a missing key fails fast
// without touching the network.
type GeminiClient struct {
	cfg GeminiConfig

	mu  sync.Mutex
	cli *genai.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GeminiClient{cfg: cfg}
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.cfg.Model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) client(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cli != nil {
		return g.cli, nil
	}
	cc := &genai.ClientConfig{APIKey: g.cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if g.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	g.cli = cli
	return cli, nil
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if !usableKey(strings.TrimSpace(g.cfg.APIKey)) {
		return "", ErrCredentialMissing
	}
	cli, err := g.client(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrModelUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	conf := &genai.GenerateContentConfig{MaxOutputTokens: int32(g.cfg.MaxTokens)}
	if strings.TrimSpace(req.System) != "" {
		conf.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	resp, err := cli.Models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		conf,
	)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrModelUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini: empty candidates", ErrModelUnavailable)
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
