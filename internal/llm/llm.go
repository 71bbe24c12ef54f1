package llm

import (
	"context"
	"errors"
)

var (
	// ErrCredentialMissing is returned before any network call when no usable
	// API key is configured.
	ErrCredentialMissing = errors.New("llm: credential missing")
	// ErrModelUnavailable wraps transport failures, timeouts, non-2xx
	// responses and empty completions.
	ErrModelUnavailable = errors.New("llm: model unavailable")
)

// PlaceholderAPIKey is the value shipped in sample env files. It is treated
// the same as an empty key.
const PlaceholderAPIKey = "your-api-key-here"

// Request is one prompt sent to the backend. System is optional.
type Request struct {
	Prompt string
	System string
}

// Client sends a prompt to a generative backend and returns its raw text.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

func usableKey(key string) bool {
	return key != "" && key != PlaceholderAPIKey
}
