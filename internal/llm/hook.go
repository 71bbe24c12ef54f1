package llm

import "context"

// PromptHook observes each backend call. Implementations must not block.
type PromptHook interface {
	Before(ctx context.Context, stage string, req Request)
	After(ctx context.Context, stage string, text string, err error)
}

type ctxKeyHook struct{}
type ctxKeyStage struct{}

// WithStage tags ctx with the pipeline stage a call belongs to.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage{}, stage)
}

// StageFrom returns the stage tag, or "" when none is set.
func StageFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyStage{}).(string); ok {
		return v
	}
	return ""
}

// WithHook attaches a PromptHook that the WithHooks middleware will call.
func WithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return v
	}
	return nil
}
