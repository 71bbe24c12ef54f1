package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, timeouts, logging, hooks).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate with a token bucket.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, req)
}

// -------- Timeout --------

// WithTimeout bounds every call so a stage never blocks indefinitely.
// A deadline exceeded by the backend surfaces as ErrModelUnavailable from the
// provider clients. d <= 0 disables the bound.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timeoutClient{next: next, d: d}
	}
}

type timeoutClient struct {
	next Client
	d    time.Duration
}

func (t *timeoutClient) Name() string { return t.next.Name() }
func (t *timeoutClient) Close() error { return t.next.Close() }
func (t *timeoutClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Generate(ctx, req)
}

// -------- Logging & Hooks --------

// WithLogging logs request size, latency and errors. A nil logger disables it.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Generate(ctx context.Context, req Request) (string, error) {
	stage := StageFrom(ctx)
	start := time.Now()
	l.log.Debug("llm request",
		zap.String("client", l.next.Name()),
		zap.String("stage", stage),
		zap.Int("bytes", len(req.Prompt)+len(req.System)),
		zap.String("preview", Preview(req.Prompt, 120)),
	)
	text, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.Warn("llm error",
			zap.String("client", l.next.Name()),
			zap.String("stage", stage),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return text, err
	}
	l.log.Info("llm response",
		zap.String("client", l.next.Name()),
		zap.String("stage", stage),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(text)),
	)
	return text, nil
}

// WithHooks calls HookFrom(ctx).Before/After around Generate.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) Generate(ctx context.Context, req Request) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, StageFrom(ctx), req)
	}
	text, err := h.next.Generate(ctx, req)
	if hook != nil {
		hook.After(ctx, StageFrom(ctx), text, err)
	}
	return text, err
}
