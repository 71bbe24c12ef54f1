// Package generation turns each pipeline stage input into a model prompt,
// invokes the backend and parses the reply. Every failure is replaced by the
// stage's deterministic fallback so callers always receive a usable value.
package generation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

type Stage string

const (
	StageExpand           Stage = "expand"
	StageQuestions        Stage = "questions"
	StagePrototype        Stage = "prototype"
	StageAnalyze          Stage = "analyze"
	StageFeedbackAnalysis Stage = "feedback_analysis"
	StageRefine           Stage = "refine"
)

// NoticeKind classifies why a fallback was used.
type NoticeKind string

const (
	KindCredentialMissing   NoticeKind = "credential_missing"
	KindModelUnavailable    NoticeKind = "model_unavailable"
	KindResponseUnparseable NoticeKind = "response_unparseable"
	KindSchemaMismatch      NoticeKind = "schema_mismatch"
)

// Notice is the user-facing payload emitted alongside a fallback value.
type Notice struct {
	Stage     Stage      `json:"stage"`
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable"`
}

// Result carries a stage value. Fallback is true when Value came from the
// local substitute instead of the model; Notice is then non-nil.
type Result[T any] struct {
	Value    T       `json:"value"`
	Fallback bool    `json:"fallback"`
	Notice   *Notice `json:"notice,omitempty"`
}

// Reporter records generation failures. Reporting never affects the result.
type Reporter interface {
	Report(ctx context.Context, n Notice, err error)
}

type ReporterFunc func(ctx context.Context, n Notice, err error)

func (f ReporterFunc) Report(ctx context.Context, n Notice, err error) { f(ctx, n, err) }

type zapReporter struct{ logger *zap.Logger }

func (r zapReporter) Report(_ context.Context, n Notice, err error) {
	r.logger.Warn("generation fallback",
		zap.String("stage", string(n.Stage)),
		zap.String("kind", string(n.Kind)),
		zap.Error(err),
	)
}

// Service exposes one operation per stage. It holds no per-session state;
// retrying is calling the same operation again.
type Service struct {
	client   llm.Client
	logger   *zap.Logger
	reporter Reporter
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReporter replaces the default zap reporter.
func WithReporter(r Reporter) Option {
	return func(s *Service) { s.reporter = r }
}

func New(client llm.Client, opts ...Option) *Service {
	s := &Service{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = zapReporter{logger: s.logger}
	}
	return s
}

type ctxKeyLanguage struct{}

// WithLanguage sets the language used for prompts, fallbacks and notices.
func WithLanguage(ctx context.Context, lang types.Language) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage{}, lang.Normalize())
}

// LanguageFrom returns the language set by WithLanguage, defaulting to ja.
func LanguageFrom(ctx context.Context) types.Language {
	if v, ok := ctx.Value(ctxKeyLanguage{}).(types.Language); ok {
		return v
	}
	return types.LanguageJA
}

// call is one stage invocation: R is the wire shape, T the value handed out.
type call[R, T any] struct {
	stage    Stage
	lang     types.Language
	req      llm.Request
	buildErr error
	schema   llmtool.Schema
	convert  func(R) (T, error)
	fallback func() T
}

func run[R, T any](ctx context.Context, s *Service, c call[R, T]) Result[T] {
	fail := func(err error) Result[T] {
		n := noticeFor(c.stage, c.lang, err)
		s.reporter.Report(ctx, n, err)
		return Result[T]{Value: c.fallback(), Fallback: true, Notice: &n}
	}
	if c.buildErr != nil {
		return fail(c.buildErr)
	}
	if s.client == nil {
		return fail(llm.ErrCredentialMissing)
	}
	text, err := s.client.Generate(llm.WithStage(ctx, string(c.stage)), c.req)
	if err != nil {
		return fail(err)
	}
	raw, err := llmtool.Decode[R](text, c.schema)
	if err != nil {
		return fail(err)
	}
	v, err := c.convert(raw)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", llmtool.ErrSchemaMismatch, err))
	}
	return Result[T]{Value: v}
}

func classify(err error) NoticeKind {
	switch {
	case errors.Is(err, llm.ErrCredentialMissing):
		return KindCredentialMissing
	case errors.Is(err, llmtool.ErrResponseUnparseable):
		return KindResponseUnparseable
	case errors.Is(err, llmtool.ErrSchemaMismatch):
		return KindSchemaMismatch
	default:
		return KindModelUnavailable
	}
}

var noticeMessages = map[types.Language]map[NoticeKind]string{
	types.LanguageJA: {
		KindCredentialMissing:   "APIキーが設定されていないため、基本的な結果を表示しています。",
		KindModelUnavailable:    "AIサービスに接続できなかったため、基本的な結果を表示しています。再試行できます。",
		KindResponseUnparseable: "AIの応答を解析できなかったため、基本的な結果を表示しています。再試行できます。",
		KindSchemaMismatch:      "AIの応答が想定した形式ではなかったため、基本的な結果を表示しています。再試行できます。",
	},
	types.LanguageEN: {
		KindCredentialMissing:   "No API key is configured, so a basic result is shown.",
		KindModelUnavailable:    "The AI service could not be reached, so a basic result is shown. You can retry.",
		KindResponseUnparseable: "The AI response could not be parsed, so a basic result is shown. You can retry.",
		KindSchemaMismatch:      "The AI response had an unexpected shape, so a basic result is shown. You can retry.",
	},
}

func noticeFor(stage Stage, lang types.Language, err error) Notice {
	kind := classify(err)
	return Notice{
		Stage:     stage,
		Kind:      kind,
		Message:   noticeMessages[lang.Normalize()][kind],
		Retryable: kind != KindCredentialMissing,
	}
}

// promptRequest renders spec with the shared presets for lang.
func promptRequest(spec llmtool.StructuredPromptSpec, system string, lang types.Language) (llm.Request, error) {
	spec = llmtool.ApplyPresets(spec, llmtool.PresetFencedJSON(lang))
	spec.Language = llmtool.LanguageName(lang)
	prompt, err := spec.Render()
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{Prompt: prompt, System: system}, nil
}

func pick(lang types.Language, ja, en string) string {
	if lang.Normalize() == types.LanguageEN {
		return en
	}
	return ja
}

func picks(lang types.Language, ja, en []string) []string {
	if lang.Normalize() == types.LanguageEN {
		return en
	}
	return ja
}
