package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rapidproto/internal/generation"
	"rapidproto/internal/llm"
	"rapidproto/internal/refinement"
	"rapidproto/internal/types"
)

// ErrNotReady is returned when an operation needs data an earlier step has
// not produced yet, e.g. confirming expansion before expanding.
var ErrNotReady = errors.New("pipeline: step not ready")

// Runner drives one session through the five phases. Stage calls run
// outside the lock; the Controller's ticket keeps them exclusive, and their
// results are committed only if the session is still the one they ran for.
type Runner struct {
	ctrl    *Controller
	svc     *generation.Service
	table   *refinement.Table
	emitter Emitter
	hook    llm.PromptHook
	logger  *zap.Logger
	now     func() time.Time

	// mu guards the drafts below and is held across Controller.Reset, so a
	// commit never lands in a session it did not run for.
	mu        sync.Mutex
	draft     *types.ExpandedSpecification
	workspace *refinement.Workspace
	artifact  *types.GeneratedArtifact
	report    *types.QualityReport
	feedback  *generation.Feedback
	analysis  *types.FeedbackAnalysis
	revision  *types.FeedbackRevision
	notices   []generation.Notice
}

type RunnerOption func(*Runner)

func WithEmitter(e Emitter) RunnerOption {
	return func(r *Runner) {
		if e != nil {
			r.emitter = e
		}
	}
}

func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPromptHook attaches h to every backend call made by the runner.
func WithPromptHook(h llm.PromptHook) RunnerOption {
	return func(r *Runner) { r.hook = h }
}

func WithPatchTable(t *refinement.Table) RunnerOption {
	return func(r *Runner) { r.table = t }
}

func WithController(c *Controller) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.ctrl = c
		}
	}
}

func NewRunner(svc *generation.Service, opts ...RunnerOption) *Runner {
	r := &Runner{
		svc:     svc,
		emitter: noopEmitter{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ctrl == nil {
		r.ctrl = NewController(nil)
	}
	return r
}

func (r *Runner) Controller() *Controller { return r.ctrl }

func (r *Runner) emit(e Event) {
	if e.SessionID == "" {
		e.SessionID = r.ctrl.SessionID()
	}
	e.Time = r.now()
	r.emitter.Emit(e)
}

func (r *Runner) complete(p Phase, payload any) error {
	return r.completeWith(p, func() (any, error) { return payload, nil })
}

// completeWith reads the payload and completes p while holding r.mu.
// NewProject takes the same lock, so a draft is never committed into a
// session other than the one it was built in.
func (r *Runner) completeWith(p Phase, read func() (any, error)) error {
	r.mu.Lock()
	payload, err := read()
	if err == nil {
		err = r.ctrl.CompletePhase(p, payload)
	}
	id := r.ctrl.SessionID()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.logger.Info("phase completed", zap.String("session_id", id), zap.String("phase", p.String()))
	r.emit(Event{Type: EventPhaseCompleted, SessionID: id, Phase: p.String()})
	return nil
}

// snapshot returns the session state after checking the current phase.
func (r *Runner) snapshot(p Phase) (SessionState, error) {
	st := r.ctrl.State()
	if st.Finished || st.CurrentPhase != p {
		return st, fmt.Errorf("%w: operation belongs to %s, current phase is %s", ErrInvalidTransition, p, st.CurrentPhase)
	}
	return st, nil
}

// invoke runs one stage call for the session in st. commit runs under the
// runner lock and only when the session is unchanged; otherwise the result
// is dropped and ErrStaleResult returned.
func invoke[T any](ctx context.Context, r *Runner, st SessionState, stage generation.Stage,
	fn func(context.Context) generation.Result[T], commit func(generation.Result[T])) (generation.Result[T], error) {
	var zero generation.Result[T]
	t, err := r.ctrl.BeginIn(st.SessionID, stage)
	if err != nil {
		return zero, err
	}
	if in, ok := st.Record(PhaseInput).Data.(types.IdeaInput); ok {
		ctx = generation.WithLanguage(ctx, in.Language)
	}
	if r.hook != nil {
		ctx = llm.WithHook(ctx, r.hook)
	}
	r.emit(Event{Type: EventStageStarted, SessionID: t.SessionID, Stage: stage})
	res := fn(ctx)

	r.mu.Lock()
	err = r.ctrl.Finish(t)
	if err == nil {
		if res.Notice != nil {
			r.notices = append(r.notices, *res.Notice)
		}
		if commit != nil {
			commit(res)
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Info("dropping stale result", zap.String("session_id", t.SessionID), zap.String("stage", string(stage)))
		r.emit(Event{Type: EventStaleDropped, SessionID: t.SessionID, Stage: stage})
		return zero, err
	}
	r.emit(Event{Type: EventStageFinished, SessionID: t.SessionID, Stage: stage})
	if res.Notice != nil {
		r.logger.Warn("stage used fallback", zap.String("session_id", t.SessionID), zap.String("stage", string(stage)), zap.String("kind", string(res.Notice.Kind)))
		r.emit(Event{Type: EventFallback, SessionID: t.SessionID, Stage: stage, Notice: res.Notice})
	}
	return res, nil
}

// SubmitIdea completes the input phase.
func (r *Runner) SubmitIdea(in types.IdeaInput) error {
	in.Language = in.Language.Normalize()
	return r.complete(PhaseInput, in)
}

// Expand produces the draft specification. Calling it again re-runs the
// stage and replaces the draft.
func (r *Runner) Expand(ctx context.Context) (generation.Result[types.ExpandedSpecification], error) {
	st, err := r.snapshot(PhaseExpansion)
	if err != nil {
		return generation.Result[types.ExpandedSpecification]{}, err
	}
	in := st.Record(PhaseInput).Data.(types.IdeaInput)
	return invoke(ctx, r, st, generation.StageExpand,
		func(ctx context.Context) generation.Result[types.ExpandedSpecification] {
			return r.svc.Expand(ctx, in)
		},
		func(res generation.Result[types.ExpandedSpecification]) {
			spec := res.Value
			r.draft = &spec
		})
}

// EditSpec applies a manual edit to the draft specification.
func (r *Runner) EditSpec(e types.Edit) (types.ExpandedSpecification, error) {
	if _, err := r.snapshot(PhaseExpansion); err != nil {
		return types.ExpandedSpecification{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft == nil {
		return types.ExpandedSpecification{}, fmt.Errorf("%w: no draft specification", ErrNotReady)
	}
	next, err := types.ApplyEdit(*r.draft, e)
	if err != nil {
		return *r.draft, err
	}
	r.draft = &next
	return next, nil
}

func (r *Runner) ConfirmExpansion() error {
	return r.completeWith(PhaseExpansion, func() (any, error) {
		if r.draft == nil {
			return nil, fmt.Errorf("%w: no draft specification", ErrNotReady)
		}
		return *r.draft, nil
	})
}

// LoadQuestions generates the question set and opens a fresh workspace.
func (r *Runner) LoadQuestions(ctx context.Context) (generation.Result[[]types.RefinementQuestion], error) {
	st, err := r.snapshot(PhaseRefinement)
	if err != nil {
		return generation.Result[[]types.RefinementQuestion]{}, err
	}
	spec := st.Record(PhaseExpansion).Data.(types.ExpandedSpecification)
	return invoke(ctx, r, st, generation.StageQuestions,
		func(ctx context.Context) generation.Result[[]types.RefinementQuestion] {
			return r.svc.GenerateQuestions(ctx, spec)
		},
		func(res generation.Result[[]types.RefinementQuestion]) {
			r.workspace = refinement.NewWorkspace(spec, res.Value, r.table)
		})
}

func (r *Runner) withWorkspace(fn func(*refinement.Workspace) error) error {
	if _, err := r.snapshot(PhaseRefinement); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspace == nil {
		return fmt.Errorf("%w: questions not loaded", ErrNotReady)
	}
	return fn(r.workspace)
}

func (r *Runner) Answer(questionID, value string) error {
	return r.withWorkspace(func(w *refinement.Workspace) error { return w.Answer(questionID, value) })
}

func (r *Runner) Toggle(questionID, value string) error {
	return r.withWorkspace(func(w *refinement.Workspace) error { return w.Toggle(questionID, value) })
}

func (r *Runner) SetSelection(questionID string, values []string) error {
	return r.withWorkspace(func(w *refinement.Workspace) error { return w.SetSelection(questionID, values) })
}

func (r *Runner) Skip(questionID string) error {
	return r.withWorkspace(func(w *refinement.Workspace) error { return w.Skip(questionID) })
}

// ConfirmRefinement completes refinement with the workspace outcome. It is
// rejected while a required question is unanswered.
func (r *Runner) ConfirmRefinement() error {
	if _, err := r.snapshot(PhaseRefinement); err != nil {
		return err
	}
	return r.completeWith(PhaseRefinement, func() (any, error) {
		if r.workspace == nil {
			return nil, fmt.Errorf("%w: questions not loaded", ErrNotReady)
		}
		return r.workspace.Outcome(), nil
	})
}

// Generate builds the prototype and then analyzes it. Both values replace
// any earlier ones.
func (r *Runner) Generate(ctx context.Context) (types.GenerationOutcome, []generation.Notice, error) {
	st, err := r.snapshot(PhaseGeneration)
	if err != nil {
		return types.GenerationOutcome{}, nil, err
	}
	spec := st.Record(PhaseRefinement).Data.(types.RefinementOutcome).Spec
	proto, err := invoke(ctx, r, st, generation.StagePrototype,
		func(ctx context.Context) generation.Result[types.GeneratedArtifact] {
			return r.svc.GeneratePrototype(ctx, spec)
		},
		func(res generation.Result[types.GeneratedArtifact]) {
			a := res.Value
			r.artifact, r.report = &a, nil
		})
	if err != nil {
		return types.GenerationOutcome{}, nil, err
	}
	report, err := invoke(ctx, r, st, generation.StageAnalyze,
		func(ctx context.Context) generation.Result[types.QualityReport] {
			return r.svc.AnalyzePrototype(ctx, proto.Value, spec)
		},
		func(res generation.Result[types.QualityReport]) {
			rep := res.Value
			r.report = &rep
		})
	if err != nil {
		return types.GenerationOutcome{}, nil, err
	}
	rep := report.Value
	return types.GenerationOutcome{Artifact: proto.Value, Report: &rep}, collectNotices(proto.Notice, report.Notice), nil
}

func (r *Runner) ConfirmGeneration() error {
	return r.completeWith(PhaseGeneration, func() (any, error) {
		if r.artifact == nil {
			return nil, fmt.Errorf("%w: nothing generated", ErrNotReady)
		}
		return types.GenerationOutcome{Artifact: *r.artifact, Report: r.report}, nil
	})
}

// currentArtifact is the latest revision if feedback was applied, else the
// generated artifact. Callers hold r.mu.
func (r *Runner) currentArtifact() (types.GeneratedArtifact, bool) {
	if r.revision != nil {
		return r.revision.Artifact, true
	}
	if r.artifact != nil {
		return *r.artifact, true
	}
	return types.GeneratedArtifact{}, false
}

// SubmitFeedback records the user's feedback and analyzes it.
func (r *Runner) SubmitFeedback(ctx context.Context, fb generation.Feedback) (generation.Result[types.FeedbackAnalysis], error) {
	st, err := r.snapshot(PhaseFeedback)
	if err != nil {
		return generation.Result[types.FeedbackAnalysis]{}, err
	}
	r.mu.Lock()
	artifact, ok := r.currentArtifact()
	r.mu.Unlock()
	if !ok {
		return generation.Result[types.FeedbackAnalysis]{}, fmt.Errorf("%w: nothing generated", ErrNotReady)
	}
	return invoke(ctx, r, st, generation.StageFeedbackAnalysis,
		func(ctx context.Context) generation.Result[types.FeedbackAnalysis] {
			return r.svc.AnalyzeFeedback(ctx, artifact, fb)
		},
		func(res generation.Result[types.FeedbackAnalysis]) {
			analysis := res.Value
			r.feedback, r.analysis = &fb, &analysis
		})
}

// ApplyFeedback regenerates the artifact from the submitted feedback. The
// revision replaces the current artifact as a whole.
func (r *Runner) ApplyFeedback(ctx context.Context) (generation.Result[types.FeedbackRevision], error) {
	st, err := r.snapshot(PhaseFeedback)
	if err != nil {
		return generation.Result[types.FeedbackRevision]{}, err
	}
	r.mu.Lock()
	fb := r.feedback
	artifact, _ := r.currentArtifact()
	r.mu.Unlock()
	if fb == nil {
		return generation.Result[types.FeedbackRevision]{}, fmt.Errorf("%w: no feedback submitted", ErrNotReady)
	}
	return invoke(ctx, r, st, generation.StageRefine,
		func(ctx context.Context) generation.Result[types.FeedbackRevision] {
			return r.svc.RefineByFeedback(ctx, artifact, fb.Text)
		},
		func(res generation.Result[types.FeedbackRevision]) {
			rev := res.Value
			r.revision = &rev
		})
}

// Complete finishes the session. Afterwards only NewProject is accepted.
func (r *Runner) Complete() error {
	return r.completeWith(PhaseFeedback, func() (any, error) {
		out := types.FeedbackOutcome{Analysis: r.analysis, Revision: r.revision}
		if r.feedback != nil {
			out.Text, out.Rating = r.feedback.Text, r.feedback.Rating
		}
		return out, nil
	})
}

// NewProject resets the session and clears every draft.
func (r *Runner) NewProject() string {
	r.mu.Lock()
	r.draft, r.workspace = nil, nil
	r.artifact, r.report = nil, nil
	r.feedback, r.analysis, r.revision = nil, nil, nil
	r.notices = nil
	id := r.ctrl.Reset()
	r.mu.Unlock()
	r.logger.Info("session reset", zap.String("session_id", id))
	r.emit(Event{Type: EventReset, SessionID: id})
	return id
}

func collectNotices(ns ...*generation.Notice) []generation.Notice {
	var out []generation.Notice
	for _, n := range ns {
		if n != nil {
			out = append(out, *n)
		}
	}
	return out
}
