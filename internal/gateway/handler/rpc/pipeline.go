package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"rapidproto/internal/export"
	"rapidproto/internal/gateway/workspace"
	"rapidproto/internal/generation"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/types"
)

// ServicePath prefixes every procedure of the pipeline service.
const ServicePath = "/rapidproto.v1.PipelineService/"

type WorkspaceRequest struct {
	WorkspaceID string `json:"workspaceId"`
}

type SubmitIdeaRequest struct {
	WorkspaceID string          `json:"workspaceId"`
	Input       types.IdeaInput `json:"input"`
}

type EditSpecRequest struct {
	WorkspaceID string     `json:"workspaceId"`
	Edit        types.Edit `json:"edit"`
}

// AnswerRequest sets Value for single-choice questions and Values for
// multi-choice ones. Toggle flips Value in a multi-choice selection instead.
type AnswerRequest struct {
	WorkspaceID string   `json:"workspaceId"`
	QuestionID  string   `json:"questionId"`
	Value       string   `json:"value,omitempty"`
	Values      []string `json:"values,omitempty"`
	Toggle      bool     `json:"toggle,omitempty"`
}

type SkipRequest struct {
	WorkspaceID string `json:"workspaceId"`
	QuestionID  string `json:"questionId"`
}

type FeedbackRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Text        string `json:"text"`
	Rating      int    `json:"rating"`
}

// StateResponse is returned by every procedure except Export. Notices lists
// the fallbacks taken by the call that produced it.
type StateResponse struct {
	WorkspaceID string              `json:"workspaceId"`
	View        pipeline.View       `json:"view"`
	Notices     []generation.Notice `json:"notices,omitempty"`
}

type ExportResponse struct {
	WorkspaceID string          `json:"workspaceId"`
	Manifest    export.Manifest `json:"manifest"`
}

type PipelineHandler struct {
	registry *workspace.Registry
	exporter *export.Exporter
	logger   *zap.Logger
}

func NewPipelineHandler(registry *workspace.Registry, exporter *export.Exporter, logger *zap.Logger) *PipelineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineHandler{registry: registry, exporter: exporter, logger: logger}
}

// Register mounts every procedure on mux.
func (h *PipelineHandler) Register(mux *http.ServeMux) {
	unary(mux, "CreateWorkspace", h.createWorkspace)
	unary(mux, "GetState", withRunner(h, "GetState", func(context.Context, *pipeline.Runner, *WorkspaceRequest) ([]generation.Notice, error) {
		return nil, nil
	}))
	unary(mux, "SubmitIdea", withRunner(h, "SubmitIdea", func(_ context.Context, r *pipeline.Runner, req *SubmitIdeaRequest) ([]generation.Notice, error) {
		return nil, r.SubmitIdea(req.Input)
	}))
	unary(mux, "Expand", withRunner(h, "Expand", func(ctx context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		res, err := r.Expand(ctx)
		return notices(res.Notice), err
	}))
	unary(mux, "EditSpec", withRunner(h, "EditSpec", func(_ context.Context, r *pipeline.Runner, req *EditSpecRequest) ([]generation.Notice, error) {
		_, err := r.EditSpec(req.Edit)
		return nil, err
	}))
	unary(mux, "ConfirmExpansion", withRunner(h, "ConfirmExpansion", func(_ context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		return nil, r.ConfirmExpansion()
	}))
	unary(mux, "LoadQuestions", withRunner(h, "LoadQuestions", func(ctx context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		res, err := r.LoadQuestions(ctx)
		return notices(res.Notice), err
	}))
	unary(mux, "Answer", withRunner(h, "Answer", func(_ context.Context, r *pipeline.Runner, req *AnswerRequest) ([]generation.Notice, error) {
		switch {
		case req.Toggle:
			return nil, r.Toggle(req.QuestionID, req.Value)
		case req.Values != nil:
			return nil, r.SetSelection(req.QuestionID, req.Values)
		default:
			return nil, r.Answer(req.QuestionID, req.Value)
		}
	}))
	unary(mux, "Skip", withRunner(h, "Skip", func(_ context.Context, r *pipeline.Runner, req *SkipRequest) ([]generation.Notice, error) {
		return nil, r.Skip(req.QuestionID)
	}))
	unary(mux, "ConfirmRefinement", withRunner(h, "ConfirmRefinement", func(_ context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		return nil, r.ConfirmRefinement()
	}))
	unary(mux, "Generate", withRunner(h, "Generate", func(ctx context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		_, ns, err := r.Generate(ctx)
		return ns, err
	}))
	unary(mux, "ConfirmGeneration", withRunner(h, "ConfirmGeneration", func(_ context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		return nil, r.ConfirmGeneration()
	}))
	unary(mux, "SubmitFeedback", withRunner(h, "SubmitFeedback", func(ctx context.Context, r *pipeline.Runner, req *FeedbackRequest) ([]generation.Notice, error) {
		res, err := r.SubmitFeedback(ctx, generation.Feedback{Text: req.Text, Rating: req.Rating})
		return notices(res.Notice), err
	}))
	unary(mux, "ApplyFeedback", withRunner(h, "ApplyFeedback", func(ctx context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		res, err := r.ApplyFeedback(ctx)
		return notices(res.Notice), err
	}))
	unary(mux, "Complete", withRunner(h, "Complete", func(_ context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		return nil, r.Complete()
	}))
	unary(mux, "NewProject", withRunner(h, "NewProject", func(_ context.Context, r *pipeline.Runner, _ *WorkspaceRequest) ([]generation.Notice, error) {
		r.NewProject()
		return nil, nil
	}))
	unary(mux, "Export", h.export)
}

func unary[Req, Res any](mux *http.ServeMux, name string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	procedure := ServicePath + name
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, connect.WithCodec(jsonCodec{})))
}

// workspaceID is implemented by every request that addresses a workspace.
type workspaceID interface{ target() string }

func (r *WorkspaceRequest) target() string  { return r.WorkspaceID }
func (r *SubmitIdeaRequest) target() string { return r.WorkspaceID }
func (r *EditSpecRequest) target() string   { return r.WorkspaceID }
func (r *AnswerRequest) target() string     { return r.WorkspaceID }
func (r *SkipRequest) target() string       { return r.WorkspaceID }
func (r *FeedbackRequest) target() string   { return r.WorkspaceID }

// withRunner resolves the workspace, runs op and answers with the view
// taken after it.
func withRunner[Req any, PReq interface {
	*Req
	workspaceID
}](h *PipelineHandler, name string, op func(context.Context, *pipeline.Runner, PReq) ([]generation.Notice, error)) func(context.Context, *connect.Request[Req]) (*connect.Response[StateResponse], error) {
	return func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[StateResponse], error) {
		if req.Msg == nil {
			req.Msg = new(Req)
		}
		msg := PReq(req.Msg)
		ws, err := h.registry.Get(msg.target())
		if err != nil {
			return nil, toConnectError(err)
		}
		ns, err := op(ctx, ws.Runner, msg)
		if err != nil {
			h.logger.Debug("procedure rejected",
				zap.String("procedure", name),
				zap.String("workspace_id", ws.ID),
				zap.Error(err))
			return nil, toConnectError(err)
		}
		return connect.NewResponse(&StateResponse{WorkspaceID: ws.ID, View: ws.Runner.View(), Notices: ns}), nil
	}
}

func (h *PipelineHandler) createWorkspace(_ context.Context, _ *connect.Request[WorkspaceRequest]) (*connect.Response[StateResponse], error) {
	ws := h.registry.Create()
	h.logger.Info("workspace created", zap.String("workspace_id", ws.ID), zap.String("session_id", ws.Runner.Controller().SessionID()))
	return connect.NewResponse(&StateResponse{WorkspaceID: ws.ID, View: ws.Runner.View()}), nil
}

func notices(n *generation.Notice) []generation.Notice {
	if n == nil {
		return nil
	}
	return []generation.Notice{*n}
}
