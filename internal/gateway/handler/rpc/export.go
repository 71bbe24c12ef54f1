package rpc

import (
	"context"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"rapidproto/internal/export"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/types"
)

func (h *PipelineHandler) export(ctx context.Context, req *connect.Request[WorkspaceRequest]) (*connect.Response[ExportResponse], error) {
	ws, err := h.registry.Get(req.Msg.WorkspaceID)
	if err != nil {
		return nil, toConnectError(err)
	}
	m, err := h.exporter.Export(ctx, ExportInput(ws.Runner.View()))
	if err != nil {
		h.logger.Warn("export failed", zap.String("workspace_id", ws.ID), zap.Error(err))
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExportResponse{WorkspaceID: ws.ID, Manifest: m}), nil
}

// ExportInput collects the deliverable of a session view: the newest
// artifact, its analyses and the refinement changes behind it.
func ExportInput(v pipeline.View) export.Input {
	in := export.Input{Report: v.Report, Analysis: v.Analysis, Changes: v.Changes}
	if a, ok := v.Deliverable(); ok {
		in.Artifact = &a
	}
	if idea, ok := v.State.Record(pipeline.PhaseInput).Data.(types.IdeaInput); ok {
		in.Language = idea.Language
	}
	switch {
	case v.Working != nil:
		in.Title = v.Working.ProjectInfo.Title
	case v.Draft != nil:
		in.Title = v.Draft.ProjectInfo.Title
	}
	if out, ok := v.State.Record(pipeline.PhaseRefinement).Data.(types.RefinementOutcome); ok {
		in.Title = out.Spec.ProjectInfo.Title
	}
	if v.Revision != nil {
		in.Changes = append(append([]string(nil), in.Changes...), v.Revision.Changes...)
	}
	return in
}
