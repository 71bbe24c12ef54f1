package rpc

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"rapidproto/internal/export"
	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/gateway/workspace"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/refinement"
	"rapidproto/internal/types"
)

func toConnectError(err error) error {
	switch {
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, pipeline.ErrInvalidTransition),
		errors.Is(err, pipeline.ErrNotReady),
		errors.Is(err, refinement.ErrSkipRequired),
		errors.Is(err, export.ErrNoArtifact):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, pipeline.ErrStageBusy), errors.Is(err, pipeline.ErrStaleResult):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, refinement.ErrUnknownQuestion),
		errors.Is(err, refinement.ErrUnknownOption),
		errors.Is(err, refinement.ErrWrongType),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrPageIndex):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("pipeline service failed: %w", err))
	}
}
