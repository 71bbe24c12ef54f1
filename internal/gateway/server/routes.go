package server

import (
	"net/http"

	"go.uber.org/zap"

	"rapidproto/internal/gateway/handler/rpc"
	"rapidproto/internal/gateway/middleware"
)

func NewMux(
	pipelineHandler *rpc.PipelineHandler,
	eventsHandler *rpc.EventsHandler,
	logger *zap.Logger,
	allowedOrigins ...string,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	pipelineHandler.Register(mux)

	// Streams
	mux.HandleFunc("GET /ws/events", eventsHandler.HandleEventsWS)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Middleware
	return middleware.AccessLog(logger)(middleware.CORS(allowedOrigins...)(mux))
}
