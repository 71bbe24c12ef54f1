package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"rapidproto/internal/export"
	"rapidproto/internal/gateway/config"
	"rapidproto/internal/gateway/events"
	"rapidproto/internal/gateway/handler/rpc"
	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/gateway/server"
	"rapidproto/internal/gateway/workspace"
	"rapidproto/internal/generation"
	"rapidproto/internal/llm"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/refinement"
)

type App struct {
	server  *server.Server
	handler http.Handler
	client  llm.Client
}

// NewLLMClient builds the configured backend wrapped in the standard
// middleware chain. Each Generate reaches the backend at most once; a retry
// is the caller invoking the stage again.
func NewLLMClient(cfg config.LLMConfig, logger *zap.Logger) (llm.Client, error) {
	inner, err := llm.New(llm.Settings{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.Wrap(inner,
		llm.WithLogging(logger),
		llm.WithTimeout(cfg.Timeout),
		llm.RateLimit(cfg.RPS, cfg.Burst),
		llm.WithHooks(),
	), nil
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewLLMClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init llm client: %w", err)
	}
	store, err := initExportStore(cfg.Export, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	table, err := loadPatchTable(cfg.Refinement, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return build(cfg, client, store, table, logger), nil
}

func build(cfg *config.Config, client llm.Client, store artifact.Store, table *refinement.Table, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Dependencies
	svc := generation.New(client, generation.WithLogger(logger))
	broker := events.NewBroker()
	registry := workspace.New(cfg.Session.Max, cfg.Session.IdleTTL,
		func(id string) *pipeline.Runner {
			return pipeline.NewRunner(svc,
				pipeline.WithEmitter(broker.Emitter(id)),
				pipeline.WithPatchTable(table),
				pipeline.WithRunnerLogger(logger.With(zap.String("workspace_id", id))),
			)
		},
		workspace.OnEvict(func(id string) {
			logger.Info("workspace evicted", zap.String("workspace_id", id))
			broker.Close(id)
		}),
	)
	exporter := export.NewExporter(store, logger)

	pipelineHandler := rpc.NewPipelineHandler(registry, exporter, logger)
	eventsHandler := rpc.NewEventsHandler(registry, broker, logger)

	// Routing & Server
	mux := server.NewMux(pipelineHandler, eventsHandler, logger)
	return &App{
		server:  server.New(cfg.Port, mux, logger),
		handler: mux,
		client:  client,
	}
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.client == nil {
		return err
	}
	if cerr := a.client.Close(); err == nil {
		err = cerr
	}
	return err
}
