package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"rapidproto/internal/gateway/config"
	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/refinement"
)

// initExportStore picks S3/MinIO when configured and memory otherwise.
func initExportStore(cfg config.ExportConfig, logger *zap.Logger) (artifact.Store, error) {
	if !cfg.Enabled {
		logger.Info("export store: memory")
		return artifact.NewMemoryStore(), nil
	}
	store, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init export store: %w", err)
	}
	logger.Info("export store: s3", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return store, nil
}

// loadPatchTable reads the configured refinement patch table, falling back
// to the embedded one when no file is set.
func loadPatchTable(cfg config.RefinementConfig, logger *zap.Logger) (*refinement.Table, error) {
	if cfg.PatchFile == "" {
		return refinement.DefaultTable(), nil
	}
	data, err := os.ReadFile(cfg.PatchFile)
	if err != nil {
		return nil, fmt.Errorf("read refinement patches: %w", err)
	}
	table, err := refinement.LoadTable(data)
	if err != nil {
		return nil, err
	}
	logger.Info("refinement patches loaded", zap.String("path", cfg.PatchFile), zap.Int("patches", len(table.Patches())))
	return table, nil
}
