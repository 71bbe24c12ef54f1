package config

import (
	"os"
	"strings"
)

// localExportConfig targets the docker-compose MinIO. Exports stay in memory
// unless EXPORT_S3_ENDPOINT is set.
func localExportConfig() ExportConfig {
	endpoint := strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT"))
	return ExportConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "rapidproto"),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "rapidproto123"),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")), "rapidproto-exports"),
		UseSSL:    false,
	}
}
