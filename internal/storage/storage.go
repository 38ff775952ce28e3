// Package storage provides temporary and persistent file storage capabilities.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ErrSizeLimit is returned when data written by Save exceeds its limit.
var ErrSizeLimit = errors.New("storage: size limit exceeded")

// Storage defines the interface for scratch and published file storage.
// Implementations provide request-scoped workspaces for processing and
// optionally support S3 uploads for generated audio.
type Storage interface {
	// NewWorkspace creates a request-scoped directory under the temp root.
	// The caller must Release it.
	NewWorkspace(ctx context.Context, logger *slog.Logger) (*Workspace, error)

	// Save writes data to path, creating parent directories. A positive limit
	// caps the number of bytes written; exceeding it removes the partial file
	// and returns ErrSizeLimit.
	Save(ctx context.Context, path string, data io.Reader, limit int64) (written int64, err error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
