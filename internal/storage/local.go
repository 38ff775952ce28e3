package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk.
// It stores temporary files in a configurable directory and does not
// support S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where temporary files are stored.
// If tempDir is empty, os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "dubvoice")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// NewWorkspace creates req-<unix>-<uuid> under the temp directory.
func (s *LocalStorage) NewWorkspace(ctx context.Context, logger *slog.Logger) (*Workspace, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := fmt.Sprintf("req-%d-%s", time.Now().Unix(), uuid.NewString())
	dir := filepath.Join(s.tempDir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return newWorkspace(dir, logger), nil
}

// Save writes data to path. When limit is positive, at most limit bytes are
// accepted; one byte more fails with ErrSizeLimit and the file is removed.
func (s *LocalStorage) Save(ctx context.Context, path string, data io.Reader, limit int64) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 - path is built by the service
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	src := data
	if limit > 0 {
		src = io.LimitReader(data, limit+1)
	}
	n, err := io.Copy(f, src)
	if err == nil && limit > 0 && n > limit {
		err = fmt.Errorf("%w: more than %d bytes", ErrSizeLimit, limit)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		if errors.Is(err, ErrSizeLimit) {
			return n, err
		}
		return n, fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("close file: %w", err)
	}

	return n, nil
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// Verify interface implementation at compile time.
var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*S3Storage)(nil)
)
