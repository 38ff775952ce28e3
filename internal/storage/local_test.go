package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(os.TempDir(), "dubvoice_test_"+randomSuffix())
		defer func() { _ = os.RemoveAll(tempDir) }()

		storage, err := NewLocalStorage(tempDir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.TempDir() != tempDir {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), tempDir)
		}

		info, err := os.Stat(tempDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "dubvoice")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_Save(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("writes file and creates parents", func(t *testing.T) {
		path := filepath.Join(storage.TempDir(), "uploads", "clip.mp3")

		n, err := storage.Save(ctx, path, strings.NewReader("voice"), 10)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if n != 5 {
			t.Errorf("written = %d, want 5", n)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "voice" {
			t.Errorf("got %q, want %q", string(content), "voice")
		}
	})

	t.Run("accepts exactly the limit", func(t *testing.T) {
		path := filepath.Join(storage.TempDir(), "exact.bin")

		if _, err := storage.Save(ctx, path, strings.NewReader("12345"), 5); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	})

	t.Run("rejects data over the limit", func(t *testing.T) {
		path := filepath.Join(storage.TempDir(), "big.bin")

		_, err := storage.Save(ctx, path, strings.NewReader("123456"), 5)
		if !errors.Is(err, ErrSizeLimit) {
			t.Fatalf("expected ErrSizeLimit, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("partial file should be removed")
		}
	})

	t.Run("no limit", func(t *testing.T) {
		path := filepath.Join(storage.TempDir(), "unbounded.bin")

		n, err := storage.Save(ctx, path, strings.NewReader(strings.Repeat("x", 4096)), 0)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if n != 4096 {
			t.Errorf("written = %d, want 4096", n)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Save(ctx, filepath.Join(storage.TempDir(), "x"), strings.NewReader("x"), 0)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_UploadToS3(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.UploadToS3(ctx, "key", bytes.NewReader([]byte("data")))
	if err != ErrS3NotConfigured {
		t.Errorf("expected ErrS3NotConfigured, got %v", err)
	}
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	tempDir := filepath.Join(os.TempDir(), "dubvoice_test_"+randomSuffix())
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	storage, err := NewLocalStorage(tempDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

func randomSuffix() string {
	return time.Now().Format("20060102150405.000000000")
}
