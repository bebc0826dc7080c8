// Package storage persists the last seen status and the debug page dumps,
// either on the local filesystem or in a Cloud Storage bucket for scheduler
// environments with no persistent disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Filesystem artifacts. The same names are used as bucket object names.
const (
	StateFile        = "last_status.txt"
	DebugAuthPage    = "debug_ecas_after_auth.html"
	DebugHistoryPage = "debug_case_history.html"
)

// Store reads and writes the run artifacts. When bucket is empty, localPath
// (a directory) is used; otherwise all artifacts live in the bucket.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a store. client may be nil in local mode.
func New(client *storage.Client, bucket string, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// LoadStatus returns the last persisted status text, trimmed of surrounding
// whitespace. A missing state file means a first run and yields "".
func (s *Store) LoadStatus(ctx context.Context) (string, error) {
	if s.bucket == "" {
		data, err := os.ReadFile(filepath.Join(s.localPath, StateFile))
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", fmt.Errorf("read state file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	r, err := s.client.Bucket(s.bucket).Object(StateFile).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open state object: %w", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			s.logger.Warn("Failed to close state reader", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read state object: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveStatus overwrites the persisted status. Called only after a confirmed
// email send, so the state always reflects what was last reported.
func (s *Store) SaveStatus(ctx context.Context, status string) error {
	if err := s.write(ctx, StateFile, []byte(status)); err != nil {
		return err
	}
	s.logger.Info("Status persisted", "status", status)
	return nil
}

// SaveDebug writes a raw page dump byte-for-byte for offline inspection.
func (s *Store) SaveDebug(ctx context.Context, name, html string) error {
	if err := s.write(ctx, name, []byte(html)); err != nil {
		return err
	}
	s.logger.Warn("Debug page dumped", "name", name, "bytes", len(html))
	return nil
}

func (s *Store) write(ctx context.Context, name string, data []byte) error {
	if s.bucket == "" {
		path := filepath.Join(s.localPath, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			s.logger.Warn("Failed to close writer after error", "error", closeErr)
		}
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer %s: %w", name, err)
	}
	return nil
}
