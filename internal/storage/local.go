package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"podium/internal/observability"
)

// LocalStore keeps files under root/<bucket>/<name>.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) path(bucket, name string) string {
	return filepath.Join(s.root, bucket, name)
}

// Save writes to a temp file in the bucket and renames it into place so
// readers never observe a partial file.
func (s *LocalStore) Save(_ context.Context, bucket, name string, r io.Reader, _ string) (err error) {
	defer func() { record(s.Backend(), "save", err) }()
	if err = checkName(bucket, name); err != nil {
		return err
	}

	dir := filepath.Join(s.root, bucket)
	if err = os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(bucket, name))
}

func (s *LocalStore) Open(_ context.Context, bucket, name string) (_ io.ReadCloser, err error) {
	defer func() { record(s.Backend(), "open", err) }()
	if err = checkName(bucket, name); err != nil {
		return nil, err
	}
	// #nosec G304: bucket and name are validated plain file names
	f, err := os.Open(s.path(bucket, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, bucket, name string) (err error) {
	defer func() { record(s.Backend(), "delete", err) }()
	if err = checkName(bucket, name); err != nil {
		return err
	}
	err = os.Remove(s.path(bucket, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func record(backend, op string, err error) {
	result := observability.ResultLabel(err)
	if errors.Is(err, ErrNotFound) {
		result = "not_found"
	}
	observability.StorageOperations.WithLabelValues(backend, op, result).Inc()
}
