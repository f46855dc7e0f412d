// Package storage keeps uploaded audio files and profile pictures on local
// disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"podium/internal/config"

	"github.com/google/uuid"
)

// Buckets group stored files by purpose.
const (
	BucketPodcasts        = "podcasts"
	BucketProfilePictures = "profile-pictures"
)

// ErrNotFound is returned by Open when the file does not exist.
var ErrNotFound = errors.New("stored file not found")

// ErrInvalidName is returned for names that could escape their bucket.
var ErrInvalidName = errors.New("invalid stored file name")

// FileStore saves, serves and deletes opaque files by bucket and name.
type FileStore interface {
	Save(ctx context.Context, bucket, name string, r io.Reader, contentType string) error
	Open(ctx context.Context, bucket, name string) (io.ReadCloser, error)
	// Delete removes the file. Deleting a missing file is not an error.
	Delete(ctx context.Context, bucket, name string) error
	Backend() string
}

// NewName returns a fresh random file name with the given extension.
func NewName(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

// ValidName reports whether name is a plain file name without path elements.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 100 {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func checkName(bucket, name string) error {
	if !ValidName(bucket) || !ValidName(name) {
		return fmt.Errorf("%w: %q/%q", ErrInvalidName, bucket, name)
	}
	return nil
}

// New builds the FileStore selected by STORAGE_BACKEND.
func New(cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return NewLocalStore(cfg.UploadDir)
	}
}
