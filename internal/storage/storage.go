// Package storage holds the binary large-object stores photos and avatars are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"photoshare/internal/config"

	"github.com/google/uuid"
)

// Backend names accepted by BLOB_BACKEND.
const (
	BackendLocal  = "local"
	BackendGridFS = "gridfs"
	BackendGCS    = "gcs"
)

// DefaultGridFSBucket is the GridFS bucket used when GRIDFS_BUCKET is unset.
const DefaultGridFSBucket = "photos"

var (
	// ErrNotFound is returned when no blob exists under a key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that are empty or contain path elements.
	ErrInvalidKey = errors.New("invalid blob key")
	// ErrListUnsupported is returned by stores that cannot enumerate their keys.
	ErrListUnsupported = errors.New("blob listing not supported")
)

// BlobStore persists opaque binaries under flat string keys.
// Delete of a missing key returns ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dotRuns     = regexp.MustCompile(`\.{2,}`)
)

// GenerateFilename returns the storage key for an uploaded file:
// <unix-millis>-<random suffix>-<original name>. Two uploads of the same name in the
// same millisecond still get distinct keys. The original name is reduced to its base
// and stripped of characters unsafe in a key.
func GenerateFilename(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "-")
	base = dotRuns.ReplaceAllString(base, ".")
	base = strings.Trim(base, ".-")
	if base == "" {
		base = "upload"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix + "-" + base
}

// ValidateKey rejects keys that could escape a flat namespace.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "/\\\x00") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// NewFromConfig builds the store selected by cfg.BlobBackend and wraps it with tracing and metrics.
func NewFromConfig(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	var (
		store BlobStore
		err   error
	)
	switch cfg.BlobBackend {
	case "", BackendLocal:
		store, err = NewLocalStore(cfg.BlobLocalDir)
	case BackendGridFS:
		bucket := cfg.GridFSBucket
		if bucket == "" {
			bucket = DefaultGridFSBucket
		}
		store, err = NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDatabase, bucket)
	case BackendGCS:
		store, err = NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported BLOB_BACKEND %q", cfg.BlobBackend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(store), nil
}
