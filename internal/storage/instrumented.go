package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"photoshare/internal/observability"
)

type instrumented struct {
	next BlobStore
}

// Instrument wraps store so every call records a span and the blob metrics.
func Instrument(store BlobStore) BlobStore {
	if _, ok := store.(*instrumented); ok {
		return store
	}
	return &instrumented{next: store}
}

func (s *instrumented) observe(ctx context.Context, op, key string, fn func(context.Context) error) error {
	start := time.Now()
	span, ctx := observability.StartBlobSpan(ctx, s.next.Backend(), op, key)
	defer span.End()

	err := fn(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.SetError(err)
	}
	observability.ObserveBlob(s.next.Backend(), op, start, err)
	return err
}

func (s *instrumented) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return s.observe(ctx, "put", key, func(ctx context.Context) error {
		return s.next.Put(ctx, key, r, contentType)
	})
}

func (s *instrumented) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := s.observe(ctx, "open", key, func(ctx context.Context) error {
		var err error
		rc, err = s.next.Open(ctx, key)
		return err
	})
	return rc, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

func (s *instrumented) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.observe(ctx, "list", "", func(ctx context.Context) error {
		var err error
		keys, err = s.next.List(ctx)
		return err
	})
	return keys, err
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.observe(ctx, "ping", "", s.next.Ping)
}

func (s *instrumented) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

func (s *instrumented) Backend() string {
	return s.next.Backend()
}
