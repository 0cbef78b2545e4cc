package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"photoshare/internal/storage"
)

// MemoryBlobStore is an in-memory storage.BlobStore for tests.
// Keys listed in FailDelete make Delete fail, to exercise partial failures.
type MemoryBlobStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	types      map[string]string
	FailDelete map[string]error
	FailPut    error
}

// NewMemoryBlobStore returns an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs:      make(map[string][]byte),
		types:      make(map[string]string),
		FailDelete: make(map[string]error),
	}
}

func (s *MemoryBlobStore) Put(_ context.Context, key string, r io.Reader, contentType string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if s.FailPut != nil {
		return s.FailPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	s.types[key] = contentType
	return nil
}

func (s *MemoryBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailDelete[key]; ok {
		return err
	}
	if _, ok := s.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.blobs, key)
	delete(s.types, key)
	return nil
}

func (s *MemoryBlobStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryBlobStore) Ping(context.Context) error  { return nil }
func (s *MemoryBlobStore) Close(context.Context) error { return nil }
func (s *MemoryBlobStore) Backend() string             { return "memory" }

// Has reports whether key is stored.
func (s *MemoryBlobStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

// Len returns the number of stored blobs.
func (s *MemoryBlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
