package storage

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"photoshare/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	keyPattern := regexp.MustCompile(`^1700000000123-[0-9a-f]{12}-(.+)$`)
	tests := []struct {
		name     string
		original string
		want     string
	}{
		{"Plain", "sunset.jpg", "sunset.jpg"},
		{"Spaces", "my holiday pic.png", "my-holiday-pic.png"},
		{"Path Stripped", "../../etc/passwd", "passwd"},
		{"Windows Path", `C:\Users\bob\cat.gif`, "cat.gif"},
		{"Dot Runs", "a..b.webp", "a.b.webp"},
		{"Empty", "", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFilename(tt.original, now)
			m := keyPattern.FindStringSubmatch(got)
			require.NotNil(t, m, got)
			assert.Equal(t, tt.want, m[1])
			assert.NoError(t, ValidateKey(got))
		})
	}
}

func TestGenerateFilename_SameInstantSameName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key := GenerateFilename("IMG_0001.jpg", now)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", ".", "..", "a/b", `a\b`, "../x", "x..y"} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
	assert.NoError(t, ValidateKey("1700000000123-sunset.jpg"))
}

func TestLocalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "b.png", bytes.NewReader([]byte("png-bytes")), "image/png"))
	require.NoError(t, store.Put(ctx, "a.png", bytes.NewReader([]byte("other")), "image/png"))

	rc, err := store.Open(ctx, "b.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(data))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, keys)

	require.NoError(t, store.Delete(ctx, "b.png"))
	_, err = store.Open(ctx, "b.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "b.png"), ErrNotFound)

	assert.ErrorIs(t, store.Put(ctx, "../escape", bytes.NewReader(nil), ""), ErrInvalidKey)
	assert.NoError(t, store.Ping(ctx))
}

func TestLocalStore_PutHonorsCancellation(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Put(ctx, "x.png", bytes.NewReader([]byte("data")), "image/png")
	require.Error(t, err)

	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	store, err := NewFromConfig(ctx, &config.Config{BlobBackend: BackendLocal, BlobLocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, store.Backend())
	assert.Same(t, store, Instrument(store))

	_, err = NewFromConfig(ctx, &config.Config{BlobBackend: "s3"})
	assert.Error(t, err)

	_, err = NewFromConfig(ctx, &config.Config{BlobBackend: BackendGridFS})
	assert.Error(t, err)

	_, err = NewFromConfig(ctx, &config.Config{BlobBackend: BackendGCS})
	assert.Error(t, err)
}

func TestInstrumented_PassesThroughNotFound(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := Instrument(local)

	_, err = store.Open(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
