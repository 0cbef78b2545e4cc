package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"photoshare/internal/bootstrap"
	"photoshare/internal/config"
	"photoshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T) *bootstrap.Runtime {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "seed.db"),
	}
	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipBlobs: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func TestSeedCategories(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	var out bytes.Buffer
	require.NoError(t, run(ctx, rt, []string{"categories"}, &out))
	assert.Equal(t, "26 categories created\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, rt, []string{"categories"}, &out))
	assert.Equal(t, "0 categories created\n", out.String())

	path := filepath.Join(t.TempDir(), "extra.yml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: Street\n  - name: Nature\n"), 0o600))
	out.Reset()
	require.NoError(t, run(ctx, rt, []string{"categories", "-file", path}, &out))
	assert.Equal(t, "1 categories created\n", out.String())
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	var out bytes.Buffer
	require.NoError(t, run(ctx, rt, []string{"demo", "-users", "3", "-photos", "5", "-fast", "-seed", "9"}, &out))
	assert.Contains(t, out.String(), "created 3 users, 5 photos")
	assert.NotContains(t, out.String(), "password")

	var photos int64
	rt.DB.Model(&models.Photo{}).Count(&photos)
	assert.EqualValues(t, 5, photos)
}

func TestSeedUsage(t *testing.T) {
	rt := newRuntime(t)
	var out bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), rt, []string{"bogus"}, &out), errUsage)
	assert.ErrorIs(t, run(context.Background(), rt, []string{"demo", "-users", "many"}, &out), errUsage)
}
