package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/config"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

func testConfig(t *testing.T, persistDir string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Store.Type = config.StoreSQLite
	cfg.Store.PersistDir = persistDir
	cfg.Embedder.Type = config.EmbedderOllama
	cfg.LLM.Provider = config.LLMOllama
	return cfg
}

func TestNewApp_CorruptIndexCanBeReset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.db"), bytes.Repeat([]byte("garbage "), 128), 0644))
	ctx := context.Background()

	a, err := newApp(ctx, testConfig(t, dir), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	sess, err := usecases.NewSession(ctx, a.index)
	require.NoError(t, err)
	require.NoError(t, a.svc.Reset(ctx, sess))

	count, err := a.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInitConfig(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Retrieval.TopK = 7
	path := filepath.Join(t.TempDir(), "askdocs.yaml")

	require.NoError(t, initConfig(cfg, []string{path}))
	assert.Error(t, initConfig(cfg, []string{path}), "existing file is kept")
	require.NoError(t, initConfig(cfg, []string{"--force", path}))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}
