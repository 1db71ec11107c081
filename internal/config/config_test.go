package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ASKDOCS_PERSIST_DIR", "ASKDOCS_STORE", "ASKDOCS_PG_DSN", "ASKDOCS_EMBEDDER",
		"ASKDOCS_LLM", "ASKDOCS_ADDR", "ASKDOCS_LOG_FILE",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("Missing file yields defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
		assert.Equal(t, 20, cfg.Retrieval.TopK)
		assert.Equal(t, 0.8, cfg.Retrieval.Threshold)
		assert.Equal(t, 5, cfg.Retrieval.HistoryWindow)
		assert.Equal(t, StoreSQLite, cfg.Store.Type)
		assert.Equal(t, "./askdocs_db", cfg.Store.PersistDir)
		assert.Equal(t, EmbedderHugot, cfg.Embedder.Type)
		assert.Equal(t, 10*time.Minute, cfg.Embedder.CacheTTL)
		assert.Equal(t, LLMGemini, cfg.LLM.Provider)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "./documents", cfg.DropFolder.Dir)
	})

	t.Run("File keys override defaults, others keep them", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "askdocs.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
retrieval:
  threshold: 0
  top_k: 5
embedder:
  type: ollama
  cache_ttl: 30s
`), 0o644))

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, 0.0, cfg.Retrieval.Threshold, "explicit zero threshold is kept")
		assert.Equal(t, 5, cfg.Retrieval.TopK)
		assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
		assert.Equal(t, EmbedderOllama, cfg.Embedder.Type)
		assert.Equal(t, 30*time.Second, cfg.Embedder.CacheTTL)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ASKDOCS_STORE", "memory")
		t.Setenv("ASKDOCS_PERSIST_DIR", "/tmp/elsewhere")
		t.Setenv("ASKDOCS_LLM", "anthropic")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, StoreMemory, cfg.Store.Type)
		assert.Equal(t, "/tmp/elsewhere", cfg.Store.PersistDir)
		assert.Equal(t, LLMAnthropic, cfg.LLM.Provider)
		assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	})

	t.Run("Gemini uses its key and OpenAI-compatible endpoint", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Contains(t, cfg.LLM.BaseURL, "generativelanguage.googleapis.com")
	})

	t.Run("Malformed file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retrieval: [unclosed"), 0o644))

		_, err := Load(path)

		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "askdocs.yaml")
	cfg := defaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.Retrieval.TopK = 7

	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, cfg.Embedder.CacheTTL, loaded.Embedder.CacheTTL)
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("ASKDOCS_ADDR")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ASKDOCS_ADDR=:9999\n"), 0o644))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.LLM.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with key", func(*Config) {}, ""},
		{"zero chunk size", func(c *Config) { c.Retrieval.ChunkSize = 0 }, "chunk_size"},
		{"negative k", func(c *Config) { c.Retrieval.TopK = -1 }, "top_k"},
		{"threshold above one", func(c *Config) { c.Retrieval.Threshold = 1.5 }, "threshold"},
		{"unknown store", func(c *Config) { c.Store.Type = "chroma" }, "unknown store"},
		{"pgvector without dsn", func(c *Config) { c.Store.Type = StorePgvector }, "pg_dsn"},
		{"unknown embedder", func(c *Config) { c.Embedder.Type = "word2vec" }, "unknown embedder"},
		{"openai embedder without key", func(c *Config) { c.Embedder.Type = EmbedderOpenAI }, "OPENAI_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }, "unknown llm provider"},
		{"hosted provider without key", func(c *Config) { c.LLM.APIKey = "" }, "API key"},
		{"ollama needs no key", func(c *Config) { c.LLM.Provider = LLMOllama; c.LLM.APIKey = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
