// Package config loads askdocs configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in the configuration.
const (
	StoreSQLite   = "sqlite"
	StorePgvector = "pgvector"
	StoreMemory   = "memory"

	EmbedderHugot  = "hugot"
	EmbedderOllama = "ollama"
	EmbedderOpenAI = "openai"

	LLMOpenAI    = "openai"
	LLMGemini    = "gemini"
	LLMOllama    = "ollama"
	LLMAnthropic = "anthropic"
)

// RetrievalConfig holds the operating parameters of ingestion and retrieval.
type RetrievalConfig struct {
	ChunkSize     int     `yaml:"chunk_size"`
	TopK          int     `yaml:"top_k"`
	Threshold     float64 `yaml:"threshold"`
	HistoryWindow int     `yaml:"history_window"`
}

// StoreConfig selects the vector storage backend.
type StoreConfig struct {
	Type       string `yaml:"type"`
	PersistDir string `yaml:"persist_dir"`
	PgDSN      string `yaml:"pg_dsn,omitempty"`
}

// EmbedderConfig selects and configures the embedding model.
type EmbedderConfig struct {
	Type     string        `yaml:"type"`
	Model    string        `yaml:"model,omitempty"`
	ModelDir string        `yaml:"model_dir,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	APIKey   string        `yaml:"-"`
}

// LLMConfig selects and configures the answer generator.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	APIKey   string `yaml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// DropFolderConfig configures automatic ingestion of files dropped into a directory.
type DropFolderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	Production bool   `yaml:"production"`
}

// Config is the root application configuration.
type Config struct {
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Store      StoreConfig      `yaml:"store"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	LLM        LLMConfig        `yaml:"llm"`
	Server     ServerConfig     `yaml:"server"`
	DropFolder DropFolderConfig `yaml:"drop_folder"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from path. Keys missing from the file keep their
// defaults; a missing file yields the defaults. Environment overrides apply
// in both cases.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./askdocs.yaml first, then ~/.config/askdocs/config.yaml.
// If neither exists it returns the defaults without writing anything.
func LoadDefault() (*Config, string, error) {
	paths := []string{"askdocs.yaml"}
	if userPath, err := defaultUserConfigPath(); err == nil {
		paths = append(paths, userPath)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg := defaultConfig()
	applyEnv(cfg)
	applyConfigDefaults(cfg)
	return cfg, "", nil
}

// LoadEnv loads .env files into the process environment. Missing files are ignored;
// variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Save writes the config to path, creating directories as needed. API keys are never written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		errs = append(errs, fmt.Errorf("retrieval.threshold must be within [0,1], got %g", c.Retrieval.Threshold))
	}
	if c.Retrieval.HistoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.history_window must be positive, got %d", c.Retrieval.HistoryWindow))
	}

	switch c.Store.Type {
	case StoreSQLite, StoreMemory:
	case StorePgvector:
		if c.Store.PgDSN == "" {
			errs = append(errs, errors.New("store.pg_dsn is required for the pgvector store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	switch c.Embedder.Type {
	case EmbedderHugot, EmbedderOllama:
	case EmbedderOpenAI:
		if c.Embedder.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai embedder"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedder type %q", c.Embedder.Type))
	}

	switch c.LLM.Provider {
	case LLMOllama:
	case LLMOpenAI, LLMGemini, LLMAnthropic:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("an API key is required for the %s provider", c.LLM.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "askdocs", "config.yaml"), nil
}

func defaultConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			ChunkSize:     500,
			TopK:          20,
			Threshold:     0.8,
			HistoryWindow: 5,
		},
		Store:      StoreConfig{Type: StoreSQLite, PersistDir: "./askdocs_db"},
		Embedder:   EmbedderConfig{Type: EmbedderHugot, ModelDir: "./models", CacheTTL: 10 * time.Minute},
		LLM:        LLMConfig{Provider: LLMGemini},
		Server:     ServerConfig{Addr: ":8080", SessionTTL: time.Hour},
		DropFolder: DropFolderConfig{Dir: "./documents"},
		Log:        LogConfig{Level: "info"},
	}
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&cfg.Store.PersistDir, "ASKDOCS_PERSIST_DIR")
	setString(&cfg.Store.Type, "ASKDOCS_STORE")
	setString(&cfg.Store.PgDSN, "ASKDOCS_PG_DSN")
	setString(&cfg.Embedder.Type, "ASKDOCS_EMBEDDER")
	setString(&cfg.LLM.Provider, "ASKDOCS_LLM")
	setString(&cfg.Server.Addr, "ASKDOCS_ADDR")
	setString(&cfg.Log.File, "ASKDOCS_LOG_FILE")
}

// applyConfigDefaults fills provider-dependent settings once the backends are known.
func applyConfigDefaults(cfg *Config) {
	if cfg.Embedder.Type == EmbedderOpenAI && cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case LLMOpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case LLMGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case LLMAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.Provider == LLMGemini && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = time.Hour
	}
}
