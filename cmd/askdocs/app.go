package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/adapters/embedding"
	"github.com/0xcro3dile/askdocs/internal/adapters/llm"
	"github.com/0xcro3dile/askdocs/internal/adapters/parser"
	"github.com/0xcro3dile/askdocs/internal/adapters/vectordb"
	"github.com/0xcro3dile/askdocs/internal/config"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

const defaultOpenAIChatModel = "gpt-4o-mini"

// app holds the wired components shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	index   *vectordb.Index
	parser  *parser.MultiParser
	svc     *usecases.RetrievalService
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	embedder, err := a.newEmbedder(cfg.Embedder)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.index = vectordb.NewIndex(store, embedding.NewCachedEmbedder(embedder, cfg.Embedder.CacheTTL), log)
	a.parser = parser.NewDefaultParser(parser.NewPDFParser(log))
	a.svc = usecases.NewRetrievalService(a.parser, newAnswerer(cfg.LLM, log), usecases.Options{
		ChunkSize:     cfg.Retrieval.ChunkSize,
		TopK:          cfg.Retrieval.TopK,
		Threshold:     cfg.Retrieval.Threshold,
		HistoryWindow: cfg.Retrieval.HistoryWindow,
	}).WithLogger(log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (ports.VectorStore, error) {
	switch cfg.Type {
	case config.StoreSQLite:
		return vectordb.NewSQLiteStore(cfg.PersistDir)
	case config.StorePgvector:
		return vectordb.NewPgvectorStore(ctx, cfg.PgDSN)
	case config.StoreMemory:
		return vectordb.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func (a *app) newEmbedder(cfg config.EmbedderConfig) (ports.EmbeddingService, error) {
	switch cfg.Type {
	case config.EmbedderHugot:
		h, err := embedding.NewHugotEmbedder(cfg.Model, cfg.ModelDir, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, h.Close)
		return h, nil
	case config.EmbedderOllama:
		return embedding.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, a.log), nil
	case config.EmbedderOpenAI:
		return embedding.NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func newAnswerer(cfg config.LLMConfig, log *zap.Logger) ports.AnswerGenerator {
	switch cfg.Provider {
	case config.LLMOllama:
		return llm.NewOllamaGenerator(cfg.BaseURL, cfg.Model, log)
	case config.LLMAnthropic:
		return llm.NewAnthropicGenerator(cfg.APIKey, cfg.Model)
	case config.LLMOpenAI:
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIChatModel
		}
		return llm.NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, model)
	default:
		return llm.NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model)
	}
}
