package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"
)

// DefaultHugotModel is the sentence embedding model used for local inference.
const DefaultHugotModel = "BAAI/bge-small-en-v1.5"

// HugotEmbedder implements ports.EmbeddingService with a local ONNX model
// run by the pure Go hugot backend.
type HugotEmbedder struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// NewHugotEmbedder prepares the model under modelDir, downloading it on first
// use, and starts an inference session. Call Close to release it.
func NewHugotEmbedder(modelName, modelDir string, log *zap.Logger) (*HugotEmbedder, error) {
	if modelName == "" {
		modelName = DefaultHugotModel
	}
	if modelDir == "" {
		modelDir = "./models"
	}
	if log == nil {
		log = zap.NewNop()
	}

	modelPath, err := prepareModel(modelName, modelDir, log)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "askdocs-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &HugotEmbedder{session: session, pipeline: pipeline}, nil
}

// prepareModel downloads the model if it doesn't exist and returns the model path.
func prepareModel(modelName, modelDir string, log *zap.Logger) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking model directory: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	log.Info("downloading embedding model", zap.String("model", modelName), zap.String("dir", modelDir))
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloadedPath, nil
}

// Embed generates an embedding for a single text.
func (h *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the pipeline over all texts at once.
func (h *HugotEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// Close destroys the inference session.
func (h *HugotEmbedder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Destroy()
}
