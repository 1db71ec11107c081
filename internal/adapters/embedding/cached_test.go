package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	embedCalls int
	batchCalls int
	err        error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Repeated query hits the cache", func(t *testing.T) {
		next := &countingEmbedder{}
		c := NewCachedEmbedder(next, time.Minute)

		first, err := c.Embed(ctx, "what is go?")
		require.NoError(t, err)
		second, err := c.Embed(ctx, "what is go?")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, next.embedCalls)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("Errors are not cached", func(t *testing.T) {
		next := &countingEmbedder{err: errors.New("down")}
		c := NewCachedEmbedder(next, time.Minute)

		_, err1 := c.Embed(ctx, "q")
		_, err2 := c.Embed(ctx, "q")

		assert.Error(t, err1)
		assert.Error(t, err2)
		assert.Equal(t, 2, next.embedCalls)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Batches pass through", func(t *testing.T) {
		next := &countingEmbedder{}
		c := NewCachedEmbedder(next, 0)

		out, err := c.EmbedBatch(ctx, []string{"a", "bb"})

		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, 1, next.batchCalls)
		assert.Equal(t, 0, c.Len())
	})
}
