package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHugotEmbedder(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping hugot test in short mode (requires model download)")
	}

	e, err := NewHugotEmbedder("", t.TempDir(), nil)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	t.Run("Same text produces same embedding", func(t *testing.T) {
		a, err := e.Embed(ctx, "Deterministic embedding test")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "Deterministic embedding test")
		require.NoError(t, err)

		assert.Equal(t, 384, len(a), "bge-small-en-v1.5 produces 384-dimensional embeddings")
		for i := range a {
			assert.InDelta(t, a[i], b[i], 0.0001)
		}
	})

	t.Run("Batch preserves order", func(t *testing.T) {
		out, err := e.EmbedBatch(ctx, []string{"first", "second"})
		require.NoError(t, err)
		require.Len(t, out, 2)

		single, err := e.Embed(ctx, "second")
		require.NoError(t, err)
		for i := range single {
			assert.InDelta(t, single[i], out[1][i], 0.001)
		}
	})
}
