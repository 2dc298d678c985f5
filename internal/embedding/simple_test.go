package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleEmbedderDeterministic(t *testing.T) {
	e := NewSimpleEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "a genius mastermind protagonist")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "a genius mastermind protagonist")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestSimpleEmbedderCaseInsensitive(t *testing.T) {
	e := NewSimpleEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Hunter X Hunter")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "hunter x hunter")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSimpleEmbedderBatchOrder(t *testing.T) {
	e := NewSimpleEmbedder(32)
	ctx := context.Background()

	texts := []string{"first book", "second book", "third book"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "row %d must match single embedding", i)
	}
}

func TestSimpleEmbedderEmptyInput(t *testing.T) {
	e := NewSimpleEmbedder(16)

	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}
