package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.CreateNamespace(ctx, "session-a"))
	require.NoError(t, index.CreateNamespace(ctx, "session-b"))

	_, err := index.Add(ctx, "session-a", []Chunk{
		{Content: "The onboarding checklist covers laptop setup and badge access.", Source: "onboarding.md"},
	})
	require.NoError(t, err)

	_, err = index.Add(ctx, "session-b", []Chunk{
		{Content: "Quarterly revenue grew twelve percent year over year.", Source: "q3.md"},
	})
	require.NoError(t, err)

	hits, err := index.Retriever("session-b").Search(ctx, "onboarding checklist badge", 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "session-b must not see session-a chunks")

	hits, err = index.Retriever("session-a").Search(ctx, "onboarding checklist badge", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "onboarding.md", hits[0].Source)
}

func TestMemoryIndex_SearchOrdersByScoreDescending(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()
	require.NoError(t, index.CreateNamespace(ctx, "s1"))

	_, err := index.Add(ctx, "s1", []Chunk{
		{Content: "cats and dogs and birds", Source: "a"},
		{Content: "cats cats cats cats", Source: "b"},
		{Content: "weather report for tuesday", Source: "c"},
		{Content: "dogs like cats sometimes", Source: "d"},
	})
	require.NoError(t, err)

	hits, err := index.Retriever("s1").Search(ctx, "cats", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 3)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score,
			"results must be sorted by descending score")
	}
	assert.Equal(t, "b", hits[0].Source, "the all-cats chunk should rank first")
}

func TestMemoryIndex_SearchTruncatesToK(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	chunks := []Chunk{
		{Content: "alpha topic one", Source: "1"},
		{Content: "alpha topic two", Source: "2"},
		{Content: "alpha topic three", Source: "3"},
		{Content: "alpha topic four", Source: "4"},
		{Content: "alpha topic five", Source: "5"},
	}
	_, err := index.Add(ctx, "s1", chunks)
	require.NoError(t, err)

	hits, err := index.Retriever("s1").Search(ctx, "alpha topic", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestMemoryIndex_DeleteNamespaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	_, err := index.Add(ctx, "gone", []Chunk{{Content: "ephemeral data", Source: "x"}})
	require.NoError(t, err)

	require.NoError(t, index.DeleteNamespace(ctx, "gone"))
	require.NoError(t, index.DeleteNamespace(ctx, "gone"))
	require.NoError(t, index.DeleteNamespace(ctx, "never-existed"))

	hits, err := index.Retriever("gone").Search(ctx, "ephemeral", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndex_EmptyQueryReturnsNothing(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	_, err := index.Add(ctx, "s1", []Chunk{{Content: "some content", Source: "a"}})
	require.NoError(t, err)

	hits, err := index.Retriever("s1").Search(ctx, "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestParseChunkResults_SortedByCertainty(t *testing.T) {
	chunks := []Chunk{
		{Content: "a", Score: 0.2},
		{Content: "b", Score: 0.9},
		{Content: "c", Score: 0.5},
		{Content: "d", Score: 0.1},
		{Content: "e", Score: 0.7},
	}

	// Same ordering rule the retrievers apply after parsing.
	sortChunksByScore(chunks)

	require.Len(t, chunks, 5)
	assert.Equal(t, 0.9, chunks[0].Score)
	assert.Equal(t, 0.7, chunks[1].Score)
	assert.Equal(t, 0.5, chunks[2].Score)

	top := chunks[:3]
	assert.Equal(t, []float64{0.9, 0.7, 0.5}, []float64{top[0].Score, top[1].Score, top[2].Score})
}
