package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dims int, fill float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestRouter_InsertOpensOneCollectionPerDimension(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Insert(context.Background(), []Entry{
		{ID: "a", Embedding: vec(768, 1.0)},
		{ID: "b", Embedding: vec(1024, 1.0)},
	})
	require.NoError(t, err)

	dims := r.Dimensions()
	assert.ElementsMatch(t, []int{768, 1024}, dims)
}

func TestRouter_MatryoshkaReductionReusesSmallerCollection(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Insert(context.Background(), []Entry{{ID: "base", Embedding: vec(768, 1.0)}})
	require.NoError(t, err)

	// 1536 is an even multiple of the already-open 768 collection, so it
	// should be reduced rather than opening a new 1536 collection.
	_, err = r.Insert(context.Background(), []Entry{{ID: "big", Embedding: vec(1536, 2.0)}})
	require.NoError(t, err)

	assert.Equal(t, []int{768}, r.Dimensions())

	stats := r.Stats()
	require.Contains(t, stats, 768)
	assert.Equal(t, 2, stats[768].VectorCount)
}

func TestRouter_MatryoshkaPrefersLargestSmallerDivisor(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Insert(context.Background(), []Entry{
		{ID: "small", Embedding: vec(256, 1.0)},
		{ID: "mid", Embedding: vec(768, 1.0)},
	})
	require.NoError(t, err)

	assert.Equal(t, 768, r.findBestDimension(1536))
}

func TestRouter_DisablingReductionOpensNewCollection(t *testing.T) {
	r := NewRouter(nil)
	r.SetAllowReduction(false)

	_, err := r.Insert(context.Background(), []Entry{{ID: "base", Embedding: vec(768, 1.0)}})
	require.NoError(t, err)

	_, err = r.Insert(context.Background(), []Entry{{ID: "big", Embedding: vec(1536, 1.0)}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{768, 1536}, r.Dimensions())
}

func TestRouter_SearchRoutesToMatchingDimensionAndTracksStats(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Insert(context.Background(), []Entry{
		{ID: "a", Embedding: vec(8, 1.0), Content: "alpha"},
		{ID: "b", Embedding: vec(8, 0.0), Content: "beta"},
	})
	require.NoError(t, err)

	results, err := r.Search(context.Background(), Query{Embedding: vec(8, 1.0), TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	stats := r.Stats()
	require.Contains(t, stats, 8)
	assert.Equal(t, 1, stats[8].QueryCount)
}

func TestRouter_SearchWithNoMatchingCollectionReturnsEmpty(t *testing.T) {
	r := NewRouter(nil)

	results, err := r.Search(context.Background(), Query{Embedding: vec(1024, 1.0), TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRouter_DeleteRemovesFromAllCollections(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Insert(context.Background(), []Entry{{ID: "a", Embedding: vec(8, 1.0)}})
	require.NoError(t, err)

	require.NoError(t, r.Delete(context.Background(), []string{"a"}))

	results, err := r.Search(context.Background(), Query{Embedding: vec(8, 1.0), TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReduceDimensions_TruncatesOrLeavesUnchanged(t *testing.T) {
	in := vec(1536, 1.0)
	reduced := reduceDimensions(in, 768)
	assert.Len(t, reduced, 768)

	unchanged := reduceDimensions(vec(128, 1.0), 256)
	assert.Len(t, unchanged, 128)
}
