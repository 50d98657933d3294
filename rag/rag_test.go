package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucidkernel/runtime/provider"
	"github.com/lucidkernel/runtime/vector"
)

func testRAG() *RAG {
	router := vector.NewRouter(nil)
	providers := provider.NewManager()
	return New(router, DefaultChunkingConfig(), &SimpleTokenizer{}, providers, zap.NewNop())
}

func vec(dims int, fill float64) []float64 {
	v := make([]float64, dims)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestRAG_IngestAndSearchRespectsScope(t *testing.T) {
	r := testRAG()
	ctx := context.Background()

	tenantA := Scope{Kind: ScopeTenant, ID: "acme"}
	tenantB := Scope{Kind: ScopeTenant, ID: "globex"}

	_, err := r.Ingest(ctx, []Document{
		{ID: "doc-a", Content: "acme secrets", Embedding: vec(8, 1.0), Scope: tenantA},
	}, IngestOptions{})
	require.NoError(t, err)

	_, err = r.Ingest(ctx, []Document{
		{ID: "doc-b", Content: "globex secrets", Embedding: vec(8, 1.0), Scope: tenantB},
	}, IngestOptions{})
	require.NoError(t, err)

	hits, err := r.Search(ctx, SearchQuery{Embedding: vec(8, 1.0), TopK: 10, Scope: tenantA})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].ID, "doc-a")

	hits, err = r.Search(ctx, SearchQuery{Embedding: vec(8, 1.0), TopK: 10, Scope: tenantB})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].ID, "doc-b")
}

func TestRAG_CleanupScopeRemovesOnlyThatScope(t *testing.T) {
	r := testRAG()
	ctx := context.Background()
	scope := Scope{Kind: ScopeSession, ID: "sess-1"}

	_, err := r.Ingest(ctx, []Document{
		{ID: "doc-1", Content: "hello", Embedding: vec(8, 0.5), Scope: scope},
	}, IngestOptions{})
	require.NoError(t, err)

	stats := r.GetStats(ScopeSession, "sess-1")
	assert.Equal(t, 1, stats.EntryCount)

	require.NoError(t, r.CleanupScope(ctx, ScopeSession, "sess-1"))

	stats = r.GetStats(ScopeSession, "sess-1")
	assert.Equal(t, 0, stats.EntryCount)

	hits, err := r.Search(ctx, SearchQuery{Embedding: vec(8, 0.5), TopK: 10, Scope: scope})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRAG_CreateSessionCollectionExpiresAfterTTL(t *testing.T) {
	r := testRAG()
	ctx := context.Background()
	scope := Scope{Kind: ScopeSession, ID: "sess-ttl"}

	r.CreateSessionCollection("sess-ttl", 10*time.Millisecond)

	_, err := r.Ingest(ctx, []Document{
		{ID: "doc-ttl", Content: "ephemeral", Embedding: vec(4, 1.0), Scope: scope},
	}, IngestOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.GetStats(ScopeSession, "sess-ttl").EntryCount == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRAG_ListProvidersDelegatesToManager(t *testing.T) {
	r := testRAG()
	assert.Empty(t, r.ListProviders())
}

func TestRAG_IngestRejectsMissingEmbedding(t *testing.T) {
	r := testRAG()
	_, err := r.Ingest(context.Background(), []Document{
		{ID: "no-embedding", Content: "text"},
	}, IngestOptions{Scope: GlobalScope})
	require.Error(t, err)
}
