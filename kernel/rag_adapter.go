package kernel

import (
	"context"
	"time"

	"github.com/lucidkernel/runtime/bridge"
	"github.com/lucidkernel/runtime/rag"
)

// ragAdapter adapts a concrete *rag.RAG to bridge.RAGFacade, translating
// between the facade's string {kind, id} pairs (so bridge doesn't need to
// import rag's ScopeKind type) and rag.Scope.
type ragAdapter struct {
	rag *rag.RAG
}

// NewRAGFacade wraps r for injection into a bridge.Session's Dependencies.
func NewRAGFacade(r *rag.RAG) bridge.RAGFacade {
	return &ragAdapter{rag: r}
}

func (a *ragAdapter) ListProviders() []string { return a.rag.ListProviders() }

func (a *ragAdapter) Ingest(ctx context.Context, docs []bridge.RAGDocument, opts bridge.RAGIngestOptions) (bridge.RAGIngestResult, error) {
	ragDocs := make([]rag.Document, len(docs))
	for i, d := range docs {
		ragDocs[i] = rag.Document{
			ID:        d.ID,
			Content:   d.Content,
			Embedding: d.Embedding,
			Metadata:  d.Metadata,
			Scope:     scopeFromStrings(d.ScopeKind, d.ScopeID),
		}
	}

	result, err := a.rag.Ingest(ctx, ragDocs, rag.IngestOptions{
		Scope: scopeFromStrings(opts.ScopeKind, opts.ScopeID),
	})
	if err != nil {
		return bridge.RAGIngestResult{}, err
	}
	return bridge.RAGIngestResult{
		DocumentsIngested: result.DocumentsIngested,
		ChunksStored:      result.ChunksStored,
		ChunkIDs:          result.ChunkIDs,
	}, nil
}

func (a *ragAdapter) Search(ctx context.Context, q bridge.RAGSearchQuery) ([]bridge.RAGSearchHit, error) {
	results, err := a.rag.Search(ctx, rag.SearchQuery{
		Embedding: q.Embedding,
		TopK:      q.TopK,
		Scope:     scopeFromStrings(q.ScopeKind, q.ScopeID),
	})
	if err != nil {
		return nil, err
	}
	hits := make([]bridge.RAGSearchHit, len(results))
	for i, r := range results {
		hits[i] = bridge.RAGSearchHit{ID: r.ID, Content: r.Content, Score: r.Score, Metadata: r.Metadata}
	}
	return hits, nil
}

func (a *ragAdapter) CleanupScope(ctx context.Context, kind, id string) error {
	return a.rag.CleanupScope(ctx, rag.ScopeKind(kind), id)
}

func (a *ragAdapter) CreateSessionCollection(id string, ttl time.Duration) {
	a.rag.CreateSessionCollection(id, ttl)
}

func (a *ragAdapter) GetStats(kind, id string) bridge.RAGScopeStats {
	stats := a.rag.GetStats(rag.ScopeKind(kind), id)
	dims := make(map[int]int, len(stats.DimensionDist))
	for dim, s := range stats.DimensionDist {
		dims[dim] = s.VectorCount
	}
	return bridge.RAGScopeStats{EntryCount: stats.EntryCount, DimensionDist: dims}
}

func scopeFromStrings(kind, id string) rag.Scope {
	if kind == "" {
		return rag.GlobalScope
	}
	return rag.Scope{Kind: rag.ScopeKind(kind), ID: id}
}
