package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lucidkernel/runtime/provider"
	"github.com/lucidkernel/runtime/vector"
)

// ScopeKind is the namespace a vector entry or RAG operation is confined
// to, enforced at the storage boundary.
type ScopeKind string

const (
	ScopeGlobal  ScopeKind = "global"
	ScopeTenant  ScopeKind = "tenant"
	ScopeSession ScopeKind = "session"
	ScopeCustom  ScopeKind = "custom"
)

// Scope identifies the Global/Tenant(id)/Session(id)/Custom(id) namespace a
// Document belongs to.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// GlobalScope is the unscoped namespace every tenant/session can read.
var GlobalScope = Scope{Kind: ScopeGlobal}

// key renders the scope as the metadata tag value vector entries carry and
// cleanup/stats key off of.
func (s Scope) key() string {
	if s.Kind == ScopeGlobal {
		return string(ScopeGlobal)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Document is a single piece of content carried through chunking,
// embedding, and vector storage.
type Document struct {
	ID        string
	Content   string
	Embedding []float64
	Metadata  map[string]interface{}
	Scope     Scope
}

// IngestOptions configures how Ingest chunks and stores documents.
type IngestOptions struct {
	Chunking ChunkingConfig
	Scope    Scope
}

// IngestResult reports how many chunks were produced and stored.
type IngestResult struct {
	DocumentsIngested int
	ChunksStored      int
	ChunkIDs          []string
}

// SearchQuery is a scoped similarity search request.
type SearchQuery struct {
	Embedding []float64
	TopK      int
	Scope     Scope
}

// SearchHit is a single scoped search result.
type SearchHit struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// ScopeStats summarizes what Ingest/cleanup has accumulated for one scope.
type ScopeStats struct {
	Scope         Scope
	EntryCount    int
	DimensionDist map[int]vector.DimensionStats
}

// Config adjusts facade-wide behavior; currently just the router's
// Matryoshka-reduction toggle, but kept as a struct so future knobs
// (default top-K, chunking defaults) don't need a signature change.
type Config struct {
	AllowDimensionReduction bool
}

const scopeMetadataKey = "__scope"

// RAG is the script-facing retrieval-augmented-generation facade: it
// chunks documents, routes their embeddings through vector.Router, and
// enforces tenant/session scope boundaries around every read and write.
type RAG struct {
	router   *vector.Router
	chunker  *DocumentChunker
	tok      Tokenizer
	logger   *zap.Logger
	providers *provider.Manager

	mu        sync.Mutex
	scopeIDs  map[string]map[string]struct{} // scope key -> set of entry IDs
	sessions  map[string]*time.Timer         // session scope key -> TTL expiry timer
}

// New builds a RAG facade over router, chunking documents with config
// before they're embedded by the caller and handed to Ingest.
func New(router *vector.Router, config ChunkingConfig, tok Tokenizer, providers *provider.Manager, logger *zap.Logger) *RAG {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAG{
		router:    router,
		chunker:   NewDocumentChunker(config, tok, logger),
		tok:       tok,
		logger:    logger,
		providers: providers,
		scopeIDs:  make(map[string]map[string]struct{}),
		sessions:  make(map[string]*time.Timer),
	}
}

// Configure adjusts router-wide behavior, e.g. whether Matryoshka
// dimension reduction is permitted for vectors with no exact-match index.
func (r *RAG) Configure(cfg Config) {
	r.router.SetAllowReduction(cfg.AllowDimensionReduction)
}

// ListProviders returns the names of registered LLM providers available to
// scripts, e.g. for picking an embedding model before calling Ingest.
func (r *RAG) ListProviders() []string {
	if r.providers == nil {
		return nil
	}
	return r.providers.List()
}

// CreateSessionCollection pre-registers a session scope and schedules its
// automatic cleanup after ttl, so a script that never calls CleanupScope
// itself doesn't leak entries past session end.
func (r *RAG) CreateSessionCollection(id string, ttl time.Duration) {
	scope := Scope{Kind: ScopeSession, ID: id}
	key := scope.key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scopeIDs[key]; !ok {
		r.scopeIDs[key] = make(map[string]struct{})
	}
	if existing, ok := r.sessions[key]; ok {
		existing.Stop()
	}
	if ttl > 0 {
		r.sessions[key] = time.AfterFunc(ttl, func() {
			if err := r.CleanupScope(context.Background(), ScopeSession, id); err != nil {
				r.logger.Warn("session collection cleanup failed",
					zap.String("session_id", id), zap.Error(err))
			}
		})
	}
}

// Ingest chunks each document with the configured chunker, inserts every
// chunk's already-computed embedding into the dimension router, and
// records chunk IDs under the document's scope for later cleanup/stats.
//
// Documents must already carry an Embedding; chunked sub-documents inherit
// it unchanged — this facade does not call an embedding model itself.
func (r *RAG) Ingest(ctx context.Context, docs []Document, opts IngestOptions) (IngestResult, error) {
	result := IngestResult{}

	for _, doc := range docs {
		if doc.Scope.Kind == "" {
			doc.Scope = opts.Scope
		}
		if len(doc.Embedding) == 0 {
			return result, fmt.Errorf("rag: ingest: document %q has no embedding", doc.ID)
		}

		chunks := r.chunker.ChunkDocument(doc)
		if len(chunks) == 0 {
			chunks = []Chunk{{Content: doc.Content}}
		}

		entries := make([]vector.Entry, 0, len(chunks))
		for i, chunk := range chunks {
			id := fmt.Sprintf("%s#%d", doc.ID, i)
			entries = append(entries, vector.Entry{
				ID:        id,
				Embedding: Float64ToFloat32(doc.Embedding),
				Content:   chunk.Content,
				Metadata:  scopedMetadata(doc.Scope, doc.Metadata),
			})
		}

		ids, err := r.router.Insert(ctx, entries)
		if err != nil {
			return result, fmt.Errorf("rag: ingest: %w", err)
		}

		r.trackIDs(doc.Scope, ids)
		result.DocumentsIngested++
		result.ChunksStored += len(ids)
		result.ChunkIDs = append(result.ChunkIDs, ids...)
	}

	return result, nil
}

// Search runs a similarity search and filters out any result whose scope
// tag doesn't match q.Scope, enforcing the tenant/session isolation
// boundary even if the router itself returns a broader candidate set.
func (r *RAG) Search(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	where := map[string]string{scopeMetadataKey: q.Scope.key()}
	results, err := r.router.Search(ctx, vector.Query{
		Embedding: Float64ToFloat32(q.Embedding),
		TopK:      q.TopK,
		Where:     where,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		if res.Metadata[scopeMetadataKey] != q.Scope.key() {
			continue
		}
		hits = append(hits, SearchHit{
			ID:       res.ID,
			Content:  res.Content,
			Score:    res.Score,
			Metadata: res.Metadata,
		})
	}
	return hits, nil
}

// CleanupScope deletes every entry ingested under the given scope.
func (r *RAG) CleanupScope(ctx context.Context, kind ScopeKind, id string) error {
	scope := Scope{Kind: kind, ID: id}
	key := scope.key()

	r.mu.Lock()
	ids := make([]string, 0, len(r.scopeIDs[key]))
	for entryID := range r.scopeIDs[key] {
		ids = append(ids, entryID)
	}
	delete(r.scopeIDs, key)
	if timer, ok := r.sessions[key]; ok {
		timer.Stop()
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if err := r.router.Delete(ctx, ids); err != nil {
		return fmt.Errorf("rag: cleanup_scope: %w", err)
	}
	return nil
}

// GetStats reports how many entries are tracked under a scope, alongside
// the router's dimension-distribution stats (shared across all scopes,
// since the router itself is not scope-aware).
func (r *RAG) GetStats(kind ScopeKind, id string) ScopeStats {
	scope := Scope{Kind: kind, ID: id}
	key := scope.key()

	r.mu.Lock()
	count := len(r.scopeIDs[key])
	r.mu.Unlock()

	return ScopeStats{
		Scope:         scope,
		EntryCount:    count,
		DimensionDist: r.router.Stats(),
	}
}

func (r *RAG) trackIDs(scope Scope, ids []string) {
	key := scope.key()
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.scopeIDs[key]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		r.scopeIDs[key] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

func scopedMetadata(scope Scope, extra map[string]interface{}) map[string]string {
	out := map[string]string{scopeMetadataKey: scope.key()}
	for k, v := range extra {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
