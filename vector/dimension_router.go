// Package vector routes embedding vectors to dimension-specific storage.
//
// Different embedding models produce vectors of different widths (a
// Matryoshka-trained OpenAI model might emit 256, 1536, or 3072; Cohere
// emits 1024). Router keeps one chromem-go collection per observed
// dimension and, when a vector's exact dimension has no collection yet,
// falls back to truncating it down to the largest already-open dimension
// that evenly divides it (Matryoshka reduction) rather than opening a new
// collection for every width a caller happens to send.
package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// Entry is a single vector to be routed and inserted.
type Entry struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
	Content   string
}

// Query is a similarity search request.
type Query struct {
	Embedding []float32
	TopK      int
	Where     map[string]string
}

// Result is a single match returned from a search.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]string
	Content  string
}

// DimensionStats tracks activity for one dimension bucket.
type DimensionStats struct {
	VectorCount    int
	QueryCount     int
	AvgQueryTimeMS float32
}

// emaAlpha is the exponential-moving-average factor used to smooth
// per-dimension query latency.
const emaAlpha = 0.1

func noEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("vector: collection requires a precomputed embedding, no embedding function configured")
}

// Router maintains one collection per embedding dimension and routes
// inserts/searches to the right one, applying Matryoshka truncation when
// an exact-dimension collection does not yet exist.
type Router struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[int]*chromem.Collection

	statsMu        sync.Mutex
	stats          map[int]*DimensionStats
	allowReduction bool
}

// NewRouter creates a router backed by an in-process chromem-go database.
// Pass nil to have the router create its own.
func NewRouter(db *chromem.DB) *Router {
	if db == nil {
		db = chromem.NewDB()
	}
	return &Router{
		db:             db,
		collections:    make(map[int]*chromem.Collection),
		stats:          make(map[int]*DimensionStats),
		allowReduction: true,
	}
}

// SetAllowReduction toggles whether vectors lacking an exact-dimension
// collection may be truncated onto a smaller, already-open one.
func (r *Router) SetAllowReduction(allow bool) {
	r.mu.Lock()
	r.allowReduction = allow
	r.mu.Unlock()
}

func (r *Router) getOrCreateCollection(dims int) (*chromem.Collection, error) {
	r.mu.RLock()
	c, ok := r.collections[dims]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collections[dims]; ok {
		return c, nil
	}

	name := fmt.Sprintf("dim_%d", dims)
	c, err := r.db.CreateCollection(name, nil, noEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection for %d dimensions: %w", dims, err)
	}
	r.collections[dims] = c
	return c, nil
}

// findBestDimension picks the collection a vector of vectorDims should
// land in: an exact match if one is open, otherwise the largest open
// dimension smaller than vectorDims that divides it evenly, otherwise
// vectorDims itself (a new collection will be created for it).
func (r *Router) findBestDimension(vectorDims int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.collections[vectorDims]; ok {
		return vectorDims
	}

	if !r.allowReduction {
		return vectorDims
	}

	best := -1
	for dims := range r.collections {
		if dims < vectorDims && vectorDims%dims == 0 {
			if dims > best {
				best = dims
			}
		}
	}
	if best > 0 {
		return best
	}
	return vectorDims
}

func reduceDimensions(vec []float32, target int) []float32 {
	if len(vec) <= target {
		return vec
	}
	reduced := make([]float32, target)
	copy(reduced, vec[:target])
	return reduced
}

func (r *Router) trackQueryStats(dims int, queryTimeMS float32) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	s, ok := r.stats[dims]
	if !ok {
		s = &DimensionStats{}
		r.stats[dims] = s
	}
	s.QueryCount++
	if s.AvgQueryTimeMS == 0 {
		s.AvgQueryTimeMS = queryTimeMS
	} else {
		s.AvgQueryTimeMS = (1-emaAlpha)*s.AvgQueryTimeMS + emaAlpha*queryTimeMS
	}
}

func (r *Router) trackInsert(dims, count int) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	s, ok := r.stats[dims]
	if !ok {
		s = &DimensionStats{}
		r.stats[dims] = s
	}
	s.VectorCount += count
}

// Insert groups entries by their routed dimension, reducing any vector
// that lands on a smaller collection, and inserts each group.
func (r *Router) Insert(ctx context.Context, entries []Entry) ([]string, error) {
	byDim := make(map[int][]Entry)
	for _, e := range entries {
		originalDims := len(e.Embedding)
		target := r.findBestDimension(originalDims)
		if target < originalDims {
			e.Embedding = reduceDimensions(e.Embedding, target)
		}
		byDim[target] = append(byDim[target], e)
	}

	var ids []string
	for dims, group := range byDim {
		col, err := r.getOrCreateCollection(dims)
		if err != nil {
			return nil, err
		}

		docs := make([]chromem.Document, len(group))
		for i, e := range group {
			docs[i] = chromem.Document{
				ID:        e.ID,
				Embedding: e.Embedding,
				Metadata:  e.Metadata,
				Content:   e.Content,
			}
			ids = append(ids, e.ID)
		}

		if err := col.AddDocuments(ctx, docs, 0); err != nil {
			return nil, fmt.Errorf("insert into %d-dimension collection: %w", dims, err)
		}
		r.trackInsert(dims, len(group))
	}

	return ids, nil
}

// Search routes the query to the collection matching its (possibly
// reduced) dimension and records latency against that dimension's stats.
func (r *Router) Search(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()

	originalDims := len(q.Embedding)
	target := r.findBestDimension(originalDims)
	embedding := q.Embedding
	if target < originalDims {
		embedding = reduceDimensions(embedding, target)
	}

	r.mu.RLock()
	col, ok := r.collections[target]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK > col.Count() {
		topK = col.Count()
	}
	if topK == 0 {
		return nil, nil
	}

	matches, err := col.QueryEmbedding(ctx, embedding, topK, q.Where, nil)
	if err != nil {
		return nil, fmt.Errorf("search %d-dimension collection: %w", target, err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ID:       m.ID,
			Score:    m.Similarity,
			Metadata: m.Metadata,
			Content:  m.Content,
		}
	}

	r.trackQueryStats(target, float32(time.Since(start).Milliseconds()))
	return results, nil
}

// Delete removes ids from every open collection, since the router does
// not track which dimension owns which id.
func (r *Router) Delete(ctx context.Context, ids []string) error {
	r.mu.RLock()
	collections := make([]*chromem.Collection, 0, len(r.collections))
	for _, c := range r.collections {
		collections = append(collections, c)
	}
	r.mu.RUnlock()

	for _, c := range collections {
		_ = c.Delete(ctx, nil, nil, ids...)
	}
	return nil
}

// Stats returns a snapshot of per-dimension activity.
func (r *Router) Stats() map[int]DimensionStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	out := make(map[int]DimensionStats, len(r.stats))
	for dims, s := range r.stats {
		out[dims] = *s
	}
	return out
}

// Dimensions returns the set of dimensions currently routed to a
// collection.
func (r *Router) Dimensions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dims := make([]int, 0, len(r.collections))
	for d := range r.collections {
		dims = append(dims, d)
	}
	return dims
}
