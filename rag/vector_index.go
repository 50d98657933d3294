package rag

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"
)

// VectorIndex is the in-process nearest-neighbor index interface.
type VectorIndex interface {
	// Build replaces the index contents with vectors/ids in one pass.
	Build(vectors [][]float64, ids []string) error

	// Search returns the k nearest neighbors of query.
	Search(query []float64, k int) ([]SearchResult, error)

	// Add inserts a single vector.
	Add(vector []float64, id string) error

	// Delete removes a vector by id.
	Delete(id string) error

	// Size returns the number of indexed vectors.
	Size() int
}

// SearchResult is a single nearest-neighbor match.
type SearchResult struct {
	ID       string
	Distance float64
	Score    float64 // 1 - distance (for cosine)
}

// IndexType names a VectorIndex implementation strategy.
type IndexType string

const (
	IndexFlat IndexType = "flat" // brute-force scan
	IndexHNSW IndexType = "hnsw" // hierarchical navigable small world graph
	IndexIVF  IndexType = "ivf"  // inverted file / clustering index
)

// ====== HNSW index ======

// HNSWConfig configures an HNSWIndex.
type HNSWConfig struct {
	M              int     `json:"m"`               // max connections per layer (12-48)
	EfConstruction int     `json:"ef_construction"` // search width during build (100-200)
	EfSearch       int     `json:"ef_search"`        // search width during query (50-200)
	MaxLevel       int     `json:"max_level"`        // max graph level
	Ml             float64 `json:"ml"`               // level-generation normalization factor
}

// DefaultHNSWConfig returns a balanced, production-oriented configuration.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{
		M:              16, // balances recall against build/query cost
		EfConstruction: 200,
		EfSearch:       100,
		MaxLevel:       16,
		Ml:             1.0 / math.Log(2.0),
	}
}

// AdaptiveHNSWConfig scales M and the ef parameters to the expected data
// size: small collections use a small M, large ones a large M.
func AdaptiveHNSWConfig(dataSize int) HNSWConfig {
	config := DefaultHNSWConfig()

	switch {
	case dataSize < 10000:
		config.M = 12
		config.EfConstruction = 100
		config.EfSearch = 50
	case dataSize < 100000:
		config.M = 16
		config.EfConstruction = 200
		config.EfSearch = 100
	case dataSize < 1000000:
		config.M = 24
		config.EfConstruction = 300
		config.EfSearch = 150
	default:
		config.M = 32
		config.EfConstruction = 400
		config.EfSearch = 200
	}
	
	return config
}

// HNSWIndex is a hierarchical navigable small world graph index.
type HNSWIndex struct {
	config     HNSWConfig
	vectors    map[string][]float64
	graph      map[string]map[int][]string // id -> level -> neighbors
	entryPoint string
	maxLevel   int
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHNSWIndex creates an empty HNSW index.
func NewHNSWIndex(config HNSWConfig, logger *zap.Logger) *HNSWIndex {
	return &HNSWIndex{
		config:  config,
		vectors: make(map[string][]float64),
		graph:   make(map[string]map[int][]string),
		logger:  logger,
	}
}

// Build replaces the index with vectors/ids, inserting them one at a time.
func (idx *HNSWIndex) Build(vectors [][]float64, ids []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(vectors) != len(ids) {
		return fmt.Errorf("vectors and ids length mismatch")
	}

	idx.logger.Info("building HNSW index",
		zap.Int("vectors", len(vectors)),
		zap.Int("M", idx.config.M),
		zap.Int("ef_construction", idx.config.EfConstruction))

	for i, vec := range vectors {
		id := ids[i]
		idx.vectors[id] = vec

		level := idx.randomLevel()
		if level > idx.maxLevel {
			idx.maxLevel = level
		}

		idx.graph[id] = make(map[int][]string)
		for l := 0; l <= level; l++ {
			idx.graph[id][l] = []string{}
		}

		if idx.entryPoint == "" {
			idx.entryPoint = id
		} else {
			idx.insert(id, vec, level)
		}
	}

	idx.logger.Info("HNSW index built",
		zap.Int("size", len(idx.vectors)),
		zap.Int("max_level", idx.maxLevel))

	return nil
}

// Search returns the k nearest neighbors of query, descending from the top
// graph level to level 0.
func (idx *HNSWIndex) Search(query []float64, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []SearchResult{}, nil
	}

	ep := idx.entryPoint
	for level := idx.maxLevel; level > 0; level-- {
		ep = idx.searchLayer(query, ep, 1, level)[0]
	}

	candidates := idx.searchLayer(query, ep, idx.config.EfSearch, 0)

	results := make([]SearchResult, 0, k)
	for i := 0; i < len(candidates) && i < k; i++ {
		id := candidates[i]
		distance := idx.distance(query, idx.vectors[id])
		results = append(results, SearchResult{
			ID:       id,
			Distance: distance,
			Score:    1.0 - distance, // cosine similarity
		})
	}

	return results, nil
}

// Add inserts a single vector into the graph.
func (idx *HNSWIndex) Add(vector []float64, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	
	if _, exists := idx.vectors[id]; exists {
		return fmt.Errorf("vector %s already exists", id)
	}
	
	idx.vectors[id] = vector
	level := idx.randomLevel()
	
	if level > idx.maxLevel {
		idx.maxLevel = level
	}
	
	idx.graph[id] = make(map[int][]string)
	for l := 0; l <= level; l++ {
		idx.graph[id][l] = []string{}
	}
	
	if idx.entryPoint == "" {
		idx.entryPoint = id
	} else {
		idx.insert(id, vector, level)
	}
	
	return nil
}

// Delete removes a vector and prunes it from every neighbor list.
func (idx *HNSWIndex) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[id]; !exists {
		return fmt.Errorf("vector %s not found", id)
	}

	delete(idx.vectors, id)
	delete(idx.graph, id)

	for _, neighbors := range idx.graph {
		for level, levelNeighbors := range neighbors {
			filtered := []string{}
			for _, nid := range levelNeighbors {
				if nid != id {
					filtered = append(filtered, nid)
				}
			}
			neighbors[level] = filtered
		}
	}

	if idx.entryPoint == id {
		for newID := range idx.vectors {
			idx.entryPoint = newID
			break
		}
	}

	return nil
}

// Size returns the number of indexed vectors.
func (idx *HNSWIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// ====== HNSW internals ======

// insert descends from the top level to the target level to find an entry
// point, then links the new node in at every level up to its own.
func (idx *HNSWIndex) insert(id string, vector []float64, level int) {
	ep := idx.entryPoint
	for lc := idx.maxLevel; lc > level; lc-- {
		ep = idx.searchLayer(vector, ep, 1, lc)[0]
	}

	for lc := level; lc >= 0; lc-- {
		candidates := idx.searchLayer(vector, ep, idx.config.EfConstruction, lc)

		m := idx.config.M
		if lc == 0 {
			m = idx.config.M * 2
		}
		
		neighbors := idx.selectNeighbors(id, candidates, m)

		// bidirectional links
		idx.graph[id][lc] = neighbors
		for _, nid := range neighbors {
			idx.graph[nid][lc] = append(idx.graph[nid][lc], id)

			// prune the neighbor's own connections back down to m
			if len(idx.graph[nid][lc]) > m {
				idx.graph[nid][lc] = idx.selectNeighbors(nid, idx.graph[nid][lc], m)
			}
		}

		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}
}

// searchLayer performs a greedy beam search for the ef closest nodes to
// query within a single graph level.
func (idx *HNSWIndex) searchLayer(query []float64, ep string, ef int, level int) []string {
	visited := make(map[string]bool)
	candidates := &minHeap{}
	w := &maxHeap{}

	dist := idx.distance(query, idx.vectors[ep])
	heap.Push(candidates, &heapItem{id: ep, dist: dist})
	heap.Push(w, &heapItem{id: ep, dist: dist})
	visited[ep] = true

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(*heapItem)

		if c.dist > (*w)[0].dist {
			break
		}

		for _, nid := range idx.graph[c.id][level] {
			if visited[nid] {
				continue
			}
			visited[nid] = true

			dist := idx.distance(query, idx.vectors[nid])

			if dist < (*w)[0].dist || w.Len() < ef {
				heap.Push(candidates, &heapItem{id: nid, dist: dist})
				heap.Push(w, &heapItem{id: nid, dist: dist})

				if w.Len() > ef {
					heap.Pop(w)
				}
			}
		}
	}

	result := make([]string, w.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(w).(*heapItem).id
	}

	return result
}

// selectNeighbors picks the m closest candidates to id (simple heuristic:
// nearest-by-distance, not the full SPANN/diversity heuristic).
func (idx *HNSWIndex) selectNeighbors(id string, candidates []string, m int) []string {
	if len(candidates) <= m {
		return candidates
	}

	type candidate struct {
		id   string
		dist float64
	}

	cands := make([]candidate, len(candidates))
	for i, cid := range candidates {
		cands[i] = candidate{
			id:   cid,
			dist: idx.distance(idx.vectors[id], idx.vectors[cid]),
		}
	}

	for i := 0; i < len(cands)-1; i++ {
		for j := i + 1; j < len(cands); j++ {
			if cands[i].dist > cands[j].dist {
				cands[i], cands[j] = cands[j], cands[i]
			}
		}
	}

	result := make([]string, m)
	for i := 0; i < m; i++ {
		result[i] = cands[i].id
	}

	return result
}

// randomLevel draws the level a newly-inserted node participates up to.
func (idx *HNSWIndex) randomLevel() int {
	level := 0
	for rand.Float64() < 0.5 && level < idx.config.MaxLevel {
		level++
	}
	return level
}

// distance returns cosine distance (1 - cosine similarity).
func (idx *HNSWIndex) distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1.0 - similarity
}

// ====== heap implementation ======

type heapItem struct {
	id   string
	dist float64
}

type minHeap []*heapItem

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

type maxHeap []*heapItem

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
