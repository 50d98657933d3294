package hook

import (
	"sort"
	"sync"
)

// Registry holds the hooks attached to each Point, ordered by priority
// (registration order breaks ties — the first-registered hook at a given
// priority wins, per DESIGN.md's tie-breaking decision).
type Registry struct {
	mu    sync.RWMutex
	byPt  map[Point][]registration
	order int
}

// NewRegistry builds an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{byPt: make(map[Point][]registration)}
}

// Register attaches h to point at priority (lower runs first).
func (r *Registry) Register(point Point, h Hook, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order++
	r.byPt[point] = append(r.byPt[point], registration{hook: h, priority: priority})
	entries := r.byPt[point]
	seq := r.order
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return false // stable sort preserves registration order for ties
	})
	_ = seq
}

// Unregister removes a hook by name from point.
func (r *Registry) Unregister(point Point, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byPt[point]
	out := entries[:0]
	for _, e := range entries {
		if e.hook.Name() != name {
			out = append(out, e)
		}
	}
	r.byPt[point] = out
}

// Hooks returns the hooks registered at point, in dispatch order.
func (r *Registry) Hooks(point Point) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.byPt[point]
	out := make([]Hook, len(entries))
	for i, e := range entries {
		out[i] = e.hook
	}
	return out
}
