package hook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/storage/ttlcache"
)

// L2 is the optional second-tier cache a CachedHook falls through to on an
// L1 miss, and populates on an L1 miss that then computes a fresh result.
// Satisfied by *internal/cache.Manager (Redis-backed).
type L2 interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// CachedHook memoizes a component's output by input, registered at both
// PointBeforeExecute (lookup) and PointAfterExecute (store). A
// before_execute hit short-circuits the run with a Replace result carrying
// the cached output; after_execute populates the cache for the next call
// with the same input. Backed by an in-process ttlcache.Cache (L1) and an
// optional Redis-backed L2, the two-tier shape the teacher's
// llm/cache.ToolResultCache / CachingToolExecutor pair (hash-keyed
// get-then-compute-then-set around a real executor).
type CachedHook struct {
	name string
	l1   *ttlcache.Cache
	l2   L2
	ttl  time.Duration
}

// NewCachedHook builds a CachedHook keyed by the input's text and
// parameters (the hook point is not part of the key, so the lookup and
// store registrations share entries). l2 may be nil to run L1-only.
func NewCachedHook(name string, l1 *ttlcache.Cache, l2 L2, ttl time.Duration) *CachedHook {
	return &CachedHook{name: name, l1: l1, l2: l2, ttl: ttl}
}

func (c *CachedHook) Name() string { return c.name }

func (c *CachedHook) Execute(ctx *Context) (Result, error) {
	switch ctx.Point {
	case PointBeforeExecute:
		return c.lookup(ctx)
	case PointAfterExecute:
		c.store(ctx)
		return ContinueResult(), nil
	default:
		return ContinueResult(), nil
	}
}

func (c *CachedHook) lookup(ctx *Context) (Result, error) {
	key := cacheKey(ctx)

	if raw, ok := c.l1.Get(key); ok {
		if out, ok := raw.(core.AgentOutput); ok {
			return Result{Kind: Replace, Data: out}, nil
		}
	}

	if c.l2 != nil {
		raw, err := c.l2.Get(context.Background(), key)
		if err == nil && raw != "" {
			var out core.AgentOutput
			if jsonErr := json.Unmarshal([]byte(raw), &out); jsonErr == nil {
				c.l1.PutTTL(key, out, c.ttl)
				return Result{Kind: Replace, Data: out}, nil
			}
		}
	}

	return ContinueResult(), nil
}

func (c *CachedHook) store(ctx *Context) {
	key := cacheKey(ctx)
	c.l1.PutTTL(key, ctx.Output, c.ttl)
	if c.l2 == nil {
		return
	}
	if raw, err := json.Marshal(ctx.Output); err == nil {
		_ = c.l2.Set(context.Background(), key, string(raw), c.ttl)
	}
}

// cacheKey hashes the input that actually determines a deterministic
// component's output, mirroring the teacher's
// ToolResultCache.buildKey (sha256 over the normalized call).
func cacheKey(ctx *Context) string {
	data, _ := json.Marshal(struct {
		Text   string
		Params map[string]core.Value
	}{ctx.Input.Text, ctx.Input.Parameters})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
