package ttlcache

import (
	"testing"
	"time"
)

func TestCache_Basic(t *testing.T) {
	c := New(10, time.Minute)

	if ok := c.Put("key1", 100); !ok {
		t.Fatal("expected put to succeed")
	}

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.(int) != 100 {
		t.Errorf("expected 100, got %v", got)
	}
}

// TestCache_Expiry covers the spec's default_ttl=100ms scenario: a put
// followed by a 150ms sleep must miss, and must count as exactly one
// expiration.
func TestCache_Expiry(t *testing.T) {
	c := New(10, 100*time.Millisecond)

	if ok := c.Put("k", "v"); !ok {
		t.Fatal("expected put to succeed")
	}

	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}

	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("expected Expirations=1, got %d", stats.Expirations)
	}
}

func TestCache_ExtendOnAccess(t *testing.T) {
	c := New(10, 50*time.Millisecond, WithExtendOnAccess())

	c.Put("k", "v")
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	// Get at 30ms should have pushed expiry back to 30ms+50ms; a further
	// 30ms (60ms total) must still hit.
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected extend-on-access to delay expiry")
	}
}

// TestCache_FullRejectsInsert covers the spec's full-cache semantics: once
// the cache is at capacity and no entries are expired, a Put for a new key
// fails (returns false) rather than silently evicting an existing entry.
func TestCache_FullRejectsInsert(t *testing.T) {
	c := New(2, time.Minute)

	if !c.Put("a", 1) {
		t.Fatal("expected first put to succeed")
	}
	if !c.Put("b", 2) {
		t.Fatal("expected second put to succeed")
	}

	if ok := c.Put("c", 3); ok {
		t.Fatal("expected put to a full cache to fail")
	}

	if _, ok := c.Get("a"); !ok {
		t.Error("existing key 'a' must survive a failed insert")
	}
	if _, ok := c.Get("c"); ok {
		t.Error("rejected key 'c' must not be stored")
	}

	stats := c.Stats()
	if stats.EvictedEntries != 1 {
		t.Errorf("expected EvictedEntries=1, got %d", stats.EvictedEntries)
	}
}

// TestCache_FullSweepsExpiredFirst covers the spec's inline-sweep path: a
// full cache whose entries have since expired makes room via the sweep
// instead of rejecting the insert.
func TestCache_FullSweepsExpiredFirst(t *testing.T) {
	c := New(1, 20*time.Millisecond)

	c.Put("a", 1)
	time.Sleep(30 * time.Millisecond)

	if ok := c.Put("b", 2); !ok {
		t.Fatal("expected put to succeed once the sweep frees the expired entry")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected 'b' to be stored")
	}

	stats := c.Stats()
	if stats.EvictedEntries != 0 {
		t.Errorf("expected EvictedEntries=0 when the sweep freed a slot, got %d", stats.EvictedEntries)
	}
}

func TestCache_UpdateExistingKeyAlwaysSucceeds(t *testing.T) {
	c := New(1, time.Minute)

	c.Put("a", 1)
	if ok := c.Put("a", 2); !ok {
		t.Fatal("expected update of an existing key to succeed even when full")
	}
	got, _ := c.Get("a")
	if got.(int) != 2 {
		t.Errorf("expected updated value 2, got %v", got)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected cache miss after delete")
	}
}

func TestCache_Cleanup(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	c.Put("a", 1)
	c.Put("b", 2)
	time.Sleep(30 * time.Millisecond)

	removed := c.Cleanup()
	if removed != 2 {
		t.Errorf("expected Cleanup to remove 2 expired entries, got %d", removed)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache after cleanup, got len=%d", c.Len())
	}
}
