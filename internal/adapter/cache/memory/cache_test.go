package memory

import (
	"testing"
	"time"
)

func TestCacheHitWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCache()
	c.now = func() time.Time { return now }

	c.SetWithTTL("k", 60*time.Second, "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should be expired at TTL")
	}
	// expired entry is evicted
	if len(c.entries) != 0 {
		t.Fatalf("expected lazy eviction, %d entries left", len(c.entries))
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("absent"); ok {
		t.Fatal("unexpected hit")
	}
}
