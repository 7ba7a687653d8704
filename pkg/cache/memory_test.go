package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "k", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(data, []byte("value")) {
		t.Errorf("data = %q, want %q", data, "value")
	}
}

func TestMemoryCacheCopiesData(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	buf := []byte("original")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'X'

	data, _, _ := c.Get(ctx, "k")
	if !bytes.Equal(data, []byte("original")) {
		t.Error("Set should keep its own copy of the data")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_ = c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); !hit {
		t.Fatal("entry should be live before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("entry should expire after its TTL")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted entry should miss")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_ = c.Set(ctx, "resolve:aaa", []byte("1"), 0)
	_ = c.Set(ctx, "resolve:bbb", []byte("2"), 0)
	_ = c.Set(ctx, "other:ccc", []byte("3"), 0)

	n, err := c.Clear(ctx, "resolve:*")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	if _, hit, _ := c.Get(ctx, "other:ccc"); !hit {
		t.Error("non-matching entry should survive")
	}

	// Empty pattern clears everything.
	n, err = c.Clear(ctx, "")
	if err != nil || n != 1 {
		t.Errorf("Clear all: n=%d err=%v, want 1 nil", n, err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("resolve", []string{"auth/clerk"}, true)
	k2 := Key("resolve", []string{"auth/clerk"}, true)
	if k1 != k2 {
		t.Error("Key should be deterministic")
	}

	k3 := Key("resolve", []string{"auth/lucia"}, true)
	if k1 == k3 {
		t.Error("different parts should produce different keys")
	}

	if k1[:8] != "resolve:" {
		t.Errorf("key should carry its prefix: %q", k1)
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Errorf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("NullCache should never store data")
	}
	if n, err := c.Clear(ctx, "*"); n != 0 || err != nil {
		t.Errorf("Clear: n=%d err=%v", n, err)
	}
}
