package cache

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/relay/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestKey(t *testing.T) {
	k1 := Key("items", 25, 0)
	k2 := Key("items", 25, 25)
	if k1 == k2 {
		t.Error("different parts should produce different keys")
	}
	if !strings.HasPrefix(k1, "items:") {
		t.Errorf("Key() = %q, want items: prefix", k1)
	}
	if Key("items", "a", 1) == Key("items", "a1") {
		t.Error("part boundaries should matter")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}

	tests := []struct {
		name string
		key  string
		data []byte
	}{
		{"simple", "items:page:1", []byte(`{"items":[]}`)},
		{"binary", "bin", []byte{0, 1, 2, 255}},
		{"empty", "empty", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.key, tt.data, time.Hour); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			got, ok, err := c.Get(ctx, tt.key)
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v; want hit", ok, err)
			}
			if string(got) != string(tt.data) {
				t.Errorf("Get() = %q, want %q", got, tt.data)
			}
		})
	}

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v; want miss", ok, err)
	}

	if err := c.Delete(ctx, "items:page:1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "items:page:1"); ok {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "key"); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok, err := c.Get(ctx, "key"); ok || err != nil {
		t.Errorf("Get() = %v, %v; want expired miss", ok, err)
	}
	if _, err := os.Stat(c.path("key")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheNoTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "key", []byte("v"), 0)
	if _, ok, _ := c.Get(ctx, "key"); !ok {
		t.Error("entry without TTL should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get(ctx, "bad"); ok || err != nil {
		t.Errorf("Get() = %v, %v; want miss", ok, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "relay")
	c, _ := NewFileCache(dir)
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cache dir missing after Clear: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache dir has %d entries after Clear", len(entries))
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
}

type countingCacheHooks struct {
	mu                sync.Mutex
	hits, misses, set int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
}

func (h *countingCacheHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.set++
}

func TestInstrument(t *testing.T) {
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc, "items")

	_, _, _ = c.Get(ctx, "k")
	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	_, _, _ = c.Get(ctx, "k")

	if hooks.hits != 1 || hooks.misses != 1 || hooks.set != 1 {
		t.Errorf("hits=%d misses=%d set=%d, want 1 each", hooks.hits, hooks.misses, hooks.set)
	}
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestDialRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := DialRedis(ctx, closedAddr(t)); err == nil {
		t.Error("DialRedis() to a closed port should fail")
	}
	if _, err := DialRedis(ctx, ""); err == nil {
		t.Error("DialRedis(\"\") should fail")
	}
}

func TestNewRedisClient(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"localhost:6379", "localhost:6379"},
		{"redis://cache.internal:6380/2", "cache.internal:6380"},
	}
	for _, tt := range tests {
		rdb, err := newRedisClient(tt.addr)
		if err != nil {
			t.Fatalf("newRedisClient(%q) error: %v", tt.addr, err)
		}
		if got := rdb.Options().Addr; got != tt.want {
			t.Errorf("Addr = %q, want %q", got, tt.want)
		}
		rdb.Close()
	}
}

func TestRedisCachePrefix(t *testing.T) {
	rdb, _ := newRedisClient("localhost:6379")
	c := NewRedisCache(rdb, WithKeyPrefix("test:"))
	defer c.Close()
	if got := c.key("items"); got != "test:items" {
		t.Errorf("key() = %q, want test:items", got)
	}
}
