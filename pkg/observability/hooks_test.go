package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Retry hooks
	r := NoopRetryHooks{}
	r.OnRetry(ctx, "GET /items", 0, "server", time.Second)
	r.OnGiveUp(ctx, "GET /items", 4, "server")

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "items")
	c.OnCacheMiss(ctx, "items")
	c.OnCacheSet(ctx, "items", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "localhost:8099", "/items")
	h.OnResponse(ctx, "GET", "localhost:8099", "/items", 200, time.Second)
	h.OnError(ctx, "GET", "localhost:8099", "/items", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Retry().(NoopRetryHooks); !ok {
		t.Error("Retry() should return NoopRetryHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customRetry := &testRetryHooks{}
	SetRetryHooks(customRetry)
	if Retry() != customRetry {
		t.Error("SetRetryHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Retry().(NoopRetryHooks); !ok {
		t.Error("Reset() should restore NoopRetryHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRetryHooks{}
	SetRetryHooks(custom)

	// Setting nil should be ignored
	SetRetryHooks(nil)

	if Retry() != custom {
		t.Error("SetRetryHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testRetryHooks struct{ NoopRetryHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
