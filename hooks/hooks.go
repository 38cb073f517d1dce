package hooks

import (
	"context"
	"net/http"
	"sync"

	"github.com/jonwraymond/edgetag/tagset"
)

// ResponseHandle is the part of a response a render hook may touch.
// http.ResponseWriter satisfies it.
type ResponseHandle interface {
	Header() http.Header
}

// HeaderHandle adapts a bare header map, such as http.Response.Header,
// to ResponseHandle.
type HeaderHandle http.Header

// Header returns the underlying header map.
func (h HeaderHandle) Header() http.Header { return http.Header(h) }

// RenderContext carries what the rendering pipeline knows about a response.
type RenderContext struct {
	// Request is the request being answered. May be nil.
	Request *http.Request

	// Tags are the cache tags computed for the output. May be nil.
	Tags *tagset.Set
}

// InvalidationEvent asks for the given tags to be invalidated.
// Tags may be nil or empty.
type InvalidationEvent struct {
	ID     string   `json:"id,omitempty"`
	Tags   []string `json:"tags"`
	Source string   `json:"source,omitempty"`
}

// RenderHook runs before output is written and returns the output to use.
type RenderHook func(ctx context.Context, w ResponseHandle, rc RenderContext, output []byte) []byte

// InvalidationHook reacts to an invalidation event. It returns nothing;
// failures are the hook's own to report.
type InvalidationHook func(ctx context.Context, ev InvalidationEvent)

// Table holds registered hooks.
//
// Contract:
//   - Concurrency: registration and firing are safe for concurrent use.
//   - Ordering: hooks fire in registration order.
type Table struct {
	mu         sync.RWMutex
	render     []RenderHook
	invalidate []InvalidationHook
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// OnBeforeOutputRendered registers a render hook. Nil hooks are ignored.
func (t *Table) OnBeforeOutputRendered(h RenderHook) {
	if h == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render = append(t.render, h)
}

// OnAfterCacheInvalidated registers an invalidation hook. Nil hooks are ignored.
func (t *Table) OnAfterCacheInvalidated(h InvalidationHook) {
	if h == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invalidate = append(t.invalidate, h)
}

// FireBeforeOutputRendered chains output through every render hook.
// With no hooks it returns output unchanged.
func (t *Table) FireBeforeOutputRendered(ctx context.Context, w ResponseHandle, rc RenderContext, output []byte) []byte {
	t.mu.RLock()
	hooks := t.render
	t.mu.RUnlock()

	for _, h := range hooks {
		output = h(ctx, w, rc, output)
	}
	return output
}

// FireAfterCacheInvalidated calls every invalidation hook with ev.
func (t *Table) FireAfterCacheInvalidated(ctx context.Context, ev InvalidationEvent) {
	t.mu.RLock()
	hooks := t.invalidate
	t.mu.RUnlock()

	for _, h := range hooks {
		h(ctx, ev)
	}
}

// Counts returns the number of registered render and invalidation hooks.
func (t *Table) Counts() (render, invalidate int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.render), len(t.invalidate)
}
