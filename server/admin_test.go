package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/edgetag/auth"
	"github.com/jonwraymond/edgetag/hooks"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []hooks.InvalidationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev hooks.InvalidationEvent) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	p.events = append(p.events, ev)
	return 2, nil
}

func adminServer(t *testing.T, table *hooks.Table, opts ...Option) http.Handler {
	t.Helper()
	a, err := auth.NewAdminAuthenticator(auth.AdminConfig{APIKeys: []string{"admin-key"}})
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithAdmin(a), WithIDGenerator(func() string { return "evt-1" })}, opts...)
	s, err := New(Config{}, table, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s.Handler()
}

func postInvalidate(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/invalidate", strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInvalidate_FiresLocalHooks(t *testing.T) {
	table := hooks.NewTable()
	var got []hooks.InvalidationEvent
	table.OnAfterCacheInvalidated(func(_ context.Context, ev hooks.InvalidationEvent) {
		got = append(got, ev)
	})
	h := adminServer(t, table)

	rec := postInvalidate(h, "admin-key", `{"tags":["product-1"," ","category-3"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body)
	}
	var resp InvalidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "evt-1" || resp.Delivery != "local" {
		t.Errorf("response = %+v", resp)
	}
	if len(got) != 1 {
		t.Fatalf("hooks fired %d times, want 1", len(got))
	}
	if !slices.Equal(got[0].Tags, []string{"product-1", "category-3"}) {
		t.Errorf("tags = %v", got[0].Tags)
	}
	if !strings.HasPrefix(got[0].Source, "admin:key:") {
		t.Errorf("source = %q", got[0].Source)
	}
}

func TestInvalidate_PublishesToBus(t *testing.T) {
	table := hooks.NewTable()
	table.OnAfterCacheInvalidated(func(context.Context, hooks.InvalidationEvent) {
		t.Error("local hooks fired while a publisher is configured")
	})
	pub := &recordingPublisher{}
	h := adminServer(t, table, WithPublisher(pub))

	rec := postInvalidate(h, "admin-key", `{"tags":["a"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp InvalidateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Delivery != "bus" || resp.Receivers != 2 {
		t.Errorf("response = %+v", resp)
	}
	if len(pub.events) != 1 || pub.events[0].ID != "evt-1" {
		t.Errorf("published = %+v", pub.events)
	}
}

func TestInvalidate_PublishFailure(t *testing.T) {
	h := adminServer(t, hooks.NewTable(), WithPublisher(&recordingPublisher{err: errors.New("redis down")}))
	if rec := postInvalidate(h, "admin-key", `{"tags":["a"]}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}

func TestInvalidate_Rejections(t *testing.T) {
	h := adminServer(t, hooks.NewTable())
	tests := []struct {
		name string
		key  string
		body string
		want int
	}{
		{"no key", "", `{"tags":["a"]}`, http.StatusUnauthorized},
		{"wrong key", "nope", `{"tags":["a"]}`, http.StatusUnauthorized},
		{"bad json", "admin-key", `{`, http.StatusBadRequest},
		{"unknown field", "admin-key", `{"tag":["a"]}`, http.StatusBadRequest},
		{"empty tags", "admin-key", `{"tags":[]}`, http.StatusBadRequest},
		{"blank tags", "admin-key", `{"tags":[""," "]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postInvalidate(h, tt.key, tt.body); rec.Code != tt.want {
				t.Errorf("code = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestInvalidate_NotMountedWithoutAdmin(t *testing.T) {
	s, err := New(Config{}, hooks.NewTable())
	if err != nil {
		t.Fatal(err)
	}
	if rec := postInvalidate(s.Handler(), "admin-key", `{"tags":["a"]}`); rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
