package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/edgetag/cdn"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
)

// fakePurger records requests and answers with a fixed result.
type fakePurger struct {
	mu     sync.Mutex
	reqs   []cdn.PurgeRequest
	result *cdn.PurgeResult
	err    error
	block  chan struct{}
}

func (f *fakePurger) Purge(ctx context.Context, req cdn.PurgeRequest) (*cdn.PurgeResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakePurger) requests() []cdn.PurgeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reqs)
}

func okPurger() *fakePurger {
	return &fakePurger{result: &cdn.PurgeResult{Success: true, Raw: []byte(`{"success":true}`)}}
}

func fullConfig(allow ...string) Config {
	return Config{
		CacheEnabled:          true,
		UseOutputCacheTagging: true,
		AvailableCacheTags:    allow,
		APIToken:              "token",
		ZoneIdentifier:        "zone-1",
	}
}

// syncBuffer guards a log buffer written from purge goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func newTestDispatcher(cfg Config, p Purger, opts ...Option) (*Dispatcher, *syncBuffer) {
	logs := &syncBuffer{}
	opts = append([]Option{WithLogger(observe.NewLoggerWithWriter("debug", logs))}, opts...)
	return New(cfg, p, opts...), logs
}

func TestDispatch_FiltersToAllowListAndPosts(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"errors":[],"messages":[]}`)
	}))
	defer srv.Close()

	client := cdn.NewClient(cdn.ClientConfig{BaseURL: srv.URL})
	d, _ := newTestDispatcher(fullConfig("product"), client)

	state := d.Dispatch(context.Background(), []string{"product/1", "category/5"})
	if state != StateDispatching {
		t.Fatalf("state = %v", state)
	}
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 POST, got %d", len(bodies))
	}
	if bodies[0] != `{"tags":["product/1"]}` {
		t.Errorf("body = %s", bodies[0])
	}
}

func TestDispatch_NoEligibleTagsLogsAndSkips(t *testing.T) {
	p := okPurger()
	var outcomes []Outcome
	d, logs := newTestDispatcher(fullConfig("product", "category"), p,
		WithOnResult(func(o Outcome) { outcomes = append(outcomes, o) }))

	state := d.Dispatch(context.Background(), []string{"xyz"})
	d.Wait()

	if state != StateShortCircuited {
		t.Fatalf("state = %v", state)
	}
	if len(p.requests()) != 0 {
		t.Fatal("no purge should be issued")
	}
	entries := logs.entries(t)
	if len(entries) != 1 || entries[0]["level"] != "error" || entries[0]["msg"] != "No available cache tags specified" {
		t.Errorf("logs = %v", entries)
	}
	if len(outcomes) != 1 || !errors.Is(outcomes[0].Err, ErrNoEligibleTags) {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestDispatch_EmptyOrAbsentTagsShortCircuit(t *testing.T) {
	p := okPurger()
	d, _ := newTestDispatcher(fullConfig("product"), p)

	for _, tags := range [][]string{nil, {}} {
		if state := d.Dispatch(context.Background(), tags); state != StateShortCircuited {
			t.Errorf("Dispatch(%v) = %v", tags, state)
		}
	}
	if len(p.requests()) != 0 {
		t.Fatal("no purge should be issued")
	}
}

func TestDispatch_EmptyAllowListPurgesNothing(t *testing.T) {
	p := okPurger()
	d, _ := newTestDispatcher(fullConfig(), p)

	if state := d.Dispatch(context.Background(), []string{"product/1"}); state != StateShortCircuited {
		t.Fatalf("state = %v", state)
	}
	if len(p.requests()) != 0 {
		t.Fatal("no purge should be issued")
	}
}

func TestDispatch_MissingCredentialsLogsBothKeys(t *testing.T) {
	tests := []struct {
		name  string
		token string
		zone  string
	}{
		{"token missing", "", "zone-1"},
		{"zone missing", "token", ""},
		{"both missing", "", ""},
		{"blank token", "  ", "zone-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullConfig("product")
			cfg.APIToken, cfg.ZoneIdentifier = tt.token, tt.zone
			p := okPurger()
			d, logs := newTestDispatcher(cfg, p)

			if state := d.Dispatch(context.Background(), []string{"product/1"}); state != StateCredentialMissing {
				t.Fatalf("state = %v", state)
			}
			d.Wait()

			if len(p.requests()) != 0 {
				t.Fatal("no purge should be issued")
			}
			out := logs.String()
			if !strings.Contains(out, "cloudflare.apiToken") || !strings.Contains(out, "cloudflare.cache.zoneIdentifier") {
				t.Errorf("log must name both keys: %s", out)
			}
			if !strings.Contains(out, `"level":"error"`) {
				t.Errorf("expected error level: %s", out)
			}
		})
	}
}

func TestDispatch_SuccessLogsBracketedTags(t *testing.T) {
	p := okPurger()
	var got Outcome
	d, logs := newTestDispatcher(fullConfig("product"), p, WithOnResult(func(o Outcome) { got = o }))

	d.Dispatch(context.Background(), []string{"product/1"})
	d.Wait()

	if got.State != StateSucceeded || got.Err != nil {
		t.Fatalf("outcome = %+v", got)
	}
	var found bool
	for _, e := range logs.entries(t) {
		if e["level"] == "info" && e["msg"] == "Tags invalidated successfully for [product/1] in the Cloudflare cache" {
			found = true
		}
	}
	if !found {
		t.Errorf("no info log naming product/1: %s", logs.String())
	}
}

func TestDispatch_DisabledIsSilent(t *testing.T) {
	for _, cfg := range []Config{
		{UseOutputCacheTagging: true, AvailableCacheTags: []string{"product"}, APIToken: "t", ZoneIdentifier: "z"},
		{CacheEnabled: true, AvailableCacheTags: []string{"product"}, APIToken: "t", ZoneIdentifier: "z"},
		{},
	} {
		p := okPurger()
		called := false
		d, logs := newTestDispatcher(cfg, p, WithOnResult(func(Outcome) { called = true }))

		if state := d.Dispatch(context.Background(), []string{"product/1", "xyz"}); state != StateDisabled {
			t.Errorf("state = %v", state)
		}
		d.Wait()

		if len(p.requests()) != 0 || called || logs.String() != "" {
			t.Errorf("disabled dispatcher had side effects: reqs=%d called=%v logs=%q", len(p.requests()), called, logs.String())
		}
	}
}

func TestDispatch_FailureLogsRawPayloadAndTags(t *testing.T) {
	raw := `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`
	p := &fakePurger{
		result: &cdn.PurgeResult{Success: false, StatusCode: 403, Raw: []byte(raw)},
		err:    cdn.ErrPurgeRejected,
	}
	var got Outcome
	d, logs := newTestDispatcher(fullConfig("product"), p, WithOnResult(func(o Outcome) { got = o }))

	d.Dispatch(context.Background(), []string{"product/1", "product/2"})
	d.Wait()

	if got.State != StateFailed || !errors.Is(got.Err, cdn.ErrPurgeRejected) {
		t.Fatalf("outcome = %+v", got)
	}
	out := logs.String()
	if !strings.Contains(out, "Authentication error") {
		t.Errorf("raw payload not logged: %s", out)
	}
	if !strings.Contains(out, "Couldn't purge tags: [product/1,product/2] in the Cloudflare cache") {
		t.Errorf("failed tags not logged: %s", out)
	}
}

func TestDispatch_TransportFailure(t *testing.T) {
	p := &fakePurger{err: cdn.ErrTransport}
	var got Outcome
	d, logs := newTestDispatcher(fullConfig("product"), p, WithOnResult(func(o Outcome) { got = o }))

	d.Dispatch(context.Background(), []string{"product/1"})
	d.Wait()

	if got.State != StateFailed || !errors.Is(got.Err, cdn.ErrTransport) {
		t.Fatalf("outcome = %+v", got)
	}
	if !strings.Contains(logs.String(), "Couldn't purge tags: [product/1] in the Cloudflare cache") {
		t.Errorf("logs = %s", logs.String())
	}
}

func TestDispatch_SuccessFalseWithoutErrorIsFailure(t *testing.T) {
	p := &fakePurger{result: &cdn.PurgeResult{Success: false}}
	var got Outcome
	d, _ := newTestDispatcher(fullConfig("product"), p, WithOnResult(func(o Outcome) { got = o }))

	d.Dispatch(context.Background(), []string{"product/1"})
	d.Wait()

	if got.State != StateFailed || !errors.Is(got.Err, cdn.ErrPurgeRejected) {
		t.Fatalf("outcome = %+v", got)
	}
}

func TestDispatch_IdempotenceIssuesIndependentRequests(t *testing.T) {
	p := okPurger()
	ids := []string{"a", "b"}
	d, _ := newTestDispatcher(fullConfig("product", "category/"), p, WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	tags := []string{"product/1", "category/5", "other"}
	d.Dispatch(context.Background(), tags)
	d.Dispatch(context.Background(), tags)
	d.Wait()

	reqs := p.requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	for _, r := range reqs {
		if !slices.Equal(r.Tags, []string{"product/1", "category/5"}) || r.Zone != "zone-1" || r.Token != "token" {
			t.Errorf("request = %+v", r)
		}
	}
	if reqs[0].ID == reqs[1].ID {
		t.Error("each dispatch should get its own id")
	}
}

func TestDispatch_FilterMatchesDefinition(t *testing.T) {
	allow := []string{"product", "cat/", "exact"}
	input := []string{"product", "product/1", "productive", "cat/5", "cat", "exact", "exactly", "nope", ""}

	var want []string
	for _, tag := range input {
		for _, a := range allow {
			if tag == a || strings.HasPrefix(tag, a) {
				want = append(want, tag)
				break
			}
		}
	}

	p := okPurger()
	d, _ := newTestDispatcher(fullConfig(allow...), p)
	d.Dispatch(context.Background(), input)
	d.Wait()

	reqs := p.requests()
	if len(reqs) != 1 || !slices.Equal(reqs[0].Tags, want) {
		t.Fatalf("purged %v, want %v", reqs, want)
	}
}

func TestDispatch_DoesNotBlockCaller(t *testing.T) {
	p := okPurger()
	p.block = make(chan struct{})
	d, _ := newTestDispatcher(fullConfig("product"), p)

	done := make(chan State, 1)
	go func() { done <- d.Dispatch(context.Background(), []string{"product/1"}) }()

	select {
	case state := <-done:
		if state != StateDispatching {
			t.Errorf("state = %v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the purge call")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want DeadlineExceeded while purge in flight", err)
	}

	close(p.block)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestDispatch_PurgeSurvivesCallerCancellation(t *testing.T) {
	var purgeCtxErr error
	p := &fakePurger{result: &cdn.PurgeResult{Success: true}}
	wrapped := purgerFunc(func(ctx context.Context, req cdn.PurgeRequest) (*cdn.PurgeResult, error) {
		time.Sleep(5 * time.Millisecond)
		purgeCtxErr = ctx.Err()
		return p.Purge(ctx, req)
	})
	d, _ := newTestDispatcher(fullConfig("product"), wrapped)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, []string{"product/1"})
	cancel()
	d.Wait()

	if purgeCtxErr != nil {
		t.Errorf("purge context was cancelled with the caller: %v", purgeCtxErr)
	}
}

type purgerFunc func(ctx context.Context, req cdn.PurgeRequest) (*cdn.PurgeResult, error)

func (f purgerFunc) Purge(ctx context.Context, req cdn.PurgeRequest) (*cdn.PurgeResult, error) {
	return f(ctx, req)
}

func TestHandle_AsInvalidationHook(t *testing.T) {
	p := okPurger()
	d, logs := newTestDispatcher(fullConfig("product"), p)

	table := hooks.NewTable()
	table.OnAfterCacheInvalidated(d.Handle)
	table.FireAfterCacheInvalidated(context.Background(), hooks.InvalidationEvent{
		ID:     "evt-42",
		Tags:   []string{"product/9"},
		Source: "admin",
	})
	d.Wait()

	reqs := p.requests()
	if len(reqs) != 1 || reqs[0].ID != "evt-42" {
		t.Fatalf("requests = %+v", reqs)
	}
	if !strings.Contains(logs.String(), `"purge_id":"evt-42"`) || !strings.Contains(logs.String(), `"source":"admin"`) {
		t.Errorf("logs missing event metadata: %s", logs.String())
	}
}

func TestState_String(t *testing.T) {
	if StateShortCircuited.String() != "short_circuited" || State(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if !StateFailed.Terminal() || StateDispatching.Terminal() || StateIdle.Terminal() {
		t.Error("unexpected terminal classification")
	}
}

func TestDispatch_NeverReturnsInternalPhases(t *testing.T) {
	cases := []struct {
		cfg  Config
		tags []string
	}{
		{Config{}, []string{"product/1"}},
		{fullConfig("product"), nil},
		{fullConfig("product"), []string{"xyz"}},
		{Config{CacheEnabled: true, UseOutputCacheTagging: true, AvailableCacheTags: []string{"product"}}, []string{"product/1"}},
		{fullConfig("product"), []string{"product/1"}},
	}
	var outcomes []State
	var mu sync.Mutex
	for _, c := range cases {
		d, _ := newTestDispatcher(c.cfg, okPurger(), WithOnResult(func(o Outcome) {
			mu.Lock()
			outcomes = append(outcomes, o.State)
			mu.Unlock()
		}))
		state := d.Dispatch(context.Background(), c.tags)
		d.Wait()
		if state == StateIdle || state == StateFiltering {
			t.Errorf("Dispatch(%v) = %v", c.tags, state)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	for _, s := range outcomes {
		if !s.Terminal() {
			t.Errorf("outcome state %v is not terminal", s)
		}
	}
}
