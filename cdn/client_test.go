package cdn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/resilience"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

func newCFServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: b})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestClient_PurgeRequestShape(t *testing.T) {
	srv, reqs := newCFServer(t, http.StatusOK, `{"success":true,"errors":[],"messages":[],"result":{"id":"abc"}}`)
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	res, err := c.Purge(context.Background(), PurgeRequest{
		Zone:  "zone-1",
		Token: "tok",
		Tags:  []string{"product/1"},
	})
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		t.Errorf("result = %+v", res)
	}

	if len(*reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*reqs))
	}
	r := (*reqs)[0]
	if r.Method != http.MethodPost {
		t.Errorf("method = %s", r.Method)
	}
	if r.Path != "/zones/zone-1/purge_cache" {
		t.Errorf("path = %s", r.Path)
	}
	for name, want := range map[string]string{
		"Authorization": "Bearer tok",
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	} {
		if got := r.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if string(r.Body) != `{"tags":["product/1"]}` {
		t.Errorf("body = %s", r.Body)
	}
}

func TestClient_PurgeRejected(t *testing.T) {
	payload := `{"success":false,"errors":[{"code":1012,"message":"Request must contain one of \"purge_everything\", \"files\", \"tags\""}],"messages":[]}`
	srv, _ := newCFServer(t, http.StatusBadRequest, payload)
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	res, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}})
	if !errors.Is(err, ErrPurgeRejected) {
		t.Fatalf("Purge() error = %v, want ErrPurgeRejected", err)
	}
	if res == nil || string(res.Raw) != payload {
		t.Fatalf("raw payload not returned: %+v", res)
	}
	if res.ErrorSummary() == "" || res.Errors[0].Code != 1012 {
		t.Errorf("errors not decoded: %+v", res.Errors)
	}
}

func TestClient_SuccessFalseWithoutErrors(t *testing.T) {
	srv, _ := newCFServer(t, http.StatusOK, `{"success":false}`)
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	_, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}})
	if !errors.Is(err, ErrPurgeRejected) {
		t.Fatalf("Purge() error = %v, want ErrPurgeRejected", err)
	}
}

func TestClient_NonJSONIsTransportFailure(t *testing.T) {
	srv, _ := newCFServer(t, http.StatusBadGateway, "<html>bad gateway</html>")
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	res, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Purge() error = %v, want ErrTransport", err)
	}
	if res == nil || string(res.Raw) != "<html>bad gateway</html>" {
		t.Errorf("raw body not returned: %+v", res)
	}
}

func TestClient_NetworkErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{BaseURL: url})
	res, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Purge() error = %v, want ErrTransport", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}})

	if !errors.Is(err, resilience.ErrTimeout) {
		t.Fatalf("Purge() error = %v, want ErrTimeout", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Purge() error = %v, want ErrTransport", err)
	}
}

func TestClient_InvalidRequestMakesNoCall(t *testing.T) {
	srv, reqs := newCFServer(t, http.StatusOK, `{"success":true}`)
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	for _, req := range []PurgeRequest{
		{Token: "t", Tags: []string{"a"}},
		{Zone: "z", Tags: []string{"a"}},
		{Zone: "z", Token: "t"},
	} {
		if _, err := c.Purge(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Purge(%+v) error = %v, want ErrInvalidRequest", req, err)
		}
	}
	if len(*reqs) != 0 {
		t.Errorf("expected no requests, got %d", len(*reqs))
	}
}

func TestClient_OneCallPerPurge(t *testing.T) {
	srv, reqs := newCFServer(t, http.StatusOK, `{"success":true}`)
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	tags := []string{"a", "b", "c", "d"}
	req := PurgeRequest{Zone: "z", Token: "t", Tags: tags}
	for i := 0; i < 2; i++ {
		if _, err := c.Purge(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}

	if len(*reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*reqs))
	}
	for _, r := range *reqs {
		var body purgeBody
		if err := json.Unmarshal(r.Body, &body); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(body.Tags, tags) {
			t.Errorf("tags = %v", body.Tags)
		}
	}
}

func TestClient_MaxInFlight(t *testing.T) {
	var active, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, MaxInFlight: 2, Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Purge(context.Background(), PurgeRequest{Zone: "z", Token: "t", Tags: []string{"a"}}); err != nil {
				t.Errorf("Purge() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", got)
	}
}

func TestClient_TracesPurge(t *testing.T) {
	srv, _ := newCFServer(t, http.StatusOK, `{"success":true}`)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	c := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Middleware: observe.NewMiddleware(observe.NewTracer(tp.Tracer("test")), nil, nil),
	})
	if _, err := c.Purge(context.Background(), PurgeRequest{ID: "p-1", Zone: "z", Token: "t", Tags: []string{"a"}}); err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "cdn.purge.cloudflare" {
		t.Fatalf("spans = %v", spans)
	}
}

func TestClient_Endpoint(t *testing.T) {
	c := NewClient(ClientConfig{})
	want := "https://api.cloudflare.com/client/v4/zones/abc/purge_cache"
	if got := c.Endpoint("abc"); got != want {
		t.Errorf("Endpoint() = %q, want %q", got, want)
	}

	c = NewClient(ClientConfig{BaseURL: "http://localhost:9000/v4/"})
	if got := c.Endpoint("a/b"); got != "http://localhost:9000/v4/zones/a%2Fb/purge_cache" {
		t.Errorf("Endpoint() = %q", got)
	}
}
