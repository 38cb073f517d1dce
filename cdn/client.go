package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/resilience"
)

// DefaultBaseURL is the Cloudflare v4 API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the API root.
	// Default: DefaultBaseURL
	BaseURL string

	// HTTPClient performs the requests.
	// Default: a client with no timeout of its own
	HTTPClient *http.Client

	// Timeout bounds one purge call.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxInFlight bounds concurrent purge calls. Zero means unbounded.
	// Default: 0
	MaxInFlight int

	// RateLimit is purge calls per second. Zero disables rate limiting.
	// Callers queue for a token for up to the call timeout.
	// Default: 0
	RateLimit float64

	// RateBurst is the bucket size when RateLimit is set.
	// Default: 1
	RateBurst int

	// Middleware traces and measures each call.
	// Default: a no-op middleware
	Middleware *observe.Middleware
}

// Client issues cache purges against the Cloudflare API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Purge honors ctx cancellation and the configured timeout.
//   - Errors: ErrInvalidRequest, ErrTransport and ErrPurgeRejected are the
//     only outcomes for attempted calls; guard rejections from the
//     resilience package are returned wrapped in ErrTransport.
type Client struct {
	baseURL string
	http    *http.Client
	exec    *resilience.Executor
	mw      *observe.Middleware
}

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = resilience.DefaultTimeout
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NewMiddleware(nil, nil, nil)
	}

	opts := []resilience.ExecutorOption{resilience.WithTimeout(cfg.Timeout)}
	if cfg.MaxInFlight > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxInFlight,
			MaxWait:       cfg.Timeout,
		})))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.RateLimit,
			Burst:       cfg.RateBurst,
			WaitOnLimit: true,
			MaxWait:     cfg.Timeout,
		})))
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		exec:    resilience.NewExecutor(opts...),
		mw:      cfg.Middleware,
	}
}

// Endpoint returns the purge URL for zone.
func (c *Client) Endpoint(zone string) string {
	return c.baseURL + "/zones/" + url.PathEscape(zone) + "/purge_cache"
}

// Purge issues one purge request.
//
// The result is non-nil whenever a response body was read, so callers can
// log the raw payload of rejected purges and non-JSON answers alike.
func (c *Client) Purge(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	meta := observe.PurgeMeta{
		ID:   req.ID,
		Zone: req.Zone,
		Tags: req.Tags,
	}

	var result *PurgeResult
	err := c.mw.Wrap(func(ctx context.Context, _ observe.PurgeMeta) error {
		err := c.exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			result, err = c.do(ctx, req)
			return err
		})
		if resilience.IsRejected(err) {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return err
	})(ctx, meta)

	return result, err
}

func (c *Client) do(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	body, err := json.Marshal(purgeBody{Tags: req.Tags})
	if err != nil {
		return nil, fmt.Errorf("cdn: encode body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(req.Zone), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	result := &PurgeResult{StatusCode: resp.StatusCode, Raw: raw}
	if err := json.Unmarshal(raw, result); err != nil {
		return &PurgeResult{StatusCode: resp.StatusCode, Raw: raw}, fmt.Errorf("%w: status %d: decode body: %w", ErrTransport, resp.StatusCode, err)
	}
	if !result.Success {
		if summary := result.ErrorSummary(); summary != "" {
			return result, fmt.Errorf("%w: %s", ErrPurgeRejected, summary)
		}
		return result, fmt.Errorf("%w: status %d", ErrPurgeRejected, resp.StatusCode)
	}
	return result, nil
}
