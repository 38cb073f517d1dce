package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonwraymond/edgetag/cdn"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/tagset"
)

// missingCredentialsMsg names both keys whichever one is absent.
const missingCredentialsMsg = "One or more config parameters are missing: cloudflare.apiToken, cloudflare.cache.zoneIdentifier"

// Config is the dispatcher's view of the configuration.
type Config struct {
	// CacheEnabled mirrors cloudflare.cache.enabled.
	CacheEnabled bool

	// UseOutputCacheTagging mirrors server.useOutputCacheTagging.
	UseOutputCacheTagging bool

	// AvailableCacheTags mirrors server.availableCacheTags.
	// Default: empty, which lets nothing through.
	AvailableCacheTags []string

	// APIToken mirrors cloudflare.apiToken.
	APIToken string

	// ZoneIdentifier mirrors cloudflare.cache.zoneIdentifier.
	ZoneIdentifier string
}

// Purger issues one purge request. *cdn.Client implements it.
type Purger interface {
	Purge(ctx context.Context, req cdn.PurgeRequest) (*cdn.PurgeResult, error)
}

var _ Purger = (*cdn.Client)(nil)

// Outcome describes how one event ended.
type Outcome struct {
	ID    string
	State State

	// Tags are the tags that survived the allow-list.
	Tags []string

	// Result is the API response, when one was read.
	Result *cdn.PurgeResult

	// Err is nil only for StateSucceeded.
	Err error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default: observe.NopLogger().
func WithLogger(l observe.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder. Default: observe.NoopMetrics().
func WithMetrics(m observe.Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithOnResult registers a callback for every terminal outcome except
// StateDisabled. It runs on the purge goroutine for dispatched events.
func WithOnResult(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.onResult = fn
	}
}

// WithIDGenerator sets the purge id generator. Default: uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// Dispatcher handles invalidation events.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent events share no
//     state beyond the WaitGroup tracking detached purges.
//   - Context: the purge runs on a context detached from the caller's
//     cancellation; the purger bounds it with its own timeout.
//   - Errors: never returned. Outcomes are reported through logs, metrics
//     and the optional result callback.
type Dispatcher struct {
	cfg      Config
	allow    tagset.AllowList
	purger   Purger
	logger   observe.Logger
	metrics  observe.Metrics
	onResult func(Outcome)
	newID    func() string

	wg sync.WaitGroup
}

// New creates a Dispatcher. purger must not be nil.
func New(cfg Config, purger Purger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		allow:   tagset.AllowList(cfg.AvailableCacheTags),
		purger:  purger,
		logger:  observe.NopLogger(),
		metrics: observe.NoopMetrics(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(observe.F("component", "dispatcher"))
	return d
}

// Enabled reports whether both feature flags are on.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.CacheEnabled && d.cfg.UseOutputCacheTagging
}

// Dispatch handles one event carrying tags. It returns the state reached
// before any network I/O: StateDisabled, StateShortCircuited,
// StateCredentialMissing or StateDispatching.
func (d *Dispatcher) Dispatch(ctx context.Context, tags []string) State {
	return d.DispatchEvent(ctx, hooks.InvalidationEvent{Tags: tags})
}

// DispatchEvent is Dispatch for a full event. A non-empty ev.ID is used as
// the purge id.
func (d *Dispatcher) DispatchEvent(ctx context.Context, ev hooks.InvalidationEvent) State {
	if !d.Enabled() {
		return StateDisabled
	}

	id := ev.ID
	if id == "" {
		id = d.newID()
	}
	logger := d.logger.With(observe.F("purge_id", id))
	if ev.Source != "" {
		logger = logger.With(observe.F("source", ev.Source))
	}

	filtered := d.allow.Filter(ev.Tags)
	if len(filtered) == 0 {
		logger.Error(ctx, "No available cache tags specified",
			observe.F("requested_tags", ev.Tags),
			observe.F("available_cache_tags", []string(d.allow)),
		)
		d.finish(ctx, Outcome{ID: id, State: StateShortCircuited, Err: ErrNoEligibleTags})
		return StateShortCircuited
	}

	if strings.TrimSpace(d.cfg.APIToken) == "" || strings.TrimSpace(d.cfg.ZoneIdentifier) == "" {
		logger.Error(ctx, missingCredentialsMsg, observe.F("cache_tags", filtered))
		d.finish(ctx, Outcome{ID: id, State: StateCredentialMissing, Tags: filtered, Err: ErrMissingCredentials})
		return StateCredentialMissing
	}

	req := cdn.PurgeRequest{
		ID:    id,
		Zone:  d.cfg.ZoneIdentifier,
		Token: d.cfg.APIToken,
		Tags:  filtered,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.purge(context.WithoutCancel(ctx), logger, req)
	}()
	return StateDispatching
}

// Handle is an InvalidationHook. Register it with hooks.Table.
func (d *Dispatcher) Handle(ctx context.Context, ev hooks.InvalidationEvent) {
	d.DispatchEvent(ctx, ev)
}

func (d *Dispatcher) purge(ctx context.Context, logger observe.Logger, req cdn.PurgeRequest) {
	joined := tagset.Join(req.Tags)
	res, err := d.purger.Purge(ctx, req)

	if err == nil && res != nil && res.Success {
		logger.Info(ctx, fmt.Sprintf("Tags invalidated successfully for [%s] in the Cloudflare cache", joined),
			observe.F("cache_tags", req.Tags),
		)
		d.finish(ctx, Outcome{ID: req.ID, State: StateSucceeded, Tags: req.Tags, Result: res})
		return
	}

	if err == nil {
		err = cdn.ErrPurgeRejected
	}
	fields := []observe.Field{observe.F("error", err)}
	if res != nil {
		fields = append(fields, observe.F("status", res.StatusCode), observe.F("response", string(res.Raw)))
	}
	logger.Error(ctx, "Cloudflare purge response", fields...)
	logger.Error(ctx, fmt.Sprintf("Couldn't purge tags: [%s] in the Cloudflare cache", joined),
		observe.F("cache_tags", req.Tags),
	)
	d.finish(ctx, Outcome{ID: req.ID, State: StateFailed, Tags: req.Tags, Result: res, Err: err})
}

func (d *Dispatcher) finish(ctx context.Context, o Outcome) {
	d.metrics.RecordOutcome(ctx, o.State.String())
	if d.onResult != nil {
		d.onResult(o)
	}
}

// Wait blocks until every detached purge has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for detached purges until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
