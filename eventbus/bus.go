package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
)

// DefaultChannel is used when Config.Channel is empty.
const DefaultChannel = "edgetag:invalidations"

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Channel is the pub/sub channel.
	// Default: DefaultChannel
	Channel string
}

// Bus publishes and subscribes to invalidation events.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Publish, Subscribe and Ping honor ctx.
//   - Errors: Redis failures are wrapped; malformed events are logged and
//     skipped, never returned.
type Bus struct {
	client  *redis.Client
	channel string
	logger  observe.Logger
	owned   bool
}

// New connects lazily to the Redis server named by cfg.
func New(cfg Config, logger observe.Logger) (*Bus, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	b := NewWithClient(client, cfg.Channel, logger)
	b.owned = true
	return b, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client *redis.Client, channel string, logger observe.Logger) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Bus{
		client:  client,
		channel: channel,
		logger:  logger.With(observe.F("component", "eventbus"), observe.F("channel", channel)),
	}
}

// Channel returns the pub/sub channel name.
func (b *Bus) Channel() string { return b.channel }

// Publish sends ev and returns how many subscribers received it.
func (b *Bus) Publish(ctx context.Context, ev hooks.InvalidationEvent) (int64, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("eventbus: encode event: %w", err)
	}
	n, err := b.client.Publish(ctx, b.channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("eventbus: publish: %w", err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (b *Bus) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("eventbus: ping: %w", err)
	}
	return nil
}

// Subscribe subscribes to the channel and returns once Redis has confirmed
// the subscription, so no event published afterwards is missed.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("eventbus: subscribe %s: %w", b.channel, err)
	}
	return &Subscription{ps: ps, logger: b.logger}, nil
}

// Close closes the Redis client if New created it.
func (b *Bus) Close() error {
	if !b.owned {
		return nil
	}
	return b.client.Close()
}

// Subscription delivers events from one channel subscription.
type Subscription struct {
	ps     *redis.PubSub
	logger observe.Logger
}

// Run calls handler for every event until ctx ends. It returns nil on
// cancellation and ErrClosed if the subscription closes underneath it.
func (s *Subscription) Run(ctx context.Context, handler hooks.InvalidationHook) error {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				s.logger.Warn(ctx, "dropping malformed invalidation event",
					observe.F("error", err),
					observe.F("payload", msg.Payload),
				)
				continue
			}
			s.logger.Debug(ctx, "invalidation event received",
				observe.F("event_id", ev.ID),
				observe.F("cache_tags", ev.Tags),
			)
			handler(ctx, ev)
		}
	}
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	return s.ps.Close()
}

// Decode parses one event payload.
func Decode(payload []byte) (hooks.InvalidationEvent, error) {
	var ev hooks.InvalidationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return hooks.InvalidationEvent{}, fmt.Errorf("eventbus: decode event: %w", err)
	}
	return ev, nil
}
