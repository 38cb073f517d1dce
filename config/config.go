package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/edgetag/observe"
)

// Config is the complete service configuration.
type Config struct {
	Cloudflare CloudflareConfig `yaml:"cloudflare"`
	Server     ServerConfig     `yaml:"server"`
	Events     EventsConfig     `yaml:"events"`
	Admin      AdminConfig      `yaml:"admin"`
	Observe    ObserveConfig    `yaml:"observe"`
}

// CloudflareConfig holds the Cloudflare API settings.
type CloudflareConfig struct {
	// APIToken is the bearer token for the purge API.
	APIToken string `yaml:"apiToken"`

	// APIBaseURL is the API root.
	// Default: https://api.cloudflare.com/client/v4
	APIBaseURL string `yaml:"apiBaseURL"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig holds the edge cache settings.
type CacheConfig struct {
	// Enabled turns both tag emission and purging on.
	Enabled bool `yaml:"enabled"`

	// ZoneIdentifier is the Cloudflare zone whose cache is purged.
	ZoneIdentifier string `yaml:"zoneIdentifier"`

	// PurgeTimeout bounds one purge call.
	// Default: 10s
	PurgeTimeout time.Duration `yaml:"purgeTimeout"`

	// MaxInFlight bounds concurrent purge calls. Zero means unbounded.
	// Default: 8
	MaxInFlight int `yaml:"maxInFlight"`

	// RateLimit is purge calls per second. Zero disables rate limiting.
	// Default: 0
	RateLimit float64 `yaml:"rateLimit"`

	// RateBurst is the token bucket size when RateLimit is set.
	// Default: 1
	RateBurst int `yaml:"rateBurst"`
}

// ServerConfig holds the HTTP server and tagging settings.
type ServerConfig struct {
	// UseOutputCacheTagging enables the Cache-Tag header on rendered output.
	UseOutputCacheTagging bool `yaml:"useOutputCacheTagging"`

	// AvailableCacheTags is the purge allow-list of tags and tag prefixes.
	// Default: empty (nothing may be purged)
	AvailableCacheTags []string `yaml:"availableCacheTags"`

	// Addr is the listen address.
	// Default: :8080
	Addr string `yaml:"addr"`

	// Upstream is the origin the server proxies rendered pages from.
	// Empty disables the proxy.
	Upstream string `yaml:"upstream"`

	// UpstreamTagHeader carries the render context tags from the origin.
	// Default: X-Render-Cache-Tags
	UpstreamTagHeader string `yaml:"upstreamTagHeader"`
}

// EventsConfig holds the invalidation event transport settings.
type EventsConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis pub/sub event bus.
// An empty Addr disables the bus.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Channel is the pub/sub channel name.
	// Default: edgetag:invalidations
	Channel string `yaml:"channel"`
}

// AdminConfig protects the admin API. With no keys and no secret the
// admin API is not mounted.
type AdminConfig struct {
	APIKeys   []string `yaml:"apiKeys"`
	JWTSecret string   `yaml:"jwtSecret"`
	JWTIssuer string   `yaml:"jwtIssuer"`
}

// ObserveConfig holds telemetry settings.
type ObserveConfig struct {
	// ServiceName is reported on logs, spans and metrics.
	// Default: edgetag
	ServiceName string `yaml:"serviceName"`

	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Backend is json or zap.
	// Default: json
	Backend string `yaml:"backend"`

	// File is a log file path, or stderr/stdout.
	// Default: stderr
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// TracingConfig configures tracing. Exporter "none" disables it.
type TracingConfig struct {
	// Default: none
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"samplePct"`
}

// MetricsConfig configures metrics. Exporter "none" disables it.
type MetricsConfig struct {
	// Default: prometheus
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	return Config{
		Cloudflare: CloudflareConfig{
			APIBaseURL: "https://api.cloudflare.com/client/v4",
			Cache: CacheConfig{
				PurgeTimeout: 10 * time.Second,
				MaxInFlight:  8,
				RateBurst:    1,
			},
		},
		Server: ServerConfig{
			AvailableCacheTags: []string{},
			Addr:               ":8080",
			UpstreamTagHeader:  "X-Render-Cache-Tags",
		},
		Events: EventsConfig{
			Redis: RedisConfig{Channel: "edgetag:invalidations"},
		},
		Observe: ObserveConfig{
			ServiceName: "edgetag",
			Logging:     LoggingConfig{Level: "info", Backend: "json"},
			Tracing:     TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     MetricsConfig{Exporter: "prometheus"},
		},
	}
}

// Validate checks structural validity. All problems are reported together.
// Absent credentials are not checked here.
func (c *Config) Validate() error {
	var errs []error

	cf := c.Cloudflare
	if u, err := url.Parse(cf.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cf.APIBaseURL))
	}
	if cf.Cache.PurgeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w, got %s", ErrInvalidTimeout, cf.Cache.PurgeTimeout))
	}
	if cf.Cache.MaxInFlight < 0 || cf.Cache.RateLimit < 0 || cf.Cache.RateBurst < 0 {
		errs = append(errs, ErrInvalidLimit)
	}

	for i, entry := range c.Server.AvailableCacheTags {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Errorf("%w at index %d", ErrEmptyAllowListEntry, i))
		}
	}

	if c.Server.Upstream != "" {
		if u, err := url.Parse(c.Server.Upstream); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: invalid server.upstream %q", c.Server.Upstream))
		}
	}

	obs := c.Observe.ToObserve("")
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// MissingCredentials returns nil when both purge credentials are set.
// Otherwise it returns both dotted key names, which is how the missing
// configuration is reported.
func (c *Config) MissingCredentials() []string {
	if strings.TrimSpace(c.Cloudflare.APIToken) != "" && strings.TrimSpace(c.Cloudflare.Cache.ZoneIdentifier) != "" {
		return nil
	}
	return []string{KeyAPIToken, KeyZoneIdentifier}
}

// AdminEnabled reports whether any admin credential is configured.
func (c *Config) AdminEnabled() bool {
	return len(c.Admin.APIKeys) > 0 || c.Admin.JWTSecret != ""
}

// ToObserve converts the telemetry settings to an observe.Config.
func (o ObserveConfig) ToObserve(version string) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Exporter != "" && o.Tracing.Exporter != "none",
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Exporter != "" && o.Metrics.Exporter != "none",
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.Logging.Level,
			Backend: o.Logging.Backend,
			Output: observe.OutputConfig{
				Path:       o.Logging.File,
				MaxSizeMB:  o.Logging.MaxSizeMB,
				MaxBackups: o.Logging.MaxBackups,
				MaxAgeDays: o.Logging.MaxAgeDays,
				Compress:   o.Logging.Compress,
			},
		},
	}
}
