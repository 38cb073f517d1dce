package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/edgetag/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EDGETAG_"

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is a YAML file. Empty skips the file.
	Path string

	// EnvFile is a dotenv file. A missing file is ignored.
	// Default: none
	EnvFile string

	// Resolver resolves secret references in credential fields.
	// Default: a resolver over secret.DefaultRegistry
	Resolver *secret.Resolver
}

// Load builds a validated Config from defaults, the YAML file, the dotenv
// file, the environment and secret references, in that order.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.Path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", opts.Path, err)
		}
	}

	if opts.EnvFile != "" {
		// godotenv does not override variables already set.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", opts.EnvFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	resolver := opts.Resolver
	if resolver == nil {
		var err error
		resolver, err = secret.DefaultRegistry.NewResolver(false, nil)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.resolveSecrets(ctx, resolver); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// It applies neither environment overrides nor secret resolution.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	fields := []struct {
		key string
		ptr *string
	}{
		{KeyAPIToken, &c.Cloudflare.APIToken},
		{KeyZoneIdentifier, &c.Cloudflare.Cache.ZoneIdentifier},
		{"events.redis.password", &c.Events.Redis.Password},
		{"admin.jwtSecret", &c.Admin.JWTSecret},
	}
	for _, f := range fields {
		if *f.ptr == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *f.ptr)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.key, err)
		}
		*f.ptr = v
	}

	if len(c.Admin.APIKeys) > 0 {
		keys, err := r.ResolveSlice(ctx, c.Admin.APIKeys)
		if err != nil {
			return fmt.Errorf("config: resolve admin.apiKeys: %w", err)
		}
		c.Admin.APIKeys = keys
	}
	return nil
}

// envBinding maps one environment variable onto one field.
type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

var envBindings = []envBinding{
	{"CLOUDFLARE_API_TOKEN", setString(func(c *Config) *string { return &c.Cloudflare.APIToken })},
	{"CLOUDFLARE_API_BASE_URL", setString(func(c *Config) *string { return &c.Cloudflare.APIBaseURL })},
	{"CLOUDFLARE_CACHE_ENABLED", setBool(func(c *Config) *bool { return &c.Cloudflare.Cache.Enabled })},
	{"CLOUDFLARE_CACHE_ZONE_IDENTIFIER", setString(func(c *Config) *string { return &c.Cloudflare.Cache.ZoneIdentifier })},
	{"CLOUDFLARE_CACHE_PURGE_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Cloudflare.Cache.PurgeTimeout })},
	{"CLOUDFLARE_CACHE_MAX_IN_FLIGHT", setInt(func(c *Config) *int { return &c.Cloudflare.Cache.MaxInFlight })},
	{"CLOUDFLARE_CACHE_RATE_LIMIT", setFloat(func(c *Config) *float64 { return &c.Cloudflare.Cache.RateLimit })},
	{"CLOUDFLARE_CACHE_RATE_BURST", setInt(func(c *Config) *int { return &c.Cloudflare.Cache.RateBurst })},
	{"SERVER_USE_OUTPUT_CACHE_TAGGING", setBool(func(c *Config) *bool { return &c.Server.UseOutputCacheTagging })},
	{"SERVER_AVAILABLE_CACHE_TAGS", setCSV(func(c *Config) *[]string { return &c.Server.AvailableCacheTags })},
	{"SERVER_ADDR", setString(func(c *Config) *string { return &c.Server.Addr })},
	{"SERVER_UPSTREAM", setString(func(c *Config) *string { return &c.Server.Upstream })},
	{"SERVER_UPSTREAM_TAG_HEADER", setString(func(c *Config) *string { return &c.Server.UpstreamTagHeader })},
	{"EVENTS_REDIS_ADDR", setString(func(c *Config) *string { return &c.Events.Redis.Addr })},
	{"EVENTS_REDIS_PASSWORD", setString(func(c *Config) *string { return &c.Events.Redis.Password })},
	{"EVENTS_REDIS_DB", setInt(func(c *Config) *int { return &c.Events.Redis.DB })},
	{"EVENTS_REDIS_CHANNEL", setString(func(c *Config) *string { return &c.Events.Redis.Channel })},
	{"ADMIN_API_KEYS", setCSV(func(c *Config) *[]string { return &c.Admin.APIKeys })},
	{"ADMIN_JWT_SECRET", setString(func(c *Config) *string { return &c.Admin.JWTSecret })},
	{"ADMIN_JWT_ISSUER", setString(func(c *Config) *string { return &c.Admin.JWTIssuer })},
	{"OBSERVE_SERVICE_NAME", setString(func(c *Config) *string { return &c.Observe.ServiceName })},
	{"OBSERVE_LOG_LEVEL", setString(func(c *Config) *string { return &c.Observe.Logging.Level })},
	{"OBSERVE_LOG_BACKEND", setString(func(c *Config) *string { return &c.Observe.Logging.Backend })},
	{"OBSERVE_LOG_FILE", setString(func(c *Config) *string { return &c.Observe.Logging.File })},
	{"OBSERVE_TRACING_EXPORTER", setString(func(c *Config) *string { return &c.Observe.Tracing.Exporter })},
	{"OBSERVE_METRICS_EXPORTER", setString(func(c *Config) *string { return &c.Observe.Metrics.Exporter })},
}

// applyEnv overlays EDGETAG_* variables. Set but unparsable values are errors.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(c, strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s%s: %w", ErrInvalidEnv, EnvPrefix, b.name, err))
		}
	}
	return errors.Join(errs...)
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// setCSV splits on commas and drops blanks. An empty value clears the list.
func setCSV(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		out := []string{}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*field(c) = out
		return nil
	}
}
