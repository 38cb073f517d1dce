package config

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dotted keys read by the tagging and purge path.
const (
	KeyCacheEnabled          = "cloudflare.cache.enabled"
	KeyUseOutputCacheTagging = "server.useOutputCacheTagging"
	KeyAvailableCacheTags    = "server.availableCacheTags"
	KeyAPIToken              = "cloudflare.apiToken"
	KeyZoneIdentifier        = "cloudflare.cache.zoneIdentifier"
)

// secretKeys hold credentials and must be masked when displayed.
var secretKeys = []string{
	KeyAPIToken,
	"events.redis.password",
	"admin.apiKeys",
	"admin.jwtSecret",
}

// IsSecretKey reports whether key names a credential.
func IsSecretKey(key string) bool {
	return slices.Contains(secretKeys, key)
}

// Mask replaces set credential values in LookupRedacted output.
const Mask = "********"

// Lookup returns the value at a dotted key such as "cloudflare.cache.enabled".
// Section keys return nested maps. Unknown keys return ErrUnknownKey.
func (c *Config) Lookup(key string) (any, error) {
	tree, err := c.tree()
	if err != nil {
		return nil, err
	}
	return walk(tree, key)
}

// LookupRedacted is Lookup with every set credential replaced by Mask,
// including credentials nested under a requested section.
func (c *Config) LookupRedacted(key string) (any, error) {
	tree, err := c.tree()
	if err != nil {
		return nil, err
	}
	for _, sk := range secretKeys {
		parent, leaf := sk, ""
		if i := strings.LastIndexByte(sk, '.'); i >= 0 {
			parent, leaf = sk[:i], sk[i+1:]
		}
		node, err := walk(tree, parent)
		if err != nil {
			continue
		}
		if m, ok := node.(map[string]any); ok && !empty(m[leaf]) {
			m[leaf] = Mask
		}
	}
	return walk(tree, key)
}

func (c *Config) tree() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return tree, nil
}

func walk(tree map[string]any, key string) (any, error) {
	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		node, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
	}
	return node, nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}
