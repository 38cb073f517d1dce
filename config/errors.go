package config

import "errors"

var (
	// ErrInvalidTimeout is returned for a non-positive purge timeout.
	ErrInvalidTimeout = errors.New("config: purge timeout must be positive")

	// ErrInvalidBaseURL is returned when cloudflare.apiBaseURL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("config: invalid cloudflare api base url")

	// ErrEmptyAllowListEntry is returned for blank server.availableCacheTags entries.
	// A blank prefix would allow every tag.
	ErrEmptyAllowListEntry = errors.New("config: empty entry in server.availableCacheTags")

	// ErrInvalidLimit is returned for negative in-flight or rate limits.
	ErrInvalidLimit = errors.New("config: limits must not be negative")

	// ErrInvalidEnv is returned when an EDGETAG_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("config: invalid environment override")

	// ErrUnknownKey is returned by Lookup for keys that do not exist.
	ErrUnknownKey = errors.New("config: unknown key")
)
