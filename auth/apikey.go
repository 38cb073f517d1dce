package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName is the header carrying the key.
	// Default: "X-API-Key"
	HeaderName string

	// Keys are the accepted plaintext keys. Only their hashes are kept.
	Keys []string
}

// APIKeyAuthenticator accepts a fixed set of keys.
type APIKeyAuthenticator struct {
	header string
	hashes [][sha256.Size]byte
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)

// NewAPIKeyAuthenticator creates an authenticator. Blank keys are ignored.
func NewAPIKeyAuthenticator(cfg APIKeyConfig) *APIKeyAuthenticator {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-API-Key"
	}
	a := &APIKeyAuthenticator{header: cfg.HeaderName}
	for _, k := range cfg.Keys {
		if k = strings.TrimSpace(k); k != "" {
			a.hashes = append(a.hashes, sha256.Sum256([]byte(k)))
		}
	}
	return a
}

// Len returns the number of accepted keys.
func (a *APIKeyAuthenticator) Len() int { return len(a.hashes) }

func (a *APIKeyAuthenticator) Name() string { return string(AuthMethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(req *AuthRequest) bool {
	return req.GetHeader(a.header) != ""
}

// Authenticate compares the presented key against every accepted key in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.GetHeader(a.header))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodAPIKey), nil
	}

	sum := sha256.Sum256([]byte(key))
	match := 0
	for _, h := range a.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h[:])
	}
	if match != 1 {
		return AuthFailure(ErrInvalidCredentials, AuthMethodAPIKey), nil
	}

	return AuthSuccess(&Identity{
		Principal: "key:" + HashAPIKey(key)[:12],
		Method:    AuthMethodAPIKey,
	}), nil
}

// HashAPIKey returns the hex SHA-256 of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
