package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, error) for internal errors and
//     (result, nil) for rejected credentials; check result.Authenticated.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the inputs of one authentication attempt.
type AuthRequest struct {
	Header http.Header
}

// FromHTTP builds an AuthRequest from an incoming request.
func FromHTTP(r *http.Request) *AuthRequest {
	return &AuthRequest{Header: r.Header}
}

// GetHeader returns the first value of key, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(key)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        AuthMethod
}

// AuthSuccess creates a successful result.
func AuthSuccess(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: id.Method}
}

// AuthFailure creates a failed result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
