package auth

import "context"

// CompositeAuthenticator delegates to the first authenticator that supports
// the request.
type CompositeAuthenticator struct {
	Authenticators []Authenticator
}

var _ Authenticator = (*CompositeAuthenticator)(nil)

// NewCompositeAuthenticator creates a composite. Nil entries are skipped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.Authenticators = append(c.Authenticators, a)
		}
	}
	return c
}

func (c *CompositeAuthenticator) Name() string { return "composite" }

func (c *CompositeAuthenticator) Supports(req *AuthRequest) bool {
	for _, a := range c.Authenticators {
		if a.Supports(req) {
			return true
		}
	}
	return false
}

// Authenticate never falls through to a later authenticator once one has
// rejected the credentials.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	for _, a := range c.Authenticators {
		if a.Supports(req) {
			return a.Authenticate(ctx, req)
		}
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

// AdminConfig lists the admin credential sources.
type AdminConfig struct {
	APIKeys   []string
	JWTSecret string
	JWTIssuer string
}

// NewAdminAuthenticator combines the configured sources. It returns
// ErrNotConfigured when neither keys nor a token secret are set.
func NewAdminAuthenticator(cfg AdminConfig) (*CompositeAuthenticator, error) {
	var auths []Authenticator
	if keys := NewAPIKeyAuthenticator(APIKeyConfig{Keys: cfg.APIKeys}); keys.Len() > 0 {
		auths = append(auths, keys)
	}
	if cfg.JWTSecret != "" {
		auths = append(auths, NewJWTAuthenticator(JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}
	if len(auths) == 0 {
		return nil, ErrNotConfigured
	}
	return NewCompositeAuthenticator(auths...), nil
}
