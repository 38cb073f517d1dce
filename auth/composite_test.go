package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAdminAuthenticator(t *testing.T) {
	if _, err := NewAdminAuthenticator(AdminConfig{APIKeys: []string{" "}}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}

	a, err := NewAdminAuthenticator(AdminConfig{APIKeys: []string{"k1"}, JWTSecret: string(testSecret)})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Authenticators) != 2 {
		t.Fatalf("len = %d, want 2", len(a.Authenticators))
	}

	res, err := a.Authenticate(context.Background(), apiKeyRequest("k1"))
	if err != nil || !res.Authenticated {
		t.Errorf("api key rejected: %v %+v", err, res)
	}

	tok := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ci"})
	res, err = a.Authenticate(context.Background(), bearer(tok))
	if err != nil || !res.Authenticated || res.Method != AuthMethodJWT {
		t.Errorf("token rejected: %v %+v", err, res)
	}
}

func TestCompositeAuthenticator_NoCredentials(t *testing.T) {
	a := NewCompositeAuthenticator(NewAPIKeyAuthenticator(APIKeyConfig{Keys: []string{"k"}}), nil)
	req := &AuthRequest{Header: http.Header{}}
	if a.Supports(req) {
		t.Error("Supports() = true without credentials")
	}
	res, err := a.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Authenticated || !errors.Is(res.Error, ErrMissingCredentials) {
		t.Errorf("result = %+v", res)
	}
}

func TestCompositeAuthenticator_NoFallthrough(t *testing.T) {
	a := NewCompositeAuthenticator(
		NewAPIKeyAuthenticator(APIKeyConfig{Keys: []string{"good"}}),
		NewJWTAuthenticator(JWTConfig{Secret: testSecret}),
	)
	req := apiKeyRequest("bad")
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "x"}))

	res, err := a.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Authenticated {
		t.Error("rejected api key fell through to token")
	}
}
