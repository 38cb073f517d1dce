package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("EDGETAG_TEST_TOKEN", "abc123")

	p := EnvProvider{}
	got, err := p.Resolve(context.Background(), "EDGETAG_TEST_TOKEN")
	if err != nil || got != "abc123" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}

	_, err = p.Resolve(context.Background(), "EDGETAG_TEST_DOES_NOT_EXIST")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := FileProvider{Dir: dir}
	got, err := p.Resolve(context.Background(), "token")
	if err != nil || got != "file-token" {
		t.Fatalf("Resolve(relative) = %q, %v", got, err)
	}

	got, err = FileProvider{}.Resolve(context.Background(), filepath.Join(dir, "token"))
	if err != nil || got != "file-token" {
		t.Fatalf("Resolve(absolute) = %q, %v", got, err)
	}

	_, err = p.Resolve(context.Background(), "missing")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}
