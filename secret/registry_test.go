package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestRegistry_RegisterCreateList(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("stub", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("stub", func(map[string]any) (Provider, error) { return nil, nil }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := r.Register(" ", nil); err == nil {
		t.Fatal("expected invalid registration error")
	}

	p, err := r.Create("stub", nil)
	if err != nil || p.Name() != "stub" {
		t.Fatalf("Create() = %v, %v", p, err)
	}
	if _, err := r.Create("vault", nil); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
	if got := r.List(); !slices.Equal(got, []string{"stub"}) {
		t.Fatalf("List() = %v", got)
	}
}

func TestDefaultRegistry_BuiltinProviders(t *testing.T) {
	if got := DefaultRegistry.List(); !slices.Contains(got, "env") || !slices.Contains(got, "file") {
		t.Fatalf("DefaultRegistry.List() = %v", got)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cf"), []byte("from-file"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EDGETAG_TEST_ENV_TOKEN", "from-env")

	res, err := DefaultRegistry.NewResolver(true, map[string]map[string]any{
		"file": {"dir": dir},
	})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	defer res.Close()

	for in, want := range map[string]string{
		"secretref:env:EDGETAG_TEST_ENV_TOKEN": "from-env",
		"secretref:file:cf":                    "from-file",
	} {
		got, err := res.ResolveValue(context.Background(), in)
		if err != nil || got != want {
			t.Errorf("ResolveValue(%q) = %q, %v", in, got, err)
		}
	}
}
