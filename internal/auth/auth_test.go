package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/medivoice/medivoice/internal/consult"
)

func TestStatic(t *testing.T) {
	if _, err := Static("").Token(context.Background()); !errors.Is(err, consult.ErrUnauthorized) {
		t.Errorf("empty static token should be unauthorized, got %v", err)
	}
	tok, err := Static("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
}

func TestFile(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "medivoice", TokenFileName)}
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		if _, err := f.Token(ctx); !errors.Is(err, consult.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("save and read", func(t *testing.T) {
		if err := f.Save("secret\n"); err != nil {
			t.Fatalf("Save: %v", err)
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
		}
		tok, err := f.Token(ctx)
		if err != nil || tok != "secret" {
			t.Errorf("Token() = %q, %v", tok, err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := f.Clear(); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if err := f.Clear(); err != nil {
			t.Errorf("second Clear should be a no-op: %v", err)
		}
		if _, err := f.Token(ctx); !errors.Is(err, consult.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized after clear, got %v", err)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	missing := &File{Path: filepath.Join(t.TempDir(), "none")}

	tok, err := Chain{Static(""), missing, Static("from-config")}.Token(ctx)
	if err != nil || tok != "from-config" {
		t.Errorf("Chain.Token() = %q, %v", tok, err)
	}

	if _, err := (Chain{Static(""), nil}).Token(ctx); !errors.Is(err, consult.ErrUnauthorized) {
		t.Errorf("empty chain should be unauthorized, got %v", err)
	}
}
