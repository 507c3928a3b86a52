package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medivoice/medivoice/internal/consult"
)

const TokenFileName = "token"

// Provider supplies the bearer credential for backend requests.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Static returns a fixed token (config or environment).
type Static string

func (s Static) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", consult.ErrUnauthorized
	}
	return string(s), nil
}

// File reads the token saved by `medivoice login`.
type File struct {
	Path string
}

// ~/.cache/medivoice/token
func DefaultTokenPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "medivoice", TokenFileName), nil
}

func NewFile() (*File, error) {
	p, err := DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	return &File{Path: p}, nil
}

func (f *File) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", consult.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", consult.ErrUnauthorized
	}
	return token, nil
}

func (f *File) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return os.WriteFile(f.Path, []byte(token), 0o600)
}

func (f *File) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Chain tries each provider in order and returns the first token found.
type Chain []Provider

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		token, err := p.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, consult.ErrUnauthorized) {
			return "", err
		}
	}
	return "", consult.ErrUnauthorized
}
