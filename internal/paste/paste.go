// Package paste hands a finished consultation summary to the desktop: onto
// the Wayland clipboard, typed into the focused window, or both.
package paste

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/medivoice/medivoice/internal/consult"
)

const (
	ModeOff       = "off"
	ModeClipboard = "clipboard"
	ModeType      = "type"
	ModeFallback  = "fallback" // type, keep the clipboard copy when typing fails
)

// Paster delivers text to the user's desktop.
type Paster interface {
	Paste(ctx context.Context, text string) error
}

type Config struct {
	Mode             string
	TypeTimeout      time.Duration
	ClipboardTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:             ModeOff,
		TypeTimeout:      5 * time.Second,
		ClipboardTimeout: 3 * time.Second,
	}
}

func ValidMode(mode string) bool {
	switch mode {
	case ModeOff, ModeClipboard, ModeType, ModeFallback:
		return true
	}
	return false
}

type paster struct {
	config Config
}

// New returns a Paster for config.Mode. ModeOff gives one that does nothing.
func New(config Config) Paster {
	if config.Mode == "" || config.Mode == ModeOff {
		return Nop{}
	}
	return &paster{config: config}
}

func (p *paster) Paste(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to paste")
	}

	if p.config.Mode == ModeClipboard || p.config.Mode == ModeFallback {
		if err := checkClipboardAvailable(); err != nil {
			return fmt.Errorf("clipboard tools not available: %w", err)
		}
		if err := setClipboard(ctx, text, p.config.ClipboardTimeout); err != nil {
			return fmt.Errorf("failed to copy text to clipboard: %w", err)
		}
	}

	switch p.config.Mode {
	case ModeClipboard:
		return nil
	case ModeType:
		if err := typeText(ctx, text, p.config.TypeTimeout); err != nil {
			return fmt.Errorf("failed to type text: %w", err)
		}
	case ModeFallback:
		if err := typeText(ctx, text, p.config.TypeTimeout); err != nil {
			log.Printf("Paste: typing failed, text left on clipboard: %v", err)
		}
	default:
		return fmt.Errorf("unsupported paste mode: %s", p.config.Mode)
	}
	return nil
}

type Nop struct{}

func (Nop) Paste(context.Context, string) error { return nil }

// Text picks what gets pasted for a finished consultation: the summary,
// or the transcript when the backend produced no summary.
func Text(d consult.Details) string {
	if strings.TrimSpace(d.Summary) != "" {
		return d.Summary
	}
	return d.Transcript
}
