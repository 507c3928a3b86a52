package paste

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

var (
	lookPath = exec.LookPath

	runCommand = func(ctx context.Context, stdin io.Reader, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdin = stdin
		return cmd.Run()
	}
)

func setClipboard(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := runCommand(ctx, strings.NewReader(text), "wl-copy"); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}

func checkClipboardAvailable() error {
	if _, err := lookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	return nil
}

func typeText(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := lookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	if err := runCommand(ctx, nil, "wtype", "--", text); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}
	return nil
}
