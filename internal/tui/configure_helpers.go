package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/medivoice/medivoice/internal/config"
)

func formatBackendLabel(cfg *config.Config) string {
	if cfg.Backend.BaseURL == "" {
		return "Backend (not set)"
	}
	return fmt.Sprintf("Backend (%s)", cfg.Backend.BaseURL)
}

func formatFinalizeLabel(cfg *config.Config) string {
	return fmt.Sprintf("Processing (deadline=%s, every %s)", cfg.Finalize.Deadline, cfg.Finalize.Interval)
}

func formatRecordingLabel(cfg *config.Config) string {
	return fmt.Sprintf("Recording (rate=%d, max=%s)", cfg.Recording.SampleRate, cfg.Recording.Timeout)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (disabled)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func validateBaseURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("required")
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

func validatePositiveDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.New("use a duration like 4s or 3m")
	}
	if d <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a number")
	}
	if n <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func validateMultiplier(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if f < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

// mustDuration parses input that already passed validatePositiveDuration.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(s))
	return d
}

func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
