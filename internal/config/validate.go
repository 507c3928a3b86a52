package config

import (
	"fmt"
	"net/url"

	"github.com/medivoice/medivoice/internal/paste"
)

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("invalid backend.base_url: empty (set it in the config file or %s)", EnvAPIURL)
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend.base_url: %q (must be an http or https URL)", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("invalid backend.request_timeout: %v", c.Backend.RequestTimeout)
	}

	if c.Finalize.Deadline <= 0 {
		return fmt.Errorf("invalid finalize.deadline: %v", c.Finalize.Deadline)
	}
	if c.Finalize.Interval <= 0 {
		return fmt.Errorf("invalid finalize.interval: %v", c.Finalize.Interval)
	}
	if c.Finalize.Multiplier < 1 {
		return fmt.Errorf("invalid finalize.multiplier: %v (must be >= 1)", c.Finalize.Multiplier)
	}
	if c.Finalize.MaxInterval < c.Finalize.Interval {
		return fmt.Errorf("invalid finalize.max_interval: %v (must be >= interval %v)", c.Finalize.MaxInterval, c.Finalize.Interval)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format != "s16" && c.Recording.Format != "s16le" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if c.Results.RecentLimit <= 0 {
		return fmt.Errorf("invalid results.recent_limit: %d", c.Results.RecentLimit)
	}
	if !paste.ValidMode(c.Results.Paste) {
		return fmt.Errorf("invalid results.paste: %s (must be off, clipboard, type, or fallback)", c.Results.Paste)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}
