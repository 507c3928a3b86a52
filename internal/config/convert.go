package config

import (
	"log"
	"os"
	"strings"

	"github.com/medivoice/medivoice/internal/auth"
	"github.com/medivoice/medivoice/internal/backend"
	"github.com/medivoice/medivoice/internal/notify"
	"github.com/medivoice/medivoice/internal/paste"
	"github.com/medivoice/medivoice/internal/pipeline"
	"github.com/medivoice/medivoice/internal/recording"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
		Timeout:           c.Recording.Timeout,
	}
}

func (c *Config) ToPolicy() pipeline.Policy {
	return pipeline.Policy{
		Deadline:    c.Finalize.Deadline,
		Interval:    c.Finalize.Interval,
		Multiplier:  c.Finalize.Multiplier,
		MaxInterval: c.Finalize.MaxInterval,
		StrictBody:  c.Finalize.StrictBody,
	}
}

// Credentials resolves the token from the environment, then the config
// file, then the file written by login.
func (c *Config) Credentials() auth.Provider {
	chain := auth.Chain{
		auth.Static(strings.TrimSpace(os.Getenv(EnvToken))),
		auth.Static(c.Backend.Token),
	}
	if f, err := auth.NewFile(); err == nil {
		chain = append(chain, f)
	} else {
		log.Printf("Config: token file unavailable: %v", err)
	}
	return chain
}

func (c *Config) NewClient() *backend.Client {
	return backend.New(c.Backend.BaseURL, c.Credentials(), c.Backend.RequestTimeout)
}

// NewNotifier honors notifications.enabled and the configured messages.
func (c *Config) NewNotifier() notify.Notifier {
	if !c.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(c.Notifications.Type, c.Notifications.Messages.Resolve())
}

func (c *Config) NewPaster() paste.Paster {
	pc := paste.DefaultConfig()
	pc.Mode = c.Results.Paste
	return paste.New(pc)
}
