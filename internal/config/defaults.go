package config

import "time"

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "",
			RequestTimeout: 60 * time.Second,
		},
		Finalize: FinalizeConfig{
			Deadline:    3 * time.Minute,
			Interval:    4 * time.Second,
			Multiplier:  1.0,
			MaxInterval: 4 * time.Second,
			StrictBody:  false,
		},
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			Timeout:           60 * time.Minute,
		},
		Results: ResultsConfig{
			RecentLimit: 5,
			Paste:       "off",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
