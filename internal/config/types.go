package config

import (
	"reflect"
	"time"

	"github.com/medivoice/medivoice/internal/notify"
)

type Config struct {
	Backend       BackendConfig       `toml:"backend"`
	Finalize      FinalizeConfig      `toml:"finalize"`
	Recording     RecordingConfig     `toml:"recording"`
	Results       ResultsConfig       `toml:"results"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type BackendConfig struct {
	BaseURL        string        `toml:"base_url"`
	Token          string        `toml:"token"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// FinalizeConfig is the poll policy for the finalize stage.
type FinalizeConfig struct {
	Deadline    time.Duration `toml:"deadline"`
	Interval    time.Duration `toml:"interval"`
	Multiplier  float64       `toml:"multiplier"`
	MaxInterval time.Duration `toml:"max_interval"`
	StrictBody  bool          `toml:"strict_body"` // fail on an unreadable 2xx body instead of returning empty results
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Format            string        `toml:"format"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	Timeout           time.Duration `toml:"timeout"`
}

type ResultsConfig struct {
	RecentLimit int    `toml:"recent_limit"`
	Paste       string `toml:"paste"` // "off", "clipboard", "type", "fallback"
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title,omitempty"`
	Body  string `toml:"body,omitempty"`
}

type MessagesConfig struct {
	RecordingStarted   MessageConfig `toml:"recording_started,omitempty"`
	RecordingStopped   MessageConfig `toml:"recording_stopped,omitempty"`
	RecordingAborted   MessageConfig `toml:"recording_aborted,omitempty"`
	Uploading          MessageConfig `toml:"uploading,omitempty"`
	Processing         MessageConfig `toml:"processing,omitempty"`
	ConsultReady       MessageConfig `toml:"consult_ready,omitempty"`
	OperationCancelled MessageConfig `toml:"operation_cancelled,omitempty"`
	ConfigReloaded     MessageConfig `toml:"config_reloaded,omitempty"`
	SessionExpired     MessageConfig `toml:"session_expired,omitempty"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[tagName(t.Field(i).Tag.Get("toml"))] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}

// Field returns the message stored under a notify config key, or nil.
func (m *MessagesConfig) Field(configKey string) *MessageConfig {
	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tagName(t.Field(i).Tag.Get("toml")) == configKey {
			return v.Field(i).Addr().Interface().(*MessageConfig)
		}
	}
	return nil
}

func tagName(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i]
		}
	}
	return tag
}
