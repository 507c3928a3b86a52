package recording

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SampleRate != 16000 {
		t.Errorf("default sample rate should be 16000, got %d", config.SampleRate)
	}
	if config.Channels != 1 {
		t.Errorf("default channels should be 1, got %d", config.Channels)
	}
	if config.Format != "s16" {
		t.Errorf("default format should be s16, got %s", config.Format)
	}
	if config.BufferSize != 8192 {
		t.Errorf("default buffer size should be 8192, got %d", config.BufferSize)
	}
	if config.ChannelBufferSize != 30 {
		t.Errorf("default channel buffer size should be 30, got %d", config.ChannelBufferSize)
	}
	if config.Timeout <= 0 {
		t.Errorf("default timeout should be positive, got %v", config.Timeout)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"invalid sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"negative sample rate", func(c *Config) { c.SampleRate = -1 }, true},
		{"invalid channels", func(c *Config) { c.Channels = 0 }, true},
		{"invalid buffer size", func(c *Config) { c.BufferSize = 0 }, true},
		{"invalid channel buffer size", func(c *Config) { c.ChannelBufferSize = 0 }, true},
		{"empty format", func(c *Config) { c.Format = "" }, true},
		{"float format", func(c *Config) { c.Format = "f32" }, true},
		{"s16le format", func(c *Config) { c.Format = "s16le" }, false},
		{"unaligned buffer size", func(c *Config) { c.BufferSize = 8193 }, false},
		{"stereo", func(c *Config) { c.SampleRate = 48000; c.Channels = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected error for config %+v", cfg)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for config %+v: %v", cfg, err)
			}
		})
	}
}

func TestPwRecordArgs(t *testing.T) {
	cfg := DefaultConfig()
	want := []string{"--format", "s16", "--rate", "16000", "--channels", "1", "-"}
	if got := cfg.pwRecordArgs(); !equalArgs(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}

	cfg.Device = "alsa_input.usb"
	want = []string{"--format", "s16", "--rate", "16000", "--channels", "1", "--target", "alsa_input.usb", "-"}
	if got := cfg.pwRecordArgs(); !equalArgs(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

// fakeRecorder runs name instead of pw-record and skips the PipeWire probe.
func fakeRecorder(t *testing.T, cfg Config, name string, args ...string) *Recorder {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	r := NewRecorder(cfg)
	r.probe = func(context.Context) error { return nil }
	r.command = func(ctx context.Context, _ []string) *exec.Cmd {
		return exec.CommandContext(ctx, name, args...)
	}
	return r
}

func drain(t *testing.T, frames <-chan AudioFrame, errs <-chan error) ([]byte, error) {
	t.Helper()
	var pcm []byte
	timeout := time.After(5 * time.Second)
	for frames != nil {
		select {
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			pcm = append(pcm, f.Data...)
		case <-timeout:
			t.Fatal("frames channel never closed")
		}
	}
	return pcm, <-errs
}

func TestRecorderDeliversEveryByte(t *testing.T) {
	pcm := make([]byte, 10000)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "pcm.raw")
	if err := os.WriteFile(path, pcm, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.BufferSize = 512
	cfg.ChannelBufferSize = 1
	r := fakeRecorder(t, cfg, "cat", path)

	frames, errs, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	got, err := drain(t, frames, errs)
	if err != nil {
		t.Errorf("capture error = %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("captured %d bytes, want %d identical bytes", len(got), len(pcm))
	}

	waitFor(t, func() bool { return !r.Running() })
}

func TestRecorderReportsProcessFailure(t *testing.T) {
	r := fakeRecorder(t, DefaultConfig(), "false")

	frames, errs, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := drain(t, frames, errs); err == nil || !strings.Contains(err.Error(), "pw-record exited") {
		t.Errorf("capture error = %v, want process exit", err)
	}
}

func TestRecorderStopEndsCapture(t *testing.T) {
	r := fakeRecorder(t, DefaultConfig(), "sleep", "30")

	frames, errs, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.Running() {
		t.Error("recorder should be running after Start")
	}
	if _, _, err := r.Start(context.Background()); err == nil {
		t.Error("second Start should fail while capturing")
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := drain(t, frames, errs); err != nil {
		t.Errorf("stopping is not a capture error, got %v", err)
	}
	waitFor(t, func() bool { return !r.Running() })
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := NewRecorder(DefaultConfig())
	if r.Running() {
		t.Fatal("recorder should not be recording initially")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop on idle recorder should be a no-op, got %v", err)
	}
}

func TestRecorderStartInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	r := NewRecorder(cfg)
	probed := false
	r.probe = func(context.Context) error { probed = true; return nil }

	if _, _, err := r.Start(context.Background()); err == nil {
		t.Fatal("Start with invalid config should fail")
	}
	if probed || r.Running() {
		t.Error("invalid config must fail before touching PipeWire")
	}
}

func TestRecorderProbeFailure(t *testing.T) {
	r := NewRecorder(DefaultConfig())
	r.probe = func(context.Context) error { return errors.New("pw-cli: connection refused") }

	if _, _, err := r.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "PipeWire not available") {
		t.Errorf("Start() error = %v", err)
	}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Errorf("bad header: %q", wav[:44])
	}
	if got := int(wav[24]) | int(wav[25])<<8 | int(wav[26])<<16; got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if string(wav[44:]) != string(pcm) {
		t.Error("payload not preserved")
	}
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
