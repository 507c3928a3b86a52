package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
	Timeout           time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        8192,
		ChannelBufferSize: 30,
		Timeout:           60 * time.Minute,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	case c.Channels <= 0:
		return fmt.Errorf("invalid Channels: %d", c.Channels)
	case c.BufferSize <= 0:
		return fmt.Errorf("invalid BufferSize: %d", c.BufferSize)
	case c.ChannelBufferSize <= 0:
		return fmt.Errorf("invalid ChannelBufferSize: %d", c.ChannelBufferSize)
	case c.Format != "s16" && c.Format != "s16le":
		// the WAV container written on stop holds 16-bit little-endian PCM
		return fmt.Errorf("invalid Format: %q (must be s16 or s16le)", c.Format)
	}
	if frameBytes := 2 * c.Channels; c.BufferSize%frameBytes != 0 {
		log.Printf("Recording: BufferSize %d not aligned to frame size %d; audio frames may split",
			c.BufferSize, frameBytes)
	}
	return nil
}

// pwRecordArgs asks pw-record for raw PCM on stdout.
func (c Config) pwRecordArgs() []string {
	args := []string{
		"--format", c.Format,
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", strconv.Itoa(c.Channels),
	}
	if c.Device != "" {
		args = append(args, "--target", c.Device)
	}
	return append(args, "-")
}

// Recorder captures microphone audio by running pw-record and reading raw
// PCM from its stdout. One capture runs at a time.
type Recorder struct {
	config  Config
	probe   func(ctx context.Context) error
	command func(ctx context.Context, args []string) *exec.Cmd

	mu   sync.Mutex
	live *capture
}

type capture struct {
	stop context.CancelFunc
	done chan struct{}
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{
		config: config,
		probe:  CheckPipeWire,
		command: func(ctx context.Context, args []string) *exec.Cmd {
			return exec.CommandContext(ctx, "pw-record", args...)
		},
	}
}

func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live != nil
}

// Start launches pw-record. Frames arrive in order and are never dropped, so
// the caller must drain the frame channel until it closes. At most one error
// is sent before both channels close.
func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live != nil {
		return nil, nil, errors.New("already recording")
	}
	if err := r.probe(ctx); err != nil {
		return nil, nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	captureCtx, stop := context.WithCancel(ctx)
	cmd := r.command(captureCtx, r.config.pwRecordArgs())
	// pw-record flushes buffered audio on SIGINT
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second
	cmd.Stderr = stderrLog{}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stop()
		return nil, nil, fmt.Errorf("start pw-record: %w", err)
	}

	frames := make(chan AudioFrame, r.config.ChannelBufferSize)
	errs := make(chan error, 1)
	c := &capture{stop: stop, done: make(chan struct{})}
	r.live = c

	go r.pump(captureCtx, c, cmd, stdout, frames, errs)
	return frames, errs, nil
}

func (r *Recorder) pump(ctx context.Context, c *capture, cmd *exec.Cmd, stdout io.Reader, frames chan<- AudioFrame, errs chan<- error) {
	defer func() {
		close(frames)
		close(errs)
		c.stop()
		r.mu.Lock()
		if r.live == c {
			r.live = nil
		}
		r.mu.Unlock()
		close(c.done)
	}()

	var readErr error
	buf := make([]byte, r.config.BufferSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			frames <- AudioFrame{Data: bytes.Clone(buf[:n]), Timestamp: time.Now()}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				readErr = fmt.Errorf("read audio: %w", err)
			}
			break
		}
	}

	waitErr := cmd.Wait()
	switch {
	case readErr != nil:
		log.Printf("Recording: %v", readErr)
		errs <- readErr
	case waitErr != nil && ctx.Err() == nil:
		err := fmt.Errorf("pw-record exited: %w", waitErr)
		log.Printf("Recording: %v", err)
		errs <- err
	}
}

// Stop asks pw-record to exit. Audio it already wrote is still delivered
// before the frame channel closes. Stop on an idle recorder does nothing.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	c := r.live
	r.mu.Unlock()
	if c != nil {
		c.stop()
	}
	return nil
}

// stderrLog forwards pw-record diagnostics to the daemon log.
type stderrLog struct{}

func (stderrLog) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			log.Printf("Recording: pw-record: %s", line)
		}
	}
	return len(p), nil
}

// CheckPipeWire reports whether pw-record is installed and the PipeWire
// daemon answers.
func CheckPipeWire(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
