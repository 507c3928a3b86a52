package recording

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/medivoice/medivoice/internal/consult"
)

// Source is a microphone capture backend. *Recorder implements it.
type Source interface {
	Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error)
	Stop() error
}

type State string

const (
	Idle      State = "idle"
	Recording State = "recording"
	Stopped   State = "stopped" // a captured blob is waiting to be submitted
)

// Session is the microphone recording state machine:
// Idle -> Recording -> Stopped(blob) -> Idle. At most one unsubmitted blob
// is kept; starting a new recording discards it.
type Session struct {
	source Source
	config Config
	now    func() time.Time

	mu       sync.Mutex
	state    State
	name     string
	pcm      bytes.Buffer
	frames   int
	started  time.Time
	done     chan struct{}
	aborted  bool
	pending  *consult.AudioBlob
	lastErr  error
	cancelFn context.CancelFunc
}

func NewSession(source Source, config Config) *Session {
	return &Session{
		source: source,
		config: config,
		now:    time.Now,
		state:  Idle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Name returns the display name the current or pending recording was started with.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Start begins capture. The display name is checked before the microphone is
// touched.
func (s *Session) Start(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return consult.NewValidationError("name", "enter a consultation name before recording")
	}

	s.mu.Lock()
	if s.state == Recording {
		s.mu.Unlock()
		return fmt.Errorf("already recording")
	}
	if s.pending != nil {
		log.Printf("Recording: discarding unsubmitted recording %q", s.pending.Name)
		s.pending = nil
	}
	s.state = Idle
	s.mu.Unlock()

	var (
		captureCtx context.Context
		cancel     context.CancelFunc
	)
	if s.config.Timeout > 0 {
		captureCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
	} else {
		captureCtx, cancel = context.WithCancel(ctx)
	}

	frameCh, errCh, err := s.source.Start(captureCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start capture: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.state = Recording
	s.name = name
	s.pcm.Reset()
	s.frames = 0
	s.started = s.now()
	s.done = done
	s.aborted = false
	s.lastErr = nil
	s.cancelFn = cancel
	s.mu.Unlock()

	log.Printf("Recording: started %q", name)
	go s.collect(frameCh, errCh, done)
	return nil
}

func (s *Session) collect(frameCh <-chan AudioFrame, errCh <-chan error, done chan struct{}) {
	defer close(done)

	for frame := range frameCh {
		s.mu.Lock()
		s.pcm.Write(frame.Data)
		s.frames++
		s.mu.Unlock()
	}
	captureErr := <-errCh

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFn != nil {
		s.cancelFn()
		s.cancelFn = nil
	}

	if s.aborted {
		s.pcm.Reset()
		s.state = Idle
		return
	}

	if s.pcm.Len() == 0 {
		s.state = Idle
		s.lastErr = consult.NewValidationError("audio", "no audio captured")
		if captureErr != nil {
			s.lastErr = fmt.Errorf("capture failed: %w", captureErr)
		}
		log.Printf("Recording: finished without audio: %v", s.lastErr)
		return
	}
	if captureErr != nil {
		log.Printf("Recording: capture ended with error, keeping %d bytes: %v", s.pcm.Len(), captureErr)
	}

	blob := consult.AudioBlob{
		Name:     fmt.Sprintf("Consulta %s.wav", s.started.Format("2006-01-02 15-04-05")),
		Data:     encodeWAV(s.pcm.Bytes(), s.config.SampleRate, s.config.Channels),
		MIMEType: "audio/wav",
		Origin:   consult.OriginMicrophone,
	}
	s.pcm.Reset()
	s.pending = &blob
	s.state = Stopped
	log.Printf("Recording: captured %d frames, %d bytes in %v", s.frames, blob.Size(), s.now().Sub(s.started).Round(time.Millisecond))
}

// Stop ends capture and returns the captured blob. Calling Stop when not
// recording is a no-op and reports ok=false.
func (s *Session) Stop() (blob consult.AudioBlob, ok bool, err error) {
	done, ok := s.beginStop(false)
	if !ok {
		return consult.AudioBlob{}, false, nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return consult.AudioBlob{}, true, s.lastErr
	}
	return *s.pending, true, nil
}

// Abort ends capture and throws the audio away.
func (s *Session) Abort() bool {
	done, ok := s.beginStop(true)
	if !ok {
		return false
	}
	<-done
	log.Printf("Recording: aborted")
	return true
}

func (s *Session) beginStop(abort bool) (chan struct{}, bool) {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return nil, false
	}
	s.aborted = abort
	done := s.done
	s.mu.Unlock()

	if err := s.source.Stop(); err != nil {
		log.Printf("Recording: error stopping capture: %v", err)
	}
	return done, true
}

// Take hands the pending blob to the caller and returns the session to Idle.
func (s *Session) Take() (consult.AudioBlob, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return consult.AudioBlob{}, "", false
	}
	blob := *s.pending
	s.pending = nil
	s.state = Idle
	return blob, s.name, true
}

// Discard drops a pending blob without submitting it.
func (s *Session) Discard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	s.pending = nil
	s.state = Idle
	return true
}
