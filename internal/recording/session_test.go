package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medivoice/medivoice/internal/consult"
)

type fakeRun struct {
	frames chan AudioFrame
	errs   chan error
	closed bool
}

// fakeSource emulates pw-record: Stop flushes tail frames before closing.
type fakeSource struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	tail     [][]byte
	runErr   error
	run      *fakeRun
}

func (f *fakeSource) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, nil, f.startErr
	}
	run := &fakeRun{frames: make(chan AudioFrame, 16), errs: make(chan error, 1)}
	f.run = run
	go func() {
		<-ctx.Done()
		f.finish(run)
	}()
	return run.frames, run.errs, nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	f.stops++
	run := f.run
	f.mu.Unlock()
	if run != nil {
		f.finish(run)
	}
	return nil
}

// emit drops data once the run has ended.
func (f *fakeSource) emit(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.run == nil || f.run.closed {
		return
	}
	f.run.frames <- AudioFrame{Data: data, Timestamp: time.Now()}
}

func (f *fakeSource) finish(run *fakeRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run.closed {
		return
	}
	run.closed = true
	for _, d := range f.tail {
		run.frames <- AudioFrame{Data: d}
	}
	if f.runErr != nil {
		run.errs <- f.runErr
	}
	close(run.frames)
	close(run.errs)
}

func (f *fakeSource) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func TestSessionStartRequiresName(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, DefaultConfig())

	for _, name := range []string{"", "   "} {
		err := s.Start(context.Background(), name)
		if !consult.IsValidationError(err) {
			t.Fatalf("Start(%q) error = %v, want ValidationError", name, err)
		}
	}
	if src.startCount() != 0 {
		t.Error("microphone must not be opened without a name")
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSessionRecordAndStop(t *testing.T) {
	src := &fakeSource{tail: [][]byte{{9, 9}}}
	s := NewSession(src, DefaultConfig())

	if err := s.Start(context.Background(), "Control Sr. Pérez"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != Recording {
		t.Fatalf("state = %s, want recording", s.State())
	}
	if err := s.Start(context.Background(), "again"); err == nil {
		t.Error("Start while recording should fail")
	}

	src.emit([]byte{1, 2})
	src.emit([]byte{3, 4})

	blob, ok, err := s.Stop()
	if err != nil || !ok {
		t.Fatalf("Stop() ok=%v err=%v", ok, err)
	}
	if blob.Origin != consult.OriginMicrophone || blob.MIMEType != "audio/wav" {
		t.Errorf("blob = %+v", blob)
	}
	if got, want := string(blob.Data[44:]), string([]byte{1, 2, 3, 4, 9, 9}); got != want {
		t.Errorf("payload = %v, want every frame up to stop", blob.Data[44:])
	}
	if err := blob.Validate(); err != nil {
		t.Errorf("captured blob should be uploadable: %v", err)
	}
	if s.State() != Stopped || !s.HasPending() {
		t.Errorf("state = %s pending=%v, want stopped with blob", s.State(), s.HasPending())
	}

	taken, name, ok := s.Take()
	if !ok || name != "Control Sr. Pérez" || len(taken.Data) != len(blob.Data) {
		t.Errorf("Take() = %d bytes, %q, %v", len(taken.Data), name, ok)
	}
	if s.State() != Idle || s.HasPending() {
		t.Errorf("after Take state = %s pending=%v", s.State(), s.HasPending())
	}
	if _, _, ok := s.Take(); ok {
		t.Error("second Take should find nothing")
	}
}

func TestSessionStopWhenIdleIsNoop(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, DefaultConfig())

	_, ok, err := s.Stop()
	if ok || err != nil {
		t.Errorf("Stop() on idle session = ok %v, err %v", ok, err)
	}
	if src.stops != 0 {
		t.Error("idle Stop must not touch the capture source")
	}
}

func TestSessionNewRecordingDiscardsPending(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, DefaultConfig())
	ctx := context.Background()

	if err := s.Start(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	src.emit([]byte{1, 1})
	if _, _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if !s.HasPending() {
		t.Fatal("expected a pending blob")
	}

	if err := s.Start(ctx, "second"); err != nil {
		t.Fatal(err)
	}
	if s.HasPending() {
		t.Error("starting a new recording should discard the pending blob")
	}
	src.emit([]byte{2, 2})
	blob, _, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if string(blob.Data[44:]) != string([]byte{2, 2}) {
		t.Errorf("payload = %v, want only the second recording", blob.Data[44:])
	}
	if s.Name() != "second" {
		t.Errorf("name = %q", s.Name())
	}
}

func TestSessionAbort(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, DefaultConfig())

	if s.Abort() {
		t.Error("Abort on idle session should report false")
	}
	if err := s.Start(context.Background(), "visit"); err != nil {
		t.Fatal(err)
	}
	src.emit([]byte{1, 2})
	if !s.Abort() {
		t.Fatal("Abort while recording should report true")
	}
	if s.State() != Idle || s.HasPending() {
		t.Errorf("after abort state = %s pending = %v", s.State(), s.HasPending())
	}
}

func TestSessionNoAudio(t *testing.T) {
	src := &fakeSource{}
	s := NewSession(src, DefaultConfig())

	if err := s.Start(context.Background(), "silent"); err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.Stop()
	if !ok || !consult.IsValidationError(err) {
		t.Errorf("Stop() with no audio = ok %v, err %v", ok, err)
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSessionCaptureErrorKeepsAudio(t *testing.T) {
	src := &fakeSource{runErr: errors.New("device unplugged")}
	s := NewSession(src, DefaultConfig())

	if err := s.Start(context.Background(), "visit"); err != nil {
		t.Fatal(err)
	}
	src.emit([]byte{5, 6})
	blob, _, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(blob.Data[44:]) != string([]byte{5, 6}) {
		t.Errorf("audio before the error should be kept")
	}
}

func TestSessionSourceStartError(t *testing.T) {
	src := &fakeSource{startErr: errors.New("pw-record not found")}
	s := NewSession(src, DefaultConfig())

	if err := s.Start(context.Background(), "visit"); err == nil {
		t.Fatal("expected start error")
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSessionTimeoutStopsCapture(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 150 * time.Millisecond
	src := &fakeSource{}
	s := NewSession(src, cfg)

	if err := s.Start(context.Background(), "long visit"); err != nil {
		t.Fatal(err)
	}
	src.emit([]byte{7, 7})

	deadline := time.Now().Add(2 * time.Second)
	for s.State() == Recording && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != Stopped || !s.HasPending() {
		t.Fatalf("state = %s pending = %v, want stopped with blob", s.State(), s.HasPending())
	}
}

func TestSessionTimeoutWhileEmitting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	src := &fakeSource{}
	s := NewSession(src, cfg)

	if err := s.Start(context.Background(), "busy visit"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			src.emit([]byte{1})
			if s.State() != Recording {
				src.emit([]byte{2})
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	<-done

	if s.State() != Stopped || !s.HasPending() {
		t.Fatalf("state = %s pending = %v, want stopped with blob", s.State(), s.HasPending())
	}
}
