package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/medivoice/medivoice/internal/recording"
)

// FakeSource is a capture source that emits whatever the test feeds it.
// Stop closes the stream after delivering everything emitted so far.
type FakeSource struct {
	mu       sync.Mutex
	StartErr error
	starts   int
	frames   chan recording.AudioFrame
	errs     chan error
	closed   bool
}

func NewFakeSource() *FakeSource { return &FakeSource{} }

func (f *FakeSource) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.StartErr != nil {
		return nil, nil, f.StartErr
	}
	f.frames = make(chan recording.AudioFrame, 64)
	f.errs = make(chan error, 1)
	f.closed = false

	frames, errs := f.frames, f.errs
	go func() {
		<-ctx.Done()
		f.close(frames, errs)
	}()
	return frames, errs, nil
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	frames, errs := f.frames, f.errs
	f.mu.Unlock()
	if frames != nil {
		f.close(frames, errs)
	}
	return nil
}

// Emit delivers one PCM frame to the running capture.
func (f *FakeSource) Emit(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames == nil || f.closed {
		return
	}
	f.frames <- recording.AudioFrame{Data: data, Timestamp: time.Now()}
}

func (f *FakeSource) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeSource) close(frames chan recording.AudioFrame, errs chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || frames != f.frames {
		return
	}
	f.closed = true
	close(frames)
	close(errs)
}
