package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/medivoice/medivoice/internal/backend"
	"github.com/medivoice/medivoice/internal/consult"
)

type Status string

const (
	Idle        Status = "idle"
	Uploading   Status = "uploading"
	Registering Status = "registering"
	Polling     Status = "polling"
	Done        Status = "done"
	Failed      Status = "failed"
)

// Backend is the set of backend calls a submission needs.
type Backend interface {
	Upload(ctx context.Context, blob consult.AudioBlob) (consult.StorageReference, error)
	Register(ctx context.Context, ref consult.StorageReference, name string) (consult.JobID, error)
	Finalizer
	Catalog
}

// Engine runs submissions: Upload, Register, Finalize and AfterSuccess,
// strictly in that order. At most one submission is in flight.
type Engine struct {
	backend     Backend
	recentLimit int
	slot        *semaphore.Weighted
	busy        atomic.Bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	policy   Policy
	onStatus func(Status)
	status   Status
	attempt  *consult.Attempt
	last     *Result
	lastErr  error
	cancel   context.CancelFunc
}

func New(b Backend, policy Policy, recentLimit int) *Engine {
	return &Engine{
		backend:     b,
		recentLimit: recentLimit,
		slot:        semaphore.NewWeighted(1),
		now:         time.Now,
		sleep:       sleepContext,
		policy:      policy,
		status:      Idle,
	}
}

// SetClock replaces the time source used by the finalize poll.
func (e *Engine) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.sleep = sleep
}

// SetBackend applies to the next submission.
func (e *Engine) SetBackend(b Backend) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backend = b
}

// OnStatus registers fn to run after every status change. fn must not block.
func (e *Engine) OnStatus(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatus = fn
}

// SetPolicy applies to the next submission.
func (e *Engine) SetPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p
}

func (e *Engine) SetRecentLimit(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recentLimit = n
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Attempt returns the current or most recent attempt.
func (e *Engine) Attempt() (consult.Attempt, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.attempt == nil {
		return consult.Attempt{}, false
	}
	return *e.attempt, true
}

// Last returns the outcome of the most recent finished submission.
// Both are nil before the first one ends.
func (e *Engine) Last() (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.lastErr
}

// Busy reports whether a submission is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Cancel stops the in-flight submission. A cancelled poll ends as a timeout.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Submit sends blob under name and waits for the final result. Every stage
// failure is returned unchanged and ends the submission.
func (e *Engine) Submit(ctx context.Context, blob consult.AudioBlob, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, consult.NewValidationError("name", "display name is required")
	}
	if err := blob.Validate(); err != nil {
		return Result{}, err
	}

	if !e.slot.TryAcquire(1) {
		return Result{}, consult.ErrBusy
	}
	e.busy.Store(true)
	defer func() {
		e.busy.Store(false)
		e.slot.Release(1)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	b := e.backend
	policy := e.policy
	poller := &Poller{backend: b, policy: policy, now: e.now, sleep: e.sleep}
	materializer := NewMaterializer(b, e.recentLimit)
	attempt := &consult.Attempt{
		ID:          uuid.NewString(),
		DisplayName: name,
		Origin:      blob.Origin,
		Started:     e.now(),
		Deadline:    policy.Deadline,
	}
	e.attempt = attempt
	e.cancel = cancel
	e.mu.Unlock()
	e.setStatus(Uploading)

	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	ctx = backend.WithAttemptID(ctx, attempt.ID)
	log.Printf("Pipeline: attempt %s started for %q (%s, %d bytes)", attempt.ID, name, blob.MIMEType, blob.Size())

	ref, err := b.Upload(ctx, blob)
	if err != nil {
		return e.fail(attempt, "upload", err)
	}
	e.advance(func(a *consult.Attempt) { a.Ref = ref }, Registering)

	job, err := b.Register(ctx, ref, name)
	if err != nil {
		return e.fail(attempt, "register", err)
	}
	e.advance(func(a *consult.Attempt) { a.Job = job }, Polling)

	details, err := poller.Finalize(ctx, job, ref, name, policy.Deadline)
	if err != nil {
		return e.fail(attempt, "finalize", err)
	}

	res := materializer.AfterSuccess(ctx, details)
	res.AttemptID = attempt.ID

	e.mu.Lock()
	e.last = &res
	e.lastErr = nil
	e.mu.Unlock()
	e.setStatus(Done)

	log.Printf("Pipeline: attempt %s done, consultation %s", attempt.ID, details.ID)
	return res, nil
}

func (e *Engine) advance(update func(*consult.Attempt), next Status) {
	e.mu.Lock()
	update(e.attempt)
	e.mu.Unlock()
	e.setStatus(next)
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	fn := e.onStatus
	e.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (e *Engine) fail(attempt *consult.Attempt, stage string, err error) (Result, error) {
	e.mu.Lock()
	e.last = nil
	e.lastErr = err
	e.mu.Unlock()
	e.setStatus(Failed)

	if errors.Is(err, consult.ErrUnauthorized) {
		log.Printf("Pipeline: attempt %s %s rejected credentials", attempt.ID, stage)
	} else {
		log.Printf("Pipeline: attempt %s %s failed: %v", attempt.ID, stage, err)
	}
	return Result{}, err
}
