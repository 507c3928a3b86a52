package pipeline

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/medivoice/medivoice/internal/consult"
)

// Finalizer issues a single finalize request.
type Finalizer interface {
	Finalize(ctx context.Context, job consult.JobID, ref consult.StorageReference, name string) (consult.Outcome, error)
}

// Policy tunes the finalize poll. Multiplier 1 gives a fixed interval.
type Policy struct {
	Deadline    time.Duration
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	StrictBody  bool
}

func DefaultPolicy() Policy {
	return Policy{
		Deadline:    3 * time.Minute,
		Interval:    4 * time.Second,
		Multiplier:  1,
		MaxInterval: 4 * time.Second,
	}
}

func (p Policy) next(cur time.Duration) time.Duration {
	if p.Multiplier <= 1 {
		return cur
	}
	next := time.Duration(math.Round(float64(cur) * p.Multiplier))
	if p.MaxInterval > 0 && next > p.MaxInterval {
		return p.MaxInterval
	}
	return next
}

// Poller repeats finalize requests while the backend answers 202.
type Poller struct {
	backend Finalizer
	policy  Policy
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPoller(backend Finalizer, policy Policy) *Poller {
	return &Poller{
		backend: backend,
		policy:  policy,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Finalize polls until the job is ready, the backend reports a failure, or
// deadline has elapsed since the first request. Only the pending signal is
// retried. Cancelling ctx is reported as a timeout.
func (p *Poller) Finalize(ctx context.Context, job consult.JobID, ref consult.StorageReference, name string, deadline time.Duration) (consult.Details, error) {
	start := p.now()
	interval := p.policy.Interval
	pending := 0

	for {
		if elapsed := p.now().Sub(start); elapsed >= deadline {
			log.Printf("Pipeline: finalize %s timed out after %v (%d pending responses)", job, elapsed, pending)
			return consult.Details{}, &consult.FinalizeError{Kind: consult.FinalizeTimeout}
		}

		out, err := p.backend.Finalize(ctx, job, ref, name)
		if err != nil {
			return consult.Details{}, p.classify(ctx, err)
		}

		switch out.Kind {
		case consult.Ready:
			if out.Malformed {
				if p.policy.StrictBody {
					return consult.Details{}, &consult.FinalizeError{Kind: consult.FinalizeMalformedBody, StatusCode: out.StatusCode, Body: out.Body}
				}
				log.Printf("Pipeline: finalize %s returned an unreadable body, continuing with empty results", job)
			}
			log.Printf("Pipeline: finalize %s ready after %d pending responses", job, pending)
			return out.Details, nil

		case consult.Failed:
			return consult.Details{}, &consult.FinalizeError{Kind: consult.FinalizeBackend, StatusCode: out.StatusCode, Body: out.Body}
		}

		pending++
		wait := interval
		if left := deadline - p.now().Sub(start); left < wait {
			wait = max(left, 0)
		}
		log.Printf("Pipeline: finalize %s still processing, retrying in %v", job, wait)
		if err := p.sleep(ctx, wait); err != nil {
			return consult.Details{}, &consult.FinalizeError{Kind: consult.FinalizeTimeout, Err: err}
		}
		interval = p.policy.next(interval)
	}
}

func (p *Poller) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &consult.FinalizeError{Kind: consult.FinalizeTimeout, Err: ctxErr}
	}
	if errors.Is(err, consult.ErrUnauthorized) {
		return &consult.FinalizeError{Kind: consult.FinalizeBackend, StatusCode: http.StatusUnauthorized, Err: err}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
