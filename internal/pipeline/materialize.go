package pipeline

import (
	"context"
	"log"

	"github.com/medivoice/medivoice/internal/consult"
)

// Catalog reads finished consultations.
type Catalog interface {
	Details(ctx context.Context, id consult.JobID) (consult.Details, error)
	List(ctx context.Context) ([]consult.Summary, error)
}

type Result struct {
	AttemptID  string
	Details    consult.Details
	Recent     []consult.Summary
	RefreshErr error
}

// Materializer completes a successful finalize: it fills in missing
// transcript or summary and re-reads the recent list. Neither step can fail
// the submission.
type Materializer struct {
	catalog     Catalog
	recentLimit int
}

func NewMaterializer(catalog Catalog, recentLimit int) *Materializer {
	return &Materializer{catalog: catalog, recentLimit: recentLimit}
}

func (m *Materializer) AfterSuccess(ctx context.Context, d consult.Details) Result {
	if d.Transcript == "" || d.Summary == "" {
		fetched, err := m.catalog.Details(ctx, d.ID)
		if err != nil {
			log.Printf("Pipeline: could not fetch details for %s: %v", d.ID, err)
		} else {
			if d.Transcript == "" {
				d.Transcript = fetched.Transcript
			}
			if d.Summary == "" {
				d.Summary = fetched.Summary
			}
			if d.DisplayName == "" {
				d.DisplayName = fetched.DisplayName
			}
			if d.CreatedAt.IsZero() {
				d.CreatedAt = fetched.CreatedAt
			}
		}
	}

	res := Result{Details: d}
	recent, err := m.Recent(ctx)
	if err != nil {
		log.Printf("Pipeline: could not refresh recent consultations: %v", err)
		res.RefreshErr = err
		return res
	}
	res.Recent = recent
	return res
}

// Recent re-reads the list and keeps at most recentLimit entries.
func (m *Materializer) Recent(ctx context.Context) ([]consult.Summary, error) {
	list, err := m.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if m.recentLimit > 0 && len(list) > m.recentLimit {
		list = list[:m.recentLimit]
	}
	return list, nil
}
