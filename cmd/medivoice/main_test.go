package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medivoice/medivoice/internal/backend"
	"github.com/medivoice/medivoice/internal/consult"
	"github.com/medivoice/medivoice/internal/daemon"
	"github.com/medivoice/medivoice/internal/pipeline"
	"github.com/medivoice/medivoice/internal/tui"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    tui.Snapshot
		wantErr bool
	}{
		{
			name:    "idle",
			payload: `status=idle recording=idle name="" pending=false attempt=`,
			want:    tui.Snapshot{Status: "idle", Recording: "idle"},
		},
		{
			name:    "name with spaces and quotes",
			payload: `status=polling recording=idle name="Sr. \"Pepe\" Díaz" pending=true attempt=5b1c`,
			want:    tui.Snapshot{Status: "polling", Recording: "idle", Name: `Sr. "Pepe" Díaz`, Pending: true, Attempt: "5b1c"},
		},
		{
			name:    "unknown keys ignored",
			payload: `status=done extra=1`,
			want:    tui.Snapshot{Status: "done"},
		},
		{name: "empty", payload: "", wantErr: true},
		{name: "no status", payload: `recording=idle`, wantErr: true},
		{name: "garbage", payload: `what`, wantErr: true},
		{name: "unterminated name", payload: `status=idle name="open`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStatus(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeStore struct {
	items   []consult.Summary
	deleted []consult.JobID
	lists   int
	delErr  error
}

func (f *fakeStore) List(ctx context.Context) ([]consult.Summary, error) {
	f.lists++
	return append([]consult.Summary(nil), f.items...), nil
}

func (f *fakeStore) Delete(ctx context.Context, id consult.JobID) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.items[:0]
	for _, it := range f.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

type refuse struct{ asked int }

func (r *refuse) Confirm(string, string) (bool, error) {
	r.asked++
	return false, nil
}

func TestRunDelete(t *testing.T) {
	t.Run("confirmed delete re-reads the list", func(t *testing.T) {
		store := &fakeStore{items: []consult.Summary{{ID: "1"}, {ID: "2"}}}
		if err := runDelete(context.Background(), store, tui.AssumeYes{}, []string{"1"}); err != nil {
			t.Fatalf("runDelete() error = %v", err)
		}
		if len(store.deleted) != 1 || store.deleted[0] != "1" {
			t.Errorf("deleted = %v", store.deleted)
		}
		if store.lists != 1 {
			t.Errorf("List called %d times after delete, want 1", store.lists)
		}
	})

	t.Run("refused delete touches nothing", func(t *testing.T) {
		store := &fakeStore{items: []consult.Summary{{ID: "1"}}}
		r := &refuse{}
		if err := runDelete(context.Background(), store, r, []string{"1"}); err != nil {
			t.Fatalf("runDelete() error = %v", err)
		}
		if r.asked != 1 || len(store.deleted) != 0 || store.lists != 0 {
			t.Errorf("asked=%d deleted=%v lists=%d", r.asked, store.deleted, store.lists)
		}
	})

	t.Run("unauthorized delete explains login", func(t *testing.T) {
		store := &fakeStore{delErr: consult.ErrUnauthorized}
		err := runDelete(context.Background(), store, tui.AssumeYes{}, []string{"1"})
		if !errors.Is(err, consult.ErrUnauthorized) || !strings.Contains(err.Error(), "medivoice login") {
			t.Errorf("runDelete() error = %v", err)
		}
	})
}

type fakeAccount struct {
	mu       sync.Mutex
	calls    []string
	statsErr error
}

func (f *fakeAccount) Profile(ctx context.Context) (consult.Profile, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "profile")
	f.mu.Unlock()
	return consult.Profile{Name: "Ana"}, nil
}

func (f *fakeAccount) Stats(ctx context.Context) (consult.Stats, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "stats")
	f.mu.Unlock()
	return consult.Stats{TotalConsults: 3}, f.statsErr
}

func TestFetchAccount(t *testing.T) {
	acct := &fakeAccount{}
	p, s, err := fetchAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("fetchAccount() error = %v", err)
	}
	if p.Name != "Ana" || s.TotalConsults != 3 || len(acct.calls) != 2 {
		t.Errorf("fetchAccount() = %+v %+v calls=%v", p, s, acct.calls)
	}

	failing := &fakeAccount{statsErr: consult.ErrUnauthorized}
	if _, _, err := fetchAccount(context.Background(), failing); !errors.Is(err, consult.ErrUnauthorized) {
		t.Errorf("fetchAccount() error = %v, want unauthorized", err)
	}
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name string
		view daemon.ResultView
		want []string
	}{
		{
			name: "success",
			view: daemon.ResultView{
				Status:  pipeline.Done,
				Details: &consult.Details{ID: "9", DisplayName: "Visit", Summary: "All good"},
				Recent:  []consult.Summary{{ID: "9", DisplayName: "Visit"}},
			},
			want: []string{"Visit", "All good", "Recent consultations"},
		},
		{
			name: "expired session",
			view: daemon.ResultView{Status: pipeline.Failed, Error: "upload failed: unauthorized", Unauthorized: true},
			want: []string{"unauthorized", "medivoice login"},
		},
		{
			name: "timeout",
			view: daemon.ResultView{Status: pipeline.Failed, Error: "finalize: timeout", TimedOut: true},
			want: []string{"timeout", "medivoice list"},
		},
		{
			name: "refresh failed",
			view: daemon.ResultView{Status: pipeline.Done, Details: &consult.Details{ID: "1"}, RefreshError: "boom"},
			want: []string{"Could not refresh list: boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderResult(tt.view)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("renderResult() missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestArrangeList(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC) }
	items := []consult.Summary{
		{ID: "1", DisplayName: "Control Pérez", CreatedAt: day(2)},
		{ID: "2", DisplayName: "alta García", CreatedAt: day(5)},
		{ID: "3", DisplayName: "Control Gómez", CreatedAt: day(1)},
	}

	tests := []struct {
		name    string
		search  string
		sortBy  string
		asc     bool
		wantIDs []consult.JobID
	}{
		{"newest first by default", "", "", false, []consult.JobID{"2", "1", "3"}},
		{"oldest first", "", "date", true, []consult.JobID{"3", "1", "2"}},
		{"by name ignores case", "", "name", true, []consult.JobID{"2", "3", "1"}},
		{"by name descending", "", "name", false, []consult.JobID{"1", "3", "2"}},
		{"search is case-insensitive", "CONTROL", "date", false, []consult.JobID{"1", "3"}},
		{"search without match", "xyz", "date", false, []consult.JobID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := arrangeList(items, tt.search, tt.sortBy, tt.asc)
			if err != nil {
				t.Fatalf("arrangeList() error = %v", err)
			}
			ids := make([]consult.JobID, 0, len(got))
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			if strings.Join(toStrings(ids), ",") != strings.Join(toStrings(tt.wantIDs), ",") {
				t.Errorf("arrangeList() = %v, want %v", ids, tt.wantIDs)
			}
		})
	}

	if items[0].ID != "1" || items[1].ID != "2" {
		t.Error("arrangeList must not reorder its input")
	}
	if _, err := arrangeList(items, "", "size", false); err == nil {
		t.Error("unknown sort should fail")
	}
}

func toStrings(ids []consult.JobID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

type memTokens struct {
	saved string
	err   error
}

func (m *memTokens) Save(token string) error {
	m.saved = token
	return m.err
}

func TestFinishSignUp(t *testing.T) {
	t.Run("token is stored", func(t *testing.T) {
		store := &memTokens{}
		msg, err := finishSignUp(backend.SignUpResult{Token: "tok"}, "ana@example.com", store)
		if err != nil || store.saved != "tok" || !strings.Contains(msg, "ana@example.com") {
			t.Errorf("finishSignUp() = %q, %v, saved %q", msg, err, store.saved)
		}
	})

	t.Run("no token asks for login", func(t *testing.T) {
		store := &memTokens{}
		msg, err := finishSignUp(backend.SignUpResult{Message: "Usuario registrado"}, "ana@example.com", store)
		if err != nil || store.saved != "" {
			t.Fatalf("finishSignUp() err = %v, saved %q", err, store.saved)
		}
		if !strings.Contains(msg, "Usuario registrado") || !strings.Contains(msg, "medivoice login") {
			t.Errorf("message = %q", msg)
		}
	})

	t.Run("store failure is reported", func(t *testing.T) {
		store := &memTokens{err: errors.New("read-only")}
		if _, err := finishSignUp(backend.SignUpResult{Token: "tok"}, "ana@example.com", store); err == nil {
			t.Error("expected error when the token cannot be stored")
		}
	})
}
