package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Response is one scripted HTTP reply.
// ContentType defaults to JSON when Body is set.
type Response struct {
	Status      int
	Body        string
	ContentType string
}

// FakeBackend is an httptest server speaking the consultations API.
// Finalize replies are consumed in order; the last one repeats.
type FakeBackend struct {
	Server *httptest.Server
	Token  string

	mu        sync.Mutex
	Upload    Response
	Register  Response
	Finalize  []Response
	Details   Response
	List      Response
	Delete    Response
	Login     Response
	SignUp    Response
	Profile   Response
	Stats     Response
	finalized int
	calls     map[string]int
	order     []string

	LastUploadName string
	LastUploadMIME string
	LastUploadSize int
	LastRegister   map[string]any
	LastFinalize   map[string]any
	LastSignUp     map[string]any
	AttemptIDs     []string
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		Token:    "test-token",
		Upload:   Response{Status: http.StatusOK, Body: `{"baseFileName":"audio-123.webm"}`},
		Register: Response{Status: http.StatusCreated, Body: `{"id":"job1"}`},
		Finalize: []Response{{Status: http.StatusOK, Body: `{"id":"job1","transcription":"t","summary":"s"}`}},
		Details:  Response{Status: http.StatusOK, Body: `{"transcription":"t","summary":"s","nombre":"Visit","fechaCreacion":"2025-03-01T10:00:00Z"}`},
		List:     Response{Status: http.StatusOK, Body: `[{"id":"job1","nombre":"Visit","fechaCreacion":"2025-03-01T10:00:00Z"}]`},
		Delete:   Response{Status: http.StatusNoContent},
		Login:    Response{Status: http.StatusOK, Body: `{"token":"test-token"}`},
		SignUp:   Response{Status: http.StatusCreated, Body: `{"token":"test-token"}`},
		Profile:  Response{Status: http.StatusOK, Body: `{"nombre":"Dr. Ana","correo":"ana@example.com","especialidad":"Cardiology"}`},
		Stats:    Response{Status: http.StatusOK, Body: `{"totalConsultas":3,"totalTranscripciones":2,"tiempoAhorrado":1.5}`},
		calls:    make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeBackend) URL() string { return f.Server.URL }

// Calls returns how many times op was requested.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Order returns the sequence of operations served so far.
func (f *FakeBackend) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// SetFinalize replaces the scripted finalize replies.
func (f *FakeBackend) SetFinalize(responses ...Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Finalize = responses
	f.finalized = 0
}

// Pending builds n HTTP 202 replies followed by final.
func Pending(n int, final Response) []Response {
	out := make([]Response, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, Response{Status: http.StatusAccepted, Body: `{"status":"processing"}`})
	}
	return append(out, final)
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	op := route(r)

	f.mu.Lock()
	f.calls[op]++
	f.order = append(f.order, op)
	if id := r.Header.Get("X-Attempt-Id"); id != "" {
		f.AttemptIDs = append(f.AttemptIDs, id)
	}
	f.mu.Unlock()

	if op != "login" && op != "signup" && r.Header.Get("Authorization") != "Bearer "+f.Token {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var resp Response
	switch op {
	case "upload":
		f.recordUpload(r)
		resp = f.get(&f.Upload)
	case "register":
		f.mu.Lock()
		f.LastRegister = decodeMap(r.Body)
		f.mu.Unlock()
		resp = f.get(&f.Register)
	case "finalize":
		f.mu.Lock()
		f.LastFinalize = decodeMap(r.Body)
		idx := f.finalized
		if idx >= len(f.Finalize) {
			idx = len(f.Finalize) - 1
		}
		f.finalized++
		resp = f.Finalize[idx]
		f.mu.Unlock()
	case "details":
		resp = f.get(&f.Details)
	case "list":
		resp = f.get(&f.List)
	case "delete":
		resp = f.get(&f.Delete)
	case "login":
		resp = f.get(&f.Login)
	case "signup":
		f.mu.Lock()
		f.LastSignUp = decodeMap(r.Body)
		f.mu.Unlock()
		resp = f.get(&f.SignUp)
	case "profile":
		resp = f.get(&f.Profile)
	case "stats":
		resp = f.get(&f.Stats)
	default:
		http.NotFound(w, r)
		return
	}

	switch {
	case resp.ContentType != "":
		w.Header().Set("Content-Type", resp.ContentType)
	case resp.Body != "":
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func (f *FakeBackend) get(r *Response) Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *r
}

func (f *FakeBackend) recordUpload(r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return
	}
	file, header, err := r.FormFile("audioFile")
	if err != nil {
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastUploadName = header.Filename
	f.LastUploadMIME = header.Header.Get("Content-Type")
	f.LastUploadSize = len(data)
}

func route(r *http.Request) string {
	p := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && p == "/consults/upload":
		return "upload"
	case r.Method == http.MethodPost && p == "/consults/finalize":
		return "finalize"
	case r.Method == http.MethodPost && p == "/consults":
		return "register"
	case r.Method == http.MethodGet && p == "/consults":
		return "list"
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/consults/") && strings.HasSuffix(p, "/details"):
		return "details"
	case r.Method == http.MethodDelete && strings.HasPrefix(p, "/consults/"):
		return "delete"
	case r.Method == http.MethodPost && p == "/auth/login":
		return "login"
	case r.Method == http.MethodPost && p == "/auth/register":
		return "signup"
	case r.Method == http.MethodGet && p == "/user/profile":
		return "profile"
	case r.Method == http.MethodGet && p == "/user/stats":
		return "stats"
	}
	return "unknown"
}

func decodeMap(r io.Reader) map[string]any {
	m := make(map[string]any)
	_ = json.NewDecoder(r).Decode(&m)
	return m
}
