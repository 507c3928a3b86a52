package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medivoice/medivoice/internal/auth"
	"github.com/medivoice/medivoice/internal/consult"
)

const (
	DefaultTimeout = 60 * time.Second
	maxErrorBody   = 64 << 10
)

// ErrNotFound is matched by StatusError for HTTP 404.
var ErrNotFound = errors.New("not found")

// StatusError is a non-success response from a collaborator endpoint.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return consult.ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

type attemptKey struct{}

// WithAttemptID tags every request made with ctx with the submission attempt.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

// Client talks to the consultations backend.
type Client struct {
	client  *http.Client
	baseURL string
	creds   auth.Provider
}

func New(baseURL string, creds auth.Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, authed bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if authed {
		if c.creds == nil {
			return nil, consult.ErrUnauthorized
		}
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := ctx.Value(attemptKey{}).(string); ok && id != "" {
		req.Header.Set("X-Attempt-Id", id)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any, authed bool) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(data), authed)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and wraps transport failures as NetworkError.
func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("Backend: %s failed after %v: %v", op, time.Since(start), err)
		return nil, &consult.NetworkError{Op: op, Err: err}
	}
	return resp, nil
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

// getJSON performs an authenticated GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	resp, err := c.do(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body := readBody(resp)
		log.Printf("Backend: %s returned status %d: %s", op, resp.StatusCode, body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func consultPath(id consult.JobID, suffix string) string {
	return "/consults/" + url.PathEscape(string(id)) + suffix
}
