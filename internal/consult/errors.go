package consult

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the backend rejected the credential (HTTP 401)
	// or no credential is available. Callers should re-authenticate.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a submission is already in progress")
)

// ValidationError reports bad input caught before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// TransferError is a non-success response to an audio upload.
type TransferError struct {
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload failed with status %d: %s", e.StatusCode, e.Body)
}

// RegistrationError is a non-success response when creating a consultation.
type RegistrationError struct {
	StatusCode int
	Body       string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed with status %d: %s", e.StatusCode, e.Body)
}

type FinalizeKind string

const (
	FinalizeBackend       FinalizeKind = "backend"
	FinalizeTimeout       FinalizeKind = "timeout"
	FinalizeMalformedBody FinalizeKind = "malformed_body"
)

// FinalizeError ends a finalize poll. All kinds are terminal.
type FinalizeError struct {
	Kind       FinalizeKind
	StatusCode int
	Body       string
	Err        error
}

func (e *FinalizeError) Error() string {
	switch e.Kind {
	case FinalizeTimeout:
		if e.Err != nil {
			return fmt.Sprintf("timed out waiting for processing: %v", e.Err)
		}
		return "timed out waiting for processing"
	case FinalizeMalformedBody:
		return fmt.Sprintf("finalize returned a malformed body: %s", e.Body)
	default:
		if e.Err != nil {
			return fmt.Sprintf("finalize error %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("finalize error %d: %s", e.StatusCode, e.Body)
	}
}

func (e *FinalizeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsFinalizeKind reports whether err carries a FinalizeError of the given kind.
func IsFinalizeKind(err error, kind FinalizeKind) bool {
	var fe *FinalizeError
	return errors.As(err, &fe) && fe.Kind == kind
}

// NetworkError wraps a connectivity failure at any stage.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}
