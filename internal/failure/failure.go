// Package failure defines the discriminated error type shared by every
// I/O-touching component of the sync engine.
//
// Adapters set the Kind at the point where the failure is observed (an HTTP
// status, a transport error, a storage write). Callers branch on the Kind
// with KindOf or errors.As and never inspect error text.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between retry and re-auth.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindNoCredential      Kind = "no_credential"
	KindCredentialExpired Kind = "credential_expired"
	KindSessionExpired    Kind = "session_expired"
	KindAuthRejected      Kind = "auth_rejected"
	KindNetwork           Kind = "network_failure"
	KindRemoteStore       Kind = "remote_store_error"
	KindCacheWrite        Kind = "cache_write_failure"
	KindNotFound          Kind = "not_found"
	KindSyncInProgress    Kind = "sync_in_progress"
	KindInvalidInput      Kind = "invalid_input"
)

// UserMessage returns the short message shown for this kind of failure.
func (k Kind) UserMessage() string {
	switch k {
	case KindNoCredential:
		return "Not connected. Sign in to Google Drive first."
	case KindCredentialExpired, KindSessionExpired:
		return "Reconnect required."
	case KindAuthRejected:
		return "Google Drive rejected the credentials."
	case KindNetwork:
		return "Offline or network unavailable. Try again later."
	case KindRemoteStore:
		return "Google Drive returned an error."
	case KindCacheWrite:
		return "Could not save the book locally. Try the download again."
	case KindNotFound:
		return "Not found."
	case KindSyncInProgress:
		return "A sync is already running."
	case KindInvalidInput:
		return "Invalid request."
	default:
		return "Something went wrong."
	}
}

// Retryable reports whether a whole operation may be retried later without
// user interaction.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindCacheWrite, KindSyncInProgress:
		return true
	default:
		return false
	}
}

// RequiresReauth reports whether the user must authenticate again.
func (k Kind) RequiresReauth() bool {
	switch k {
	case KindNoCredential, KindCredentialExpired, KindSessionExpired:
		return true
	default:
		return false
	}
}

// Error is a failure with a machine-checkable Kind.
type Error struct {
	Kind Kind
	// Op names the operation that failed (e.g. "drive.list", "sync.upload").
	Op string
	// Status is the HTTP status for remote store errors, zero otherwise.
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0 && t.Message == "" && t.Err == nil
}

// New creates a failure of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a failure with a formatted message and no wrapped cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Remote creates a RemoteStoreError carrying the response status and body.
func Remote(op string, status int, message string) *Error {
	return &Error{Kind: KindRemoteStore, Op: op, Status: status, Message: message}
}

// Wrap re-labels err with a new kind and op while keeping it in the chain.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Kind: kind, Op: op, Status: fe.Status, Message: fe.Message, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
