// Package errors provides the unified error type shared by every backend
// and layer: a kind drawn from a closed taxonomy, a human-readable message,
// ordered diagnostic context, an orthogonal retryable flag, and an optional
// wrapped cause.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. The set is closed; backends map their own
// error vocabulary onto it.
type Kind string

const (
	// KindObjectNotFound means the requested object does not exist.
	KindObjectNotFound Kind = "ObjectNotFound"
	// KindObjectPermissionDenied means the caller may not perform the
	// operation on the object.
	KindObjectPermissionDenied Kind = "ObjectPermissionDenied"
	// KindUnsupported means the backend does not advertise the capability
	// the operation requires.
	KindUnsupported Kind = "Unsupported"
	// KindUnexpected is the catch-all for malformed input, parse failures,
	// and backend-signaled transient or unknown faults.
	KindUnexpected Kind = "Unexpected"
)

// KV is one diagnostic context entry. Context preserves append order.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error is the unified error value. Instances are immutable once
// constructed; the With* methods copy, so a wrapping layer can enrich an
// error without disturbing what the layer below returned.
type Error struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Operation string `json:"operation,omitempty"`
	Context   []KV   `json:"context,omitempty"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

// New creates an Error of the given kind. Errors start non-retryable;
// classifiers opt in via WithRetryable.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		fmt.Fprintf(&b, "[%s] ", e.Operation)
	}
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Retryable {
		b.WriteString(" (retryable)")
	}
	for _, kv := range e.Context {
		fmt.Fprintf(&b, "\n  %s: %s", kv.Key, kv.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the wrapped lower-level cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two Errors by kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) clone() *Error {
	dup := *e
	dup.Context = make([]KV, len(e.Context), len(e.Context)+1)
	copy(dup.Context, e.Context)
	return &dup
}

// WithOperation returns a copy of e recording the operation that failed.
func (e *Error) WithOperation(op string) *Error {
	dup := e.clone()
	dup.Operation = op
	return dup
}

// WithContext returns a copy of e with a diagnostic key/value appended.
// Context never affects control flow.
func (e *Error) WithContext(key, value string) *Error {
	dup := e.clone()
	dup.Context = append(dup.Context, KV{Key: key, Value: value})
	return dup
}

// WithCause returns a copy of e wrapping the lower-level cause.
func (e *Error) WithCause(cause error) *Error {
	dup := e.clone()
	dup.Cause = cause
	return dup
}

// WithRetryable returns a copy of e with the retryable flag set. The flag
// is orthogonal to the kind: an Unexpected from a 500 is retryable, one
// from a malformed header is not.
func (e *Error) WithRetryable(retryable bool) *Error {
	dup := e.clone()
	dup.Retryable = retryable
	return dup
}

// ContextValue returns the first context value recorded under key.
func (e *Error) ContextValue(key string) (string, bool) {
	for _, kv := range e.Context {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// From coerces an arbitrary error into an *Error. An *Error anywhere in
// err's chain is returned as is; anything else becomes a non-retryable
// Unexpected wrapping the original.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(KindUnexpected, err.Error()).WithCause(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsObjectNotFound reports whether err is an ObjectNotFound error.
func IsObjectNotFound(err error) bool {
	return IsKind(err, KindObjectNotFound)
}

// IsObjectPermissionDenied reports whether err is a permission error.
func IsObjectPermissionDenied(err error) bool {
	return IsKind(err, KindObjectPermissionDenied)
}

// IsUnsupported reports whether err is an Unsupported error.
func IsUnsupported(err error) bool {
	return IsKind(err, KindUnsupported)
}

// IsRetryable reports whether the same operation may succeed if reattempted
// without caller intervention.
func IsRetryable(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Retryable
}
