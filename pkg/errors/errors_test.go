package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	err := New(KindObjectNotFound, "object missing")

	assert.Equal(t, KindObjectNotFound, err.Kind)
	assert.Equal(t, "object missing", err.Message)
	assert.False(t, err.Retryable)
	assert.Empty(t, err.Operation)
	assert.Empty(t, err.Context)
	assert.Nil(t, err.Cause)
}

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := New(KindUnexpected, "request failed").
		WithOperation("Read").
		WithRetryable(true).
		WithContext("path", "/a/b").
		WithContext("response", "status 503").
		WithCause(cause)

	s := err.Error()
	assert.Contains(t, s, "[Read]")
	assert.Contains(t, s, "Unexpected: request failed")
	assert.Contains(t, s, "(retryable)")
	assert.Contains(t, s, "path: /a/b")
	assert.Contains(t, s, "response: status 503")
	assert.Contains(t, s, "cause: connection reset")
}

func TestWithMethodsCopy(t *testing.T) {
	base := New(KindUnexpected, "boom").WithContext("first", "1")

	enriched := base.WithOperation("Write").
		WithContext("second", "2").
		WithRetryable(true)

	// The original must be untouched by downstream enrichment.
	assert.Empty(t, base.Operation)
	assert.False(t, base.Retryable)
	assert.Len(t, base.Context, 1)

	assert.Equal(t, "Write", enriched.Operation)
	assert.True(t, enriched.Retryable)
	assert.Len(t, enriched.Context, 2)
}

func TestContextOrderPreserved(t *testing.T) {
	err := New(KindUnexpected, "boom").
		WithContext("z", "1").
		WithContext("a", "2").
		WithContext("m", "3")

	require.Len(t, err.Context, 3)
	assert.Equal(t, []KV{{"z", "1"}, {"a", "2"}, {"m", "3"}}, err.Context)
}

func TestContextValue(t *testing.T) {
	err := New(KindUnexpected, "boom").
		WithContext("key", "first").
		WithContext("key", "second")

	v, ok := err.ContextValue("key")
	require.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok = err.ContextValue("absent")
	assert.False(t, ok)
}

func TestUnwrapAndIs(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New(KindObjectPermissionDenied, "denied").WithCause(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, &Error{Kind: KindObjectPermissionDenied}))
	assert.False(t, stderrors.Is(err, &Error{Kind: KindObjectNotFound}))
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("already an Error", func(t *testing.T) {
		orig := New(KindObjectNotFound, "missing")
		assert.Same(t, orig, From(orig))
	})

	t.Run("wrapped Error", func(t *testing.T) {
		orig := New(KindObjectNotFound, "missing")
		wrapped := fmt.Errorf("outer: %w", orig)
		assert.Same(t, orig, From(wrapped))
	})

	t.Run("foreign error", func(t *testing.T) {
		cause := stderrors.New("disk on fire")
		e := From(cause)
		assert.Equal(t, KindUnexpected, e.Kind)
		assert.False(t, e.Retryable)
		assert.True(t, stderrors.Is(e, cause))
	})
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsObjectNotFound(New(KindObjectNotFound, "x")))
	assert.True(t, IsObjectPermissionDenied(New(KindObjectPermissionDenied, "x")))
	assert.True(t, IsUnsupported(New(KindUnsupported, "x")))
	assert.False(t, IsObjectNotFound(New(KindUnexpected, "x")))
	assert.False(t, IsObjectNotFound(stderrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(KindUnexpected, "x").WithRetryable(true)))
	assert.False(t, IsRetryable(New(KindUnexpected, "x")))
	assert.False(t, IsRetryable(stderrors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(KindUnexpected, "x").WithRetryable(true))
	assert.True(t, IsRetryable(wrapped))
}
