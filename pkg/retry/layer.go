package retry

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/types"
)

// Layer wraps an Accessor and re-executes operations whose failure is
// marked retryable. Non-retryable errors propagate immediately; exhausting
// the budget surfaces the last observed error. Either way the error gains
// an "attempts" context entry.
//
// A read that fails is restarted from the original requested range: the
// wrapped Read is re-invoked with the same arguments, never resumed
// mid-stream.
type Layer struct {
	inner   accessor.Accessor
	retryer *Retryer
	logger  *slog.Logger
}

// NewLayer wraps inner with the given retry policy.
func NewLayer(inner accessor.Accessor, config Config) *Layer {
	if config.OnRetry == nil {
		logger := slog.Default().With("component", "retry-layer", "scheme", inner.Info().Scheme)
		config.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Debug("retrying operation", "attempt", attempt, "delay", delay, "error", err)
		}
	}
	return &Layer{
		inner:   inner,
		retryer: New(config),
		logger:  slog.Default().With("component", "retry-layer"),
	}
}

// Info implements accessor.Accessor.
func (l *Layer) Info() accessor.Info {
	return l.inner.Info()
}

// Stat implements accessor.Accessor.
func (l *Layer) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	var info *types.ObjectInfo
	err := l.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		var err error
		info, err = l.inner.Stat(ctx, p)
		return err
	})
	return info, err
}

// Read implements accessor.Accessor.
func (l *Layer) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := l.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		var err error
		rc, err = l.inner.Read(ctx, p, rng)
		return err
	})
	return rc, err
}

// Write implements accessor.Accessor.
func (l *Layer) Write(ctx context.Context, p string, data []byte) error {
	return l.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		return l.inner.Write(ctx, p, data)
	})
}

// Delete implements accessor.Accessor.
func (l *Layer) Delete(ctx context.Context, p string) error {
	return l.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		return l.inner.Delete(ctx, p)
	})
}

// List implements accessor.Accessor. Only establishing the listing is
// retried here; advancing the Lister goes straight to the backend.
func (l *Layer) List(ctx context.Context, p string) (accessor.Lister, error) {
	var lister accessor.Lister
	err := l.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		var err error
		lister, err = l.inner.List(ctx, p)
		return err
	})
	return lister, err
}
