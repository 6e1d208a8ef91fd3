package circuit

import (
	"context"
	"io"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/types"
)

// Layer wraps an Accessor with a circuit breaker shared across all of the
// backend's operations.
type Layer struct {
	inner   accessor.Accessor
	breaker *Breaker
}

// NewLayer wraps inner with a breaker named after the backend scheme.
func NewLayer(inner accessor.Accessor, config Config) *Layer {
	return &Layer{
		inner:   inner,
		breaker: NewBreaker(inner.Info().Scheme, config),
	}
}

// Breaker exposes the underlying breaker for observation and reset.
func (l *Layer) Breaker() *Breaker {
	return l.breaker
}

// Info implements accessor.Accessor.
func (l *Layer) Info() accessor.Info {
	return l.inner.Info()
}

// Stat implements accessor.Accessor.
func (l *Layer) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	var info *types.ObjectInfo
	err := l.breaker.Execute(func() error {
		var err error
		info, err = l.inner.Stat(ctx, p)
		return err
	})
	return info, err
}

// Read implements accessor.Accessor.
func (l *Layer) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := l.breaker.Execute(func() error {
		var err error
		rc, err = l.inner.Read(ctx, p, rng)
		return err
	})
	return rc, err
}

// Write implements accessor.Accessor.
func (l *Layer) Write(ctx context.Context, p string, data []byte) error {
	return l.breaker.Execute(func() error {
		return l.inner.Write(ctx, p, data)
	})
}

// Delete implements accessor.Accessor.
func (l *Layer) Delete(ctx context.Context, p string) error {
	return l.breaker.Execute(func() error {
		return l.inner.Delete(ctx, p)
	})
}

// List implements accessor.Accessor.
func (l *Layer) List(ctx context.Context, p string) (accessor.Lister, error) {
	var lister accessor.Lister
	err := l.breaker.Execute(func() error {
		var err error
		lister, err = l.inner.List(ctx, p)
		return err
	})
	return lister, err
}
