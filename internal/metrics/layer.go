package metrics

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/types"
)

// Layer wraps an Accessor and records operation counts, error kinds, and
// latency for every call.
type Layer struct {
	inner     accessor.Accessor
	collector *Collector
}

// NewLayer wraps inner, registering instruments with reg.
func NewLayer(inner accessor.Accessor, reg prometheus.Registerer) *Layer {
	return &Layer{
		inner:     inner,
		collector: NewCollector(reg, inner.Info().Scheme),
	}
}

func (l *Layer) observe(op string, start time.Time, err error) {
	l.collector.Observe(op, time.Since(start).Seconds(), err)
}

// Info implements accessor.Accessor.
func (l *Layer) Info() accessor.Info {
	return l.inner.Info()
}

// Stat implements accessor.Accessor.
func (l *Layer) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	start := time.Now()
	info, err := l.inner.Stat(ctx, p)
	l.observe("stat", start, err)
	return info, err
}

// Read implements accessor.Accessor. Latency covers establishing the
// stream, not draining it.
func (l *Layer) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := l.inner.Read(ctx, p, rng)
	l.observe("read", start, err)
	return rc, err
}

// Write implements accessor.Accessor.
func (l *Layer) Write(ctx context.Context, p string, data []byte) error {
	start := time.Now()
	err := l.inner.Write(ctx, p, data)
	l.observe("write", start, err)
	return err
}

// Delete implements accessor.Accessor.
func (l *Layer) Delete(ctx context.Context, p string) error {
	start := time.Now()
	err := l.inner.Delete(ctx, p)
	l.observe("delete", start, err)
	return err
}

// List implements accessor.Accessor.
func (l *Layer) List(ctx context.Context, p string) (accessor.Lister, error) {
	start := time.Now()
	lister, err := l.inner.List(ctx, p)
	l.observe("list", start, err)
	return lister, err
}
