// Package operator provides the caller-facing façade. An Operator composes
// an Accessor with the retry, metrics, circuit-breaker, and timeout layers
// and exposes byte-oriented convenience operations on top of the stream
// interface.
package operator

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// Operator is the object callers use. All semantics live in the composed
// layers; the Operator itself only applies the per-operation deadline and
// adapts streams to byte slices.
type Operator struct {
	acc     accessor.Accessor
	timeout time.Duration
}

// New composes acc with the layers selected by opts. Layer order, outermost
// first: circuit breaker, retry, metrics, backend — so breaker rejections
// are not retried against an open circuit, and metrics see every attempt.
func New(acc accessor.Accessor, opts ...Option) *Operator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.metrics != nil {
		acc = o.metrics(acc)
	}
	if o.retry != nil {
		acc = o.retry(acc)
	}
	if o.breaker != nil {
		acc = o.breaker(acc)
	}
	return &Operator{acc: acc, timeout: o.timeout}
}

// Info returns the backend's description.
func (o *Operator) Info() accessor.Info {
	return o.acc.Info()
}

// deadline bounds one operation. Expiry surfaces as a retryable Unexpected
// fault: from the caller's view a timed-out backend is a transient one.
func (o *Operator) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

func (o *Operator) translateDeadline(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New(errors.KindUnexpected, "operation deadline exceeded").
			WithRetryable(true).
			WithCause(err)
	}
	return err
}

// capability gates an operation on what the backend advertises.
func (o *Operator) capability(op string, supported bool) error {
	if supported {
		return nil
	}
	return accessor.ErrUnsupported(o.acc.Info().Scheme, op)
}

// Stat returns metadata about the object at path.
func (o *Operator) Stat(ctx context.Context, path string) (*types.ObjectInfo, error) {
	if err := o.capability("Stat", o.acc.Info().Capability.Stat); err != nil {
		return nil, err
	}
	ctx, cancel := o.deadline(ctx)
	defer cancel()
	info, err := o.acc.Stat(ctx, path)
	return info, o.translateDeadline(ctx, err)
}

// IsExist reports whether the object at path exists.
func (o *Operator) IsExist(ctx context.Context, path string) (bool, error) {
	_, err := o.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.IsObjectNotFound(err) {
		return false, nil
	}
	return false, err
}

// Reader returns a stream over the requested range. The caller must close
// it; the operation deadline covers the whole stream lifetime.
func (o *Operator) Reader(ctx context.Context, path string, rng types.ByteRange) (io.ReadCloser, error) {
	if err := o.capability("Read", o.acc.Info().Capability.Read); err != nil {
		return nil, err
	}
	ctx, cancel := o.deadline(ctx)
	rc, err := o.acc.Read(ctx, path, rng)
	if err != nil {
		cancel()
		return nil, o.translateDeadline(ctx, err)
	}
	return &cancelReadCloser{ReadCloser: rc, cancel: cancel}, nil
}

// Read returns the whole object as a byte slice.
func (o *Operator) Read(ctx context.Context, path string) ([]byte, error) {
	return o.ReadRange(ctx, path, types.RangeAll())
}

// ReadRange returns the requested range of the object as a byte slice.
func (o *Operator) ReadRange(ctx context.Context, path string, rng types.ByteRange) ([]byte, error) {
	if err := o.capability("Read", o.acc.Info().Capability.Read); err != nil {
		return nil, err
	}
	ctx, cancel := o.deadline(ctx)
	defer cancel()

	rc, err := o.acc.Read(ctx, path, rng)
	if err != nil {
		return nil, o.translateDeadline(ctx, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, o.translateDeadline(ctx, errors.New(errors.KindUnexpected, "reading object body failed").
			WithContext("path", path).
			WithCause(err).
			WithRetryable(true))
	}
	return data, nil
}

// Write stores data at path, replacing any existing object.
func (o *Operator) Write(ctx context.Context, path string, data []byte) error {
	if err := o.capability("Write", o.acc.Info().Capability.Write); err != nil {
		return err
	}
	ctx, cancel := o.deadline(ctx)
	defer cancel()
	return o.translateDeadline(ctx, o.acc.Write(ctx, path, data))
}

// Delete removes the object at path. Deleting a missing object succeeds.
func (o *Operator) Delete(ctx context.Context, path string) error {
	if err := o.capability("Delete", o.acc.Info().Capability.Delete); err != nil {
		return err
	}
	ctx, cancel := o.deadline(ctx)
	defer cancel()
	return o.translateDeadline(ctx, o.acc.Delete(ctx, path))
}

// List returns a lazy sequence of the objects under path. The operation
// deadline applies to establishing the listing; advancing the Lister is
// bounded by the caller's own ctx.
func (o *Operator) List(ctx context.Context, path string) (accessor.Lister, error) {
	if err := o.capability("List", o.acc.Info().Capability.List); err != nil {
		return nil, err
	}
	dctx, cancel := o.deadline(ctx)
	defer cancel()
	lister, err := o.acc.List(dctx, path)
	return lister, o.translateDeadline(dctx, err)
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
