// Package accessor defines the capability interface a storage backend
// implements, plus the small pieces every backend shares: capability
// advertisement, path normalization, and list iteration.
package accessor

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// Capability advertises which operations a backend supports. Invoking an
// operation the backend does not advertise fails with KindUnsupported.
type Capability struct {
	Stat   bool
	Read   bool
	Write  bool
	Delete bool
	List   bool
}

// Full returns a Capability with every operation enabled.
func Full() Capability {
	return Capability{Stat: true, Read: true, Write: true, Delete: true, List: true}
}

// Info describes a backend instance.
type Info struct {
	Scheme     string
	Root       string
	Capability Capability
}

// Lister is a lazy sequence of list entries. Next returns io.EOF after the
// last entry.
type Lister interface {
	Next(ctx context.Context) (*types.ObjectInfo, error)
}

// Accessor is the capability interface a storage backend implements. Each
// call is a stateless request/response round trip; failures are reported as
// *errors.Error values. Implementations must honor ctx cancellation and
// release transport resources on every exit path.
type Accessor interface {
	// Info returns the backend's static description.
	Info() Info

	// Stat returns metadata about the object at path.
	Stat(ctx context.Context, p string) (*types.ObjectInfo, error)

	// Read returns a stream over the requested range of the object, or the
	// whole object for a whole-object range. The caller owns the stream
	// and must close it.
	Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error)

	// Write stores data at path, replacing any existing object.
	Write(ctx context.Context, p string, data []byte) error

	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, p string) error

	// List returns a lazy sequence of the objects under path.
	List(ctx context.Context, p string) (Lister, error)
}

// ErrUnsupported builds the error returned when an operation is invoked on
// a backend that does not advertise the capability.
func ErrUnsupported(scheme, op string) *errors.Error {
	return errors.New(errors.KindUnsupported, "operation is not supported by this backend").
		WithOperation(op).
		WithContext("scheme", scheme)
}

// NormalizePath cleans a caller-supplied path into a root-relative form.
// Paths escaping the configured root are rejected with a non-retryable
// Unexpected error.
func NormalizePath(p string) (string, error) {
	cleaned := path.Clean(strings.TrimLeft(p, "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New(errors.KindUnexpected, "path escapes the backend root").
			WithContext("path", p)
	}
	if cleaned == "." {
		cleaned = ""
	}
	return cleaned, nil
}

type sliceLister struct {
	entries []*types.ObjectInfo
	next    int
}

// NewSliceLister wraps an already-materialized entry slice in a Lister.
// Backends whose native listing is not paginated use this.
func NewSliceLister(entries []*types.ObjectInfo) Lister {
	return &sliceLister{entries: entries}
}

func (l *sliceLister) Next(ctx context.Context) (*types.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	if l.next >= len(l.entries) {
		return nil, io.EOF
	}
	entry := l.entries[l.next]
	l.next++
	return entry, nil
}

// Collect drains a Lister into a slice. Intended for callers that do not
// need streaming, and for tests.
func Collect(ctx context.Context, l Lister) ([]*types.ObjectInfo, error) {
	var entries []*types.ObjectInfo
	for {
		entry, err := l.Next(ctx)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}
