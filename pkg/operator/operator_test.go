package operator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsstore "github.com/objectgate/objectgate/internal/storage/fs"
	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/retry"
	"github.com/objectgate/objectgate/pkg/types"
)

func fastRetry(maxAttempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newFsOperator(opts ...Option) *Operator {
	backend := fsstore.NewWithFs(afero.NewMemMapFs(), "/data")
	return New(backend, opts...)
}

func TestRoundTrip(t *testing.T) {
	op := newFsOperator(WithRetry(fastRetry(3)))
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "dir/file.txt", []byte("hello world")))

	info, err := op.Stat(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size)

	data, err := op.Read(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	data, err = op.ReadRange(ctx, "dir/file.txt", types.NewRange(6, 5))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	require.NoError(t, op.Delete(ctx, "dir/file.txt"))
	_, err = op.Stat(ctx, "dir/file.txt")
	assert.True(t, errors.IsObjectNotFound(err))
}

func TestIsExist(t *testing.T) {
	op := newFsOperator()
	ctx := context.Background()

	exists, err := op.IsExist(ctx, "file")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, op.Write(ctx, "file", []byte("x")))

	exists, err = op.IsExist(ctx, "file")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReader(t *testing.T) {
	op := newFsOperator()
	ctx := context.Background()
	require.NoError(t, op.Write(ctx, "file", []byte("hello world")))

	rc, err := op.Reader(ctx, "file", types.RangeFrom(6))
	require.NoError(t, err)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "world", string(data))
}

func TestList(t *testing.T) {
	op := newFsOperator()
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "docs/a", []byte("1")))
	require.NoError(t, op.Write(ctx, "docs/b", []byte("2")))

	lister, err := op.List(ctx, "docs")
	require.NoError(t, err)

	entries, err := accessor.Collect(ctx, lister)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "docs/a", entries[0].Path)
	assert.Equal(t, "docs/b", entries[1].Path)
}

// slowAccessor blocks until the operation context expires.
type slowAccessor struct{}

func (slowAccessor) Info() accessor.Info {
	return accessor.Info{Scheme: "slow", Capability: accessor.Full()}
}

func (slowAccessor) wait(ctx context.Context) error {
	<-ctx.Done()
	return errors.From(ctx.Err())
}

func (s slowAccessor) Stat(ctx context.Context, _ string) (*types.ObjectInfo, error) {
	return nil, s.wait(ctx)
}

func (s slowAccessor) Read(ctx context.Context, _ string, _ types.ByteRange) (io.ReadCloser, error) {
	return nil, s.wait(ctx)
}

func (s slowAccessor) Write(ctx context.Context, _ string, _ []byte) error {
	return s.wait(ctx)
}

func (s slowAccessor) Delete(ctx context.Context, _ string) error {
	return s.wait(ctx)
}

func (s slowAccessor) List(ctx context.Context, _ string) (accessor.Lister, error) {
	return nil, s.wait(ctx)
}

func TestTimeoutSurfacesAsRetryableUnexpected(t *testing.T) {
	op := New(slowAccessor{}, WithTimeout(10*time.Millisecond))

	_, err := op.Stat(context.Background(), "file")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnexpected))
	assert.True(t, errors.IsRetryable(err))
}

// flakyAccessor wraps the fs backend, failing the first n calls of each
// operation with a transient error.
type flakyAccessor struct {
	accessor.Accessor
	remaining int
}

func (f *flakyAccessor) Write(ctx context.Context, p string, data []byte) error {
	if f.remaining > 0 {
		f.remaining--
		return errors.New(errors.KindUnexpected, "transient write failure").WithRetryable(true)
	}
	return f.Accessor.Write(ctx, p, data)
}

func TestRetryComposition(t *testing.T) {
	inner := &flakyAccessor{
		Accessor:  fsstore.NewWithFs(afero.NewMemMapFs(), "/data"),
		remaining: 2,
	}
	op := New(inner, WithRetry(fastRetry(5)))
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "file", []byte("payload")))

	data, err := op.Read(ctx, "file")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRetryExhaustionSurfacesLastError(t *testing.T) {
	inner := &flakyAccessor{
		Accessor:  fsstore.NewWithFs(afero.NewMemMapFs(), "/data"),
		remaining: 100,
	}
	op := New(inner, WithRetry(fastRetry(3)))

	err := op.Write(context.Background(), "file", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transient write failure")

	attempts, ok := errors.From(err).ContextValue("attempts")
	require.True(t, ok)
	assert.Equal(t, "3", attempts)
}

// readOnlyAccessor advertises only the read-side capabilities.
type readOnlyAccessor struct {
	accessor.Accessor
}

func (r *readOnlyAccessor) Info() accessor.Info {
	info := r.Accessor.Info()
	info.Capability = accessor.Capability{Stat: true, Read: true, List: true}
	return info
}

func TestUnadvertisedOperationIsUnsupported(t *testing.T) {
	backend := fsstore.NewWithFs(afero.NewMemMapFs(), "/data")
	op := New(&readOnlyAccessor{Accessor: backend})
	ctx := context.Background()

	err := op.Write(ctx, "file", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsUnsupported(err))

	err = op.Delete(ctx, "file")
	require.Error(t, err)
	assert.True(t, errors.IsUnsupported(err))

	_, err = op.Stat(ctx, "file")
	assert.False(t, errors.IsUnsupported(err))
}

func TestInfoPassesThrough(t *testing.T) {
	op := newFsOperator(WithRetry(fastRetry(3)))
	assert.Equal(t, "fs", op.Info().Scheme)
}
