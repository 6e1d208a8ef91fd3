// Package fs implements the accessor.Accessor capability interface over an
// afero filesystem. The production constructor jails the backend inside its
// root with a BasePathFs; tests run the same code over a MemMapFs.
package fs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// Config holds the resolved settings for a filesystem backend.
type Config struct {
	Root string `yaml:"root"`
}

// Backend is a filesystem-backed Accessor.
type Backend struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// New creates a backend rooted at the given directory on the host
// filesystem.
func New(cfg Config) (*Backend, error) {
	if cfg.Root == "" {
		return nil, errors.New(errors.KindUnexpected, "fs backend requires a root directory")
	}
	if err := os.MkdirAll(cfg.Root, 0o750); err != nil {
		return nil, errors.New(errors.KindUnexpected, "creating root directory failed").
			WithCause(err).
			WithContext("root", cfg.Root)
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root), cfg.Root), nil
}

// NewWithFs creates a backend over a caller-supplied afero.Fs. Useful for
// testing with afero.NewMemMapFs.
func NewWithFs(fsys afero.Fs, root string) *Backend {
	return &Backend{
		fs:     fsys,
		root:   root,
		logger: slog.Default().With("component", "fs-backend", "root", root),
	}
}

// Info implements accessor.Accessor.
func (b *Backend) Info() accessor.Info {
	return accessor.Info{Scheme: "fs", Root: b.root, Capability: accessor.Full()}
}

func translateError(err error, op, p string) *errors.Error {
	switch {
	case os.IsNotExist(err):
		return errors.New(errors.KindObjectNotFound, "file not found").
			WithOperation(op).
			WithContext("path", p).
			WithCause(err)
	case os.IsPermission(err):
		return errors.New(errors.KindObjectPermissionDenied, "permission denied").
			WithOperation(op).
			WithContext("path", p).
			WithCause(err)
	default:
		return errors.New(errors.KindUnexpected, err.Error()).
			WithOperation(op).
			WithContext("path", p).
			WithCause(err)
	}
}

// Stat implements accessor.Accessor.
func (b *Backend) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return nil, err
	}

	info, statErr := b.fs.Stat(rel)
	if statErr != nil {
		return nil, translateError(statErr, "Stat", p)
	}
	return &types.ObjectInfo{
		Path:         p,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		IsDir:        info.IsDir(),
	}, nil
}

type rangeReader struct {
	io.Reader
	file afero.File
}

func (r *rangeReader) Close() error {
	return r.file.Close()
}

// Read implements accessor.Accessor. Ranged reads seek to the resolved
// start and bound the stream at the resolved length.
func (b *Backend) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return nil, err
	}

	file, openErr := b.fs.Open(rel)
	if openErr != nil {
		return nil, translateError(openErr, "Read", p)
	}
	if rng.IsWhole() {
		return file, nil
	}

	info, statErr := file.Stat()
	if statErr != nil {
		file.Close()
		return nil, translateError(statErr, "Read", p)
	}
	cr, crErr := types.ContentRangeFromRange(uint64(info.Size()), rng)
	if crErr != nil {
		file.Close()
		return nil, errors.From(crErr).WithContext("path", p)
	}

	start, end, _ := cr.RangeExclusive()
	if _, seekErr := file.Seek(int64(start), io.SeekStart); seekErr != nil {
		file.Close()
		return nil, translateError(seekErr, "Read", p)
	}
	return &rangeReader{
		Reader: io.LimitReader(file, int64(end-start)),
		file:   file,
	}, nil
}

// Write implements accessor.Accessor, creating parent directories as
// needed.
func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.From(err)
	}
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return err
	}

	if dir := path.Dir(rel); dir != "." {
		if mkErr := b.fs.MkdirAll(dir, 0o750); mkErr != nil {
			return translateError(mkErr, "Write", p)
		}
	}
	if writeErr := afero.WriteFile(b.fs, rel, data, 0o640); writeErr != nil {
		return translateError(writeErr, "Write", p)
	}
	return nil
}

// Delete implements accessor.Accessor. Deleting a missing file succeeds.
func (b *Backend) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return errors.From(err)
	}
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return err
	}

	if rmErr := b.fs.Remove(rel); rmErr != nil && !os.IsNotExist(rmErr) {
		return translateError(rmErr, "Delete", p)
	}
	return nil
}

// List implements accessor.Accessor over one directory level, sorted by
// name for deterministic output.
func (b *Backend) List(ctx context.Context, p string) (accessor.Lister, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		rel = "."
	}

	infos, readErr := afero.ReadDir(b.fs, rel)
	if readErr != nil {
		return nil, translateError(readErr, "List", p)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]*types.ObjectInfo, 0, len(infos))
	for _, info := range infos {
		entry := path.Join(rel, info.Name())
		if rel == "." {
			entry = info.Name()
		}
		entries = append(entries, &types.ObjectInfo{
			Path:         entry,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			IsDir:        info.IsDir(),
		})
	}
	return accessor.NewSliceLister(entries), nil
}
