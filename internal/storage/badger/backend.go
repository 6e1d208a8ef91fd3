// Package badger implements the accessor.Accessor capability interface
// over an embedded Badger key-value store. Objects are stored whole under
// their path; ranged reads are sliced out of the stored value with the
// same range arithmetic the HTTP backends use on the wire.
package badger

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// Config holds the resolved settings for a Badger backend.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string `yaml:"dir"`
	// Root prefixes every key, scoping this backend to a subtree of the
	// database.
	Root string `yaml:"root"`
	// InMemory keeps the store entirely in memory. Used by tests and
	// scratch workloads.
	InMemory bool `yaml:"in_memory"`
}

// Backend is a Badger-backed Accessor.
type Backend struct {
	db     *badger.DB
	root   string
	logger *slog.Logger
}

// New opens (or creates) the database and returns a backend over it.
func New(cfg Config) (*Backend, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New(errors.KindUnexpected, "badger backend requires a directory")
	}
	root, err := accessor.NormalizePath(cfg.Root)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.New(errors.KindUnexpected, "opening badger database failed").
			WithCause(err).
			WithContext("dir", cfg.Dir)
	}
	return &Backend{
		db:     db,
		root:   root,
		logger: slog.Default().With("component", "badger-backend"),
	}, nil
}

// Close releases the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Info implements accessor.Accessor.
func (b *Backend) Info() accessor.Info {
	return accessor.Info{Scheme: "badger", Root: b.root, Capability: accessor.Full()}
}

func (b *Backend) key(p string) ([]byte, error) {
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return nil, err
	}
	if b.root == "" || rel == "" {
		return []byte(b.root + rel), nil
	}
	return []byte(b.root + "/" + rel), nil
}

func (b *Backend) get(p string) ([]byte, *errors.Error) {
	key, err := b.key(p)
	if err != nil {
		return nil, errors.From(err)
	}

	var value []byte
	viewErr := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if viewErr != nil {
		if stderrors.Is(viewErr, badger.ErrKeyNotFound) {
			return nil, errors.New(errors.KindObjectNotFound, "key not found").
				WithContext("path", p)
		}
		return nil, errors.New(errors.KindUnexpected, "reading key failed").
			WithCause(viewErr).
			WithContext("path", p)
	}
	return value, nil
}

// Stat implements accessor.Accessor. Badger keeps no per-key timestamps,
// so LastModified is left zero.
func (b *Backend) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	value, err := b.get(p)
	if err != nil {
		return nil, err.WithOperation("Stat")
	}
	return &types.ObjectInfo{Path: p, Size: int64(len(value))}, nil
}

// Read implements accessor.Accessor. The requested range is resolved
// against the stored value's length and sliced out.
func (b *Backend) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	value, gerr := b.get(p)
	if gerr != nil {
		return nil, gerr.WithOperation("Read")
	}

	if rng.IsWhole() {
		return io.NopCloser(bytes.NewReader(value)), nil
	}

	cr, err := types.ContentRangeFromRange(uint64(len(value)), rng)
	if err != nil {
		return nil, errors.From(err).WithOperation("Read").WithContext("path", p)
	}
	start, end, _ := cr.RangeExclusive()
	return io.NopCloser(bytes.NewReader(value[start:end])), nil
}

// Write implements accessor.Accessor.
func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.From(err)
	}
	key, err := b.key(p)
	if err != nil {
		return err
	}

	updateErr := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if updateErr != nil {
		return errors.New(errors.KindUnexpected, "writing key failed").
			WithOperation("Write").
			WithCause(updateErr).
			WithContext("path", p)
	}
	return nil
}

// Delete implements accessor.Accessor. Badger deletes are idempotent.
func (b *Backend) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return errors.From(err)
	}
	key, err := b.key(p)
	if err != nil {
		return err
	}

	updateErr := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if updateErr != nil {
		return errors.New(errors.KindUnexpected, "deleting key failed").
			WithOperation("Delete").
			WithCause(updateErr).
			WithContext("path", p)
	}
	return nil
}

// List implements accessor.Accessor. The iteration runs inside one view
// transaction, so entries are materialized before the Lister is returned.
func (b *Backend) List(ctx context.Context, p string) (accessor.Lister, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.From(err)
	}
	prefix, err := b.key(p)
	if err != nil {
		return nil, err
	}
	if len(prefix) > 0 {
		prefix = append(prefix, '/')
	}

	start := time.Now()
	var entries []*types.ObjectInfo
	viewErr := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if b.root != "" {
				key = key[len(b.root)+1:]
			}
			entries = append(entries, &types.ObjectInfo{
				Path: key,
				Size: item.ValueSize(),
			})
		}
		return nil
	})
	if viewErr != nil {
		return nil, errors.New(errors.KindUnexpected, "listing keys failed").
			WithOperation("List").
			WithCause(viewErr).
			WithContext("path", p)
	}

	b.logger.Debug("list scan finished",
		"path", p, "entries", len(entries), "elapsed", time.Since(start))
	return accessor.NewSliceLister(entries), nil
}
