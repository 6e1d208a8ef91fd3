// Package gcs implements the accessor.Accessor capability interface
// against Google Cloud Storage's JSON API over plain net/http.
//
// Credential acquisition is not this package's concern: callers supply a
// TokenSource and the backend attaches whatever token it yields. A nil
// TokenSource sends unauthenticated requests, which is what the fake GCS
// servers used in tests expect.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

const defaultEndpoint = "https://storage.googleapis.com"

// TokenSource yields a bearer token for request authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds the resolved settings for a GCS backend.
type Config struct {
	Bucket   string `yaml:"bucket"`
	Root     string `yaml:"root"`
	Endpoint string `yaml:"endpoint"`

	// TokenSource and HTTPClient are wired by the caller, not parsed from
	// configuration files.
	TokenSource TokenSource  `yaml:"-"`
	HTTPClient  *http.Client `yaml:"-"`
}

// Backend is a GCS-backed Accessor.
type Backend struct {
	client   *http.Client
	bucket   string
	root     string
	endpoint string
	tokens   TokenSource
	logger   *slog.Logger
}

// New creates a GCS backend for the given bucket.
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.KindUnexpected, "gcs backend requires a bucket")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	root, err := accessor.NormalizePath(cfg.Root)
	if err != nil {
		return nil, err
	}
	return &Backend{
		client:   client,
		bucket:   cfg.Bucket,
		root:     root,
		endpoint: endpoint,
		tokens:   cfg.TokenSource,
		logger:   slog.Default().With("component", "gcs-backend", "bucket", cfg.Bucket),
	}, nil
}

// Info implements accessor.Accessor.
func (b *Backend) Info() accessor.Info {
	return accessor.Info{Scheme: "gcs", Root: b.root, Capability: accessor.Full()}
}

func (b *Backend) absPath(p string) (string, error) {
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return "", err
	}
	if b.root == "" || rel == "" {
		return b.root + rel, nil
	}
	return b.root + "/" + rel, nil
}

func (b *Backend) objectURL(object string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s", b.endpoint, b.bucket, url.PathEscape(object))
}

func (b *Backend) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if b.tokens != nil {
		token, err := b.tokens.Token(ctx)
		if err != nil {
			return nil, errors.New(errors.KindUnexpected, "acquiring access token failed").
				WithCause(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// transportError classifies request-level failures: the request never
// produced a response, so the fault is transient from the caller's view
// unless the caller canceled the operation itself.
func transportError(err error) *errors.Error {
	e := errors.New(errors.KindUnexpected, "sending request failed").WithCause(err)
	if stderrors.Is(err, context.Canceled) {
		return e
	}
	return e.WithRetryable(true)
}

// decodeJSON decodes a success-path JSON body, wrapping failures as
// non-retryable Unexpected errors.
func decodeJSON(r io.Reader, v any) *errors.Error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.New(errors.KindUnexpected, "deserialize json").WithCause(err)
	}
	return nil
}

// gcsObject mirrors the JSON metadata document for an object. GCS encodes
// sizes as decimal strings.
type gcsObject struct {
	Name        string    `json:"name"`
	Size        string    `json:"size"`
	Updated     time.Time `json:"updated"`
	ETag        string    `json:"etag"`
	ContentType string    `json:"contentType"`
}

func (o gcsObject) toObjectInfo(p string) *types.ObjectInfo {
	size, _ := strconv.ParseInt(o.Size, 10, 64)
	return &types.ObjectInfo{
		Path:         p,
		Size:         size,
		LastModified: o.Updated,
		ETag:         o.ETag,
		ContentType:  o.ContentType,
	}
}

// Stat implements accessor.Accessor.
func (b *Backend) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	object, err := b.absPath(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.objectURL(object), nil)
	if err != nil {
		return nil, errors.From(err)
	}
	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp, "Stat")
	}
	defer resp.Body.Close()

	var meta gcsObject
	if err := decodeJSON(resp.Body, &meta); err != nil {
		return nil, err.WithOperation("Stat")
	}
	return meta.toObjectInfo(p), nil
}

// Read implements accessor.Accessor. Partial responses carry a
// Content-Range header; it is parsed so a malformed range from the server
// is caught before the caller consumes misaligned bytes.
func (b *Backend) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	object, err := b.absPath(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.objectURL(object)+"?alt=media", nil)
	if err != nil {
		return nil, errors.From(err)
	}
	if header, ok := rng.Header(); ok {
		req.Header.Set("Range", header)
	}

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusPartialContent:
		cr, err := types.ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			resp.Body.Close()
			return nil, errors.From(err).WithOperation("Read")
		}
		if start, end, ok := cr.Range(); ok {
			b.logger.Debug("ranged read satisfied", "path", p, "start", start, "end", end)
		}
		return resp.Body, nil
	default:
		return nil, parseError(resp, "Read")
	}
}

// Write implements accessor.Accessor using a simple media upload.
func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	object, err := b.absPath(p)
	if err != nil {
		return err
	}

	uploadURL := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		b.endpoint, b.bucket, url.QueryEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return errors.From(err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(data))

	resp, err := b.do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return parseError(resp, "Write")
	}
	resp.Body.Close()
	return nil
}

// Delete implements accessor.Accessor. Deleting a missing object succeeds.
func (b *Backend) Delete(ctx context.Context, p string) error {
	object, err := b.absPath(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.objectURL(object), nil)
	if err != nil {
		return errors.From(err)
	}
	resp, err := b.do(ctx, req)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		resp.Body.Close()
		return nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil
	default:
		return parseError(resp, "Delete")
	}
}

// List implements accessor.Accessor. Pages are fetched on demand as the
// returned Lister is advanced.
func (b *Backend) List(ctx context.Context, p string) (accessor.Lister, error) {
	prefix, err := b.absPath(p)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefix += "/"
	}
	return &pageLister{backend: b, prefix: prefix, relative: len(b.root)}, nil
}

type listPage struct {
	Items         []gcsObject `json:"items"`
	NextPageToken string      `json:"nextPageToken"`
}

type pageLister struct {
	backend  *Backend
	prefix   string
	relative int

	page      []gcsObject
	next      int
	pageToken string
	done      bool
}

func (l *pageLister) Next(ctx context.Context) (*types.ObjectInfo, error) {
	for l.next >= len(l.page) {
		if l.done {
			return nil, io.EOF
		}
		if err := l.fetch(ctx); err != nil {
			return nil, err
		}
	}
	obj := l.page[l.next]
	l.next++

	rel := obj.Name
	if l.relative > 0 && len(rel) > l.relative {
		rel = rel[l.relative+1:]
	}
	return obj.toObjectInfo(rel), nil
}

func (l *pageLister) fetch(ctx context.Context) error {
	listURL := fmt.Sprintf("%s/storage/v1/b/%s/o?prefix=%s",
		l.backend.endpoint, l.backend.bucket, url.QueryEscape(l.prefix))
	if l.pageToken != "" {
		listURL += "&pageToken=" + url.QueryEscape(l.pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return errors.From(err)
	}
	resp, err := l.backend.do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return parseError(resp, "List")
	}
	defer resp.Body.Close()

	var page listPage
	if err := decodeJSON(resp.Body, &page); err != nil {
		return err.WithOperation("List")
	}
	l.page = page.Items
	l.next = 0
	l.pageToken = page.NextPageToken
	l.done = page.NextPageToken == ""
	return nil
}
