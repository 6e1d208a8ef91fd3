// Package obs implements the accessor.Accessor capability interface
// against Huawei OBS's S3-style XML protocol over plain net/http.
//
// Request signing is not this package's concern: callers supply a
// RequestSigner and the backend invokes it on every outgoing request. A nil
// signer sends unsigned requests.
package obs

import (
	"bytes"
	"context"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// RequestSigner signs an outgoing request in place.
type RequestSigner interface {
	Sign(req *http.Request) error
}

// Config holds the resolved settings for an OBS backend.
type Config struct {
	Bucket   string `yaml:"bucket"`
	Root     string `yaml:"root"`
	Endpoint string `yaml:"endpoint"`

	Signer     RequestSigner `yaml:"-"`
	HTTPClient *http.Client  `yaml:"-"`
}

// Backend is an OBS-backed Accessor.
type Backend struct {
	client   *http.Client
	bucket   string
	root     string
	endpoint string
	signer   RequestSigner
	logger   *slog.Logger
}

// New creates an OBS backend for the given bucket and endpoint.
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.KindUnexpected, "obs backend requires a bucket")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.KindUnexpected, "obs backend requires an endpoint")
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
		endpoint: cfg.Endpoint,
		signer:   cfg.Signer,
		logger:   slog.Default().With("component", "obs-backend", "bucket", cfg.Bucket),
	}, nil
}

// Info implements accessor.Accessor.
func (b *Backend) Info() accessor.Info {
	return accessor.Info{Scheme: "obs", Root: b.root, Capability: accessor.Full()}
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
	// Escape per segment so slashes in the key survive as path separators.
	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s", b.endpoint, strings.Join(segments, "/"))
}

func (b *Backend) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if b.signer != nil {
		if err := b.signer.Sign(req); err != nil {
			return nil, errors.New(errors.KindUnexpected, "signing request failed").
				WithCause(err)
		}
	}
	resp, err := b.client.Do(req)
	if err != nil {
		e := errors.New(errors.KindUnexpected, "sending request failed").WithCause(err)
		if stderrors.Is(err, context.Canceled) {
			return nil, e
		}
		return nil, e.WithRetryable(true)
	}
	return resp, nil
}

// Stat implements accessor.Accessor via HEAD. HEAD responses have no error
// body, so classification falls back to the status table alone.
func (b *Backend) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	object, err := b.absPath(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.objectURL(object), nil)
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
	resp.Body.Close()

	info := &types.ObjectInfo{
		Path:        p,
		Size:        resp.ContentLength,
		ETag:        resp.Header.Get("ETag"),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if modified := resp.Header.Get("Last-Modified"); modified != "" {
		if t, err := http.ParseTime(modified); err == nil {
			info.LastModified = t
		}
	}
	return info, nil
}

// Read implements accessor.Accessor.
func (b *Backend) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	object, err := b.absPath(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.objectURL(object), nil)
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

// Write implements accessor.Accessor.
func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	object, err := b.absPath(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.objectURL(object), bytes.NewReader(data))
	if err != nil {
		return errors.From(err)
	}
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
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		resp.Body.Close()
		return nil
	default:
		return parseError(resp, "Delete")
	}
}

// listBucketResult mirrors the XML list document of the S3-style protocol.
type listBucketResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	IsTruncated bool          `xml:"IsTruncated"`
	NextMarker  string        `xml:"NextMarker"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
}

// List implements accessor.Accessor. Pages are fetched on demand.
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

type pageLister struct {
	backend  *Backend
	prefix   string
	relative int

	page   []listContent
	next   int
	marker string
	done   bool
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
	entry := l.page[l.next]
	l.next++

	rel := entry.Key
	if l.relative > 0 && len(rel) > l.relative {
		rel = rel[l.relative+1:]
	}
	info := &types.ObjectInfo{
		Path: rel,
		Size: entry.Size,
		ETag: entry.ETag,
	}
	if t, err := time.Parse(time.RFC3339, entry.LastModified); err == nil {
		info.LastModified = t
	}
	return info, nil
}

func (l *pageLister) fetch(ctx context.Context) error {
	listURL := l.backend.endpoint + "/?prefix=" + url.QueryEscape(l.prefix)
	if l.marker != "" {
		listURL += "&marker=" + url.QueryEscape(l.marker)
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindUnexpected, "reading list response failed").
			WithOperation("List").
			WithCause(err).
			WithRetryable(true)
	}
	var result listBucketResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return errors.New(errors.KindUnexpected, "deserialize xml").
			WithOperation("List").
			WithCause(err).
			WithContext("body_size", strconv.Itoa(len(body)))
	}

	l.page = result.Contents
	l.next = 0
	l.done = !result.IsTruncated
	if result.NextMarker != "" {
		l.marker = result.NextMarker
	} else if len(result.Contents) > 0 {
		l.marker = result.Contents[len(result.Contents)-1].Key
	}
	return nil
}
