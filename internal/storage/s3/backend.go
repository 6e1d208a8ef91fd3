// Package s3 implements the accessor.Accessor capability interface over
// the AWS SDK v2 S3 client. It speaks to AWS S3 and to S3-compatible
// endpoints (MinIO, LocalStack) via the Endpoint/ForcePathStyle settings.
package s3

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cargoconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"

	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/errors"
	"github.com/objectgate/objectgate/pkg/types"
)

// Config holds the resolved settings for an S3 backend. Credentials left
// empty fall through to the SDK's default chain.
type Config struct {
	Bucket   string `yaml:"bucket"`
	Root     string `yaml:"root"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// EnableUploadOptimization routes writes through the cargoship
	// transporter, which multiparts and tunes concurrency for large
	// objects.
	EnableUploadOptimization bool `yaml:"enable_upload_optimization"`
}

// Backend is an S3-backed Accessor.
type Backend struct {
	client      *s3.Client
	transporter *cargoships3.Transporter
	bucket      string
	root        string
	logger      *slog.Logger
}

// New creates an S3 backend for the given bucket.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.KindUnexpected, "s3 backend requires a bucket")
	}
	root, err := accessor.NormalizePath(cfg.Root)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(errors.KindUnexpected, "loading aws config failed").
			WithCause(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	logger := slog.Default().With("component", "s3-backend", "bucket", cfg.Bucket)

	var transporter *cargoships3.Transporter
	if cfg.EnableUploadOptimization {
		transporter = cargoships3.NewTransporter(client, cargoconfig.S3Config{
			Bucket:             cfg.Bucket,
			StorageClass:       cargoconfig.StorageClassStandard,
			MultipartThreshold: 32 * 1024 * 1024,
			MultipartChunkSize: 16 * 1024 * 1024,
			Concurrency:        8,
		})
		logger.Info("upload optimization enabled")
	}

	return &Backend{
		client:      client,
		transporter: transporter,
		bucket:      cfg.Bucket,
		root:        root,
		logger:      logger,
	}, nil
}

// Info implements accessor.Accessor.
func (b *Backend) Info() accessor.Info {
	return accessor.Info{Scheme: "s3", Root: b.root, Capability: accessor.Full()}
}

func (b *Backend) key(p string) (string, error) {
	rel, err := accessor.NormalizePath(p)
	if err != nil {
		return "", err
	}
	if b.root == "" || rel == "" {
		return b.root + rel, nil
	}
	return b.root + "/" + rel, nil
}

// Stat implements accessor.Accessor.
func (b *Backend) Stat(ctx context.Context, p string) (*types.ObjectInfo, error) {
	key, err := b.key(p)
	if err != nil {
		return nil, err
	}

	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err, "Stat", key)
	}

	info := &types.ObjectInfo{
		Path:         p,
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		Metadata:     result.Metadata,
	}
	return info, nil
}

// Read implements accessor.Accessor.
func (b *Backend) Read(ctx context.Context, p string, rng types.ByteRange) (io.ReadCloser, error) {
	key, err := b.key(p)
	if err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}
	if header, ok := rng.Header(); ok {
		input.Range = aws.String(header)
	}

	result, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, translateError(err, "Read", key)
	}

	if cr := aws.ToString(result.ContentRange); cr != "" {
		parsed, err := types.ParseContentRange(cr)
		if err != nil {
			result.Body.Close()
			return nil, errors.From(err).WithOperation("Read")
		}
		if start, end, ok := parsed.Range(); ok {
			b.logger.Debug("ranged read satisfied", "path", p, "start", start, "end", end)
		}
	}
	return result.Body, nil
}

// Write implements accessor.Accessor.
func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}

	if b.transporter != nil {
		result, err := b.transporter.Upload(ctx, cargoships3.Archive{
			Key:    key,
			Reader: bytes.NewReader(data),
			Size:   int64(len(data)),
		})
		if err == nil {
			b.logger.Debug("optimized upload completed",
				"key", key, "size", len(data), "duration", result.Duration)
			return nil
		}
		b.logger.Warn("optimized upload failed, falling back to PutObject",
			"key", key, "error", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return translateError(err, "Write", key)
	}
	return nil
}

// Delete implements accessor.Accessor. S3 DeleteObject is already
// idempotent for missing keys.
func (b *Backend) Delete(ctx context.Context, p string) error {
	key, err := b.key(p)
	if err != nil {
		return err
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		translated := translateError(err, "Delete", key)
		if errors.IsObjectNotFound(translated) {
			return nil
		}
		return translated
	}
	return nil
}

// List implements accessor.Accessor. Pages are fetched on demand through
// ListObjectsV2 continuation tokens.
func (b *Backend) List(ctx context.Context, p string) (accessor.Lister, error) {
	prefix, err := b.key(p)
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

	page  []types.ObjectInfo
	next  int
	token *string
	done  bool
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
	return &entry, nil
}

func (l *pageLister) fetch(ctx context.Context) error {
	result, err := l.backend.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(l.backend.bucket),
		Prefix:            aws.String(l.prefix),
		ContinuationToken: l.token,
	})
	if err != nil {
		return translateError(err, "List", l.prefix)
	}

	l.page = l.page[:0]
	for _, obj := range result.Contents {
		key := aws.ToString(obj.Key)
		if l.relative > 0 && len(key) > l.relative {
			key = key[l.relative+1:]
		}
		l.page = append(l.page, types.ObjectInfo{
			Path:         key,
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	l.next = 0
	l.token = result.NextContinuationToken
	l.done = !aws.ToBool(result.IsTruncated)
	return nil
}
