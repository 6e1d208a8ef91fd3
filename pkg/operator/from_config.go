package operator

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectgate/objectgate/internal/config"
	badgerstore "github.com/objectgate/objectgate/internal/storage/badger"
	fsstore "github.com/objectgate/objectgate/internal/storage/fs"
	gcsstore "github.com/objectgate/objectgate/internal/storage/gcs"
	obsstore "github.com/objectgate/objectgate/internal/storage/obs"
	s3store "github.com/objectgate/objectgate/internal/storage/s3"
	"github.com/objectgate/objectgate/pkg/accessor"
)

// FromConfig builds the backend named by cfg and composes the configured
// layers over it. reg may be nil when metrics are disabled.
func FromConfig(ctx context.Context, cfg *config.Configuration, reg prometheus.Registerer) (*Operator, error) {
	var (
		acc accessor.Accessor
		err error
	)
	switch cfg.Backend.Scheme {
	case config.SchemeS3:
		acc, err = s3store.New(ctx, cfg.Backend.S3)
	case config.SchemeGCS:
		acc, err = gcsstore.New(cfg.Backend.GCS)
	case config.SchemeOBS:
		acc, err = obsstore.New(cfg.Backend.OBS)
	case config.SchemeBadger:
		acc, err = badgerstore.New(cfg.Backend.Badger)
	case config.SchemeFS:
		acc, err = fsstore.New(cfg.Backend.FS)
	default:
		return nil, fmt.Errorf("unknown backend scheme %q", cfg.Backend.Scheme)
	}
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithRetry(cfg.Retry),
		WithTimeout(cfg.Timeout),
	}
	if cfg.Metrics.Enabled && reg != nil {
		opts = append(opts, WithMetrics(reg))
	}
	if cfg.Breaker.Enabled {
		opts = append(opts, WithCircuitBreaker(cfg.Breaker.Config))
	}
	return New(acc, opts...), nil
}
