package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jonwraymond/opsgate/internal/blob"
	"github.com/jonwraymond/opsgate/resilience"
)

// ArtifactConfig tunes access to the blob source.
type ArtifactConfig struct {
	// MaxDownloads caps concurrent artifact streams.
	// Default: 4
	MaxDownloads int

	// StatTimeout bounds each metadata attempt.
	// Default: 5s
	StatTimeout time.Duration

	// Retry configures retries of Stat and Open.
	// Default: 3 attempts starting at 50ms.
	Retry resilience.RetryConfig

	// Circuit configures the breaker shared by Stat and Open.
	Circuit resilience.CircuitBreakerConfig
}

// artifacts reads backup artifacts through a circuit breaker and retries.
// Open has no per-attempt timeout because the returned stream is bound to
// the attempt's context.
type artifacts struct {
	src       blob.Source
	stat      *resilience.Executor
	open      *resilience.Executor
	downloads *resilience.Bulkhead
	breaker   *resilience.CircuitBreaker
}

func newArtifacts(src blob.Source, cfg ArtifactConfig) *artifacts {
	if cfg.MaxDownloads <= 0 {
		cfg.MaxDownloads = 4
	}
	if cfg.StatTimeout <= 0 {
		cfg.StatTimeout = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
		cfg.Retry.InitialDelay = 50 * time.Millisecond
		cfg.Retry.Jitter = true
	}

	breaker := resilience.NewCircuitBreaker(cfg.Circuit)
	retry := resilience.NewRetry(cfg.Retry)
	return &artifacts{
		src: src,
		stat: resilience.NewExecutor(
			resilience.WithCircuitBreaker(breaker),
			resilience.WithRetry(retry),
			resilience.WithTimeout(cfg.StatTimeout),
		),
		open: resilience.NewExecutor(
			resilience.WithCircuitBreaker(breaker),
			resilience.WithRetry(retry),
		),
		downloads: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: cfg.MaxDownloads}),
		breaker:   breaker,
	}
}

func (a *artifacts) Stat(ctx context.Context, location string) (blob.Info, error) {
	return resilience.Do(ctx, a.stat, func(ctx context.Context) (blob.Info, error) {
		info, err := a.src.Stat(ctx, location)
		return info, classifyBlobErr(err)
	})
}

func (a *artifacts) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return resilience.Do(ctx, a.open, func(ctx context.Context) (io.ReadCloser, error) {
		r, err := a.src.Open(ctx, location)
		return r, classifyBlobErr(err)
	})
}

// classifyBlobErr marks answers that retrying cannot change.
func classifyBlobErr(err error) error {
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidLocation) {
		return resilience.Permanent(err)
	}
	return err
}
