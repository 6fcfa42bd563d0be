package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/cache"
	"github.com/jonwraymond/opsgate/health"
	"github.com/jonwraymond/opsgate/internal/blob"
	"github.com/jonwraymond/opsgate/internal/config"
	"github.com/jonwraymond/opsgate/internal/dashboard"
	"github.com/jonwraymond/opsgate/internal/server"
	"github.com/jonwraymond/opsgate/internal/store"
	"github.com/jonwraymond/opsgate/observe"
	"github.com/jonwraymond/opsgate/observe/exporters"
	"github.com/jonwraymond/opsgate/resilience"
)

const cachePurgeInterval = time.Minute

func serve(ctx context.Context, cfg *config.Config) (err error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, obs.Shutdown(sctx))
	}()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}
	log := obs.Logger()

	keys, err := loadKeys(ctx, cfg, log)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{Issuer: cfg.JWTIssuer, Leeway: cfg.JWTLeeway}, keys)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = blobs.Close() }()

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 3 * time.Second, Parallel: true})
	agg.Register("db", health.NewPingChecker("db", st.Ping))
	agg.Register("signing_key", health.NewKeyChecker(keys))

	var c cache.Cache
	if cfg.RedisAddr != "" {
		rc := cache.DialRedis(cfg.RedisAddr, cache.PolicyWithTTL(cfg.DashboardTTL))
		defer func() { _ = rc.Close() }()
		agg.Register("redis", health.NewOptionalPingChecker("redis", rc.Ping))
		c = rc
	} else {
		mc := cache.NewMemoryCache(cache.PolicyWithTTL(cfg.DashboardTTL))
		go purgeLoop(ctx, mc)
		c = mc
	}

	var metrics http.Handler
	if cfg.PrometheusEnabled() {
		metrics = exporters.PrometheusHandler()
	}

	srv, err := server.New(server.Config{
		Store:     st,
		Blobs:     blobs,
		Dashboard: dashboard.New(st, c, cfg.DashboardTTL),
		Verifier:  verifier,
		Health:    agg,
		Observe:   mw,
		Metrics:   metrics,
		Artifacts: server.ArtifactConfig{MaxDownloads: cfg.MaxDownloads},
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ErrorLog:          observe.NewStdLogger(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening",
			observe.Field{Key: "addr", Value: cfg.Addr},
			observe.Field{Key: "version", Value: config.Version},
			observe.Field{Key: "blobs", Value: blobs.Name()},
		)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(sctx)
}

// loadKeys loads the signing key and keeps it fresh: SIGHUP forces a
// reload, and a secretref:file key is watched for changes.
func loadKeys(ctx context.Context, cfg *config.Config, log observe.Logger) (*auth.RotatingKey, error) {
	load, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	keys, err := auth.LoadRotatingKey(ctx, load)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	onErr := func(err error) {
		log.Error(ctx, "signing key rotation failed", observe.Field{Key: "error", Value: err.Error()})
	}
	if path, ok := cfg.KeyFile(); ok {
		if err := auth.WatchKeyFile(ctx, path, keys, onErr); err != nil {
			return nil, err
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := keys.Rotate(ctx); err != nil {
					onErr(err)
					continue
				}
				log.Info(ctx, "signing key rotated", observe.Field{Key: "rotations", Value: keys.Rotations()})
			}
		}
	}()
	return keys, nil
}

// openStore retries the initial open, e.g. while a volume is mounting.
func openStore(ctx context.Context, path string, log observe.Logger) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		Jitter:       true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn(ctx, "database open failed, retrying",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay", Value: delay.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
		},
	})
	return resilience.Do(ctx, resilience.NewExecutor(resilience.WithRetry(retry)),
		func(ctx context.Context) (*store.SQLiteStore, error) {
			return store.Open(ctx, path)
		})
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Source, error) {
	if cfg.BackupGCSBucket != "" {
		return blob.NewGCS(ctx, blob.GCSConfig{
			Bucket:          cfg.BackupGCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
	}
	return blob.OpenDir(cfg.BackupDir)
}

func purgeLoop(ctx context.Context, c *cache.MemoryCache) {
	t := time.NewTicker(cachePurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Purge()
		}
	}
}
