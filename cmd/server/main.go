// Command server serves the colornote HTTP JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/colornote/internal/api"
	"github.com/kuitang/colornote/internal/attachments"
	"github.com/kuitang/colornote/internal/config"
	"github.com/kuitang/colornote/internal/db"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/obs"
	"github.com/kuitang/colornote/internal/ratelimit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	flags, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.PrintStartupSummary()
	obs.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obs.Pkg("main").Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := obs.Pkg("main")

	key, err := cfg.DatabaseKey()
	if err != nil {
		return fmt.Errorf("database key: %w", err)
	}
	store, err := db.Open(cfg.DatabasePath, key)
	if err != nil {
		return err
	}
	defer store.Close()

	images, closeImages, err := openImages(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeImages()

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()

	svc := notes.NewService(store, images)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newHandler(svc, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server_listening", "addr", cfg.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openImages connects to S3, or starts an in-memory S3 for --no-s3.
func openImages(ctx context.Context, cfg *config.Config) (*attachments.Store, func(), error) {
	if cfg.NoS3 {
		store, stop, err := attachments.NewInMemory(ctx, cfg.AWSBucketName)
		if err != nil {
			return nil, nil, fmt.Errorf("in-memory S3: %w", err)
		}
		return store, stop, nil
	}
	store, err := attachments.New(ctx, attachments.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.AWSBucketName,
		PublicURL:       cfg.AWSPublicURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("S3: %w", err)
	}
	return store, func() {}, nil
}

// newHandler mounts the API and wraps it, outermost first, in request
// context, access logging and per-client rate limiting.
func newHandler(svc *notes.Service, limiter *ratelimit.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	api.NewHandler(svc).RegisterRoutes(mux)

	var h http.Handler = mux
	h = ratelimit.RateLimitMiddleware(limiter, obs.ClientIP)(h)
	h = obs.AccessLogMiddleware("http", h)
	h = obs.RequestContextMiddleware(h)
	return h
}
