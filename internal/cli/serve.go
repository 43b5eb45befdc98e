package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gunho/artifact/internal/server"
	"github.com/gunho/artifact/pkg/cache"
	"github.com/gunho/artifact/pkg/deck"
	"github.com/gunho/artifact/pkg/httputil"
	"github.com/gunho/artifact/pkg/pipeline"
	"github.com/gunho/artifact/pkg/quota"
	"github.com/gunho/artifact/pkg/store"
)

// newServeCmd creates the serve command, which runs the HTTP API until the
// context is cancelled.
func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the artifact generation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func serve(ctx context.Context, cfg Config) error {
	logger := loggerFromContext(ctx)
	uptime := newProgress(logger)

	st, err := store.NewFileStore(cfg.Storage.DataDir, cfg.Server.BaseURL)
	if err != nil {
		return err
	}

	c, err := buildCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer c.Close()

	gate, cleanup, err := buildGate(ctx, cfg.Quota)
	if err != nil {
		return err
	}
	defer cleanup()

	// Slide images are often shared across decks, so downloads are
	// memoized in the render cache for a short window.
	fetcher := httputil.NewFetcher(nil, 0).WithCache(c, nil, 15*time.Minute)

	runner := pipeline.NewRunner(gate, st, c, nil, logger)
	runner.Decks = deck.NewGenerator(fetcher, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.New(runner, gate, cfg.Storage.DataDir, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Address, "dataDir", cfg.Storage.DataDir)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil {
		return err
	}
	uptime.done("server stopped")
	return nil
}

// buildCache creates the render cache backend named by the config.
func buildCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		return cache.NewFileCache(cfg.Dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisAddr, "", cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// buildGate creates the quota backend named by the config. The returned
// cleanup disconnects backend clients.
func buildGate(ctx context.Context, cfg QuotaConfig) (quota.Gate, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		g := quota.NewMemoryGate()
		g.AutoProvision(quota.Subscription{
			Plan:   cfg.Plan,
			Status: quota.StatusActive,
			Limits: map[quota.Kind]int{
				quota.KindArtifact: cfg.ArtifactLimit,
				quota.KindDownload: cfg.DownloadLimit,
				quota.KindProject:  cfg.ProjectLimit,
			},
		})
		return g, func() {}, nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		coll := client.Database(cfg.MongoDB).Collection("subscriptions")
		cleanup := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		return quota.NewMongoGate(coll), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
	}
}
