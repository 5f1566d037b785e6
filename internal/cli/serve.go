package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/cache"
	"github.com/tuespacio/tuespacio/internal/config"
	"github.com/tuespacio/tuespacio/internal/logging"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		Long: "Start an HTTP server exposing listing search, proximity search and favorites. " +
			"Configured from the environment and an optional .env file; set TUESPACIO_REDIS_ADDR to cache listing reads in Redis.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (default: $TUESPACIO_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.DevMode)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeURL := getStoreURL()
	client := recordstore.New(storeURL, "", cfg.Timeout)

	listingCache, closeCache := newListingCache(ctx, cfg)
	defer closeCache()

	srv := web.NewServer(client, listingCache)
	slog.Info("serving api", "store", storeURL, "port", cfg.Port)
	if err := srv.ListenAndServe(ctx, cfg.Port); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// newListingCache connects to Redis when configured and falls back to an
// in-process cache.
func newListingCache(ctx context.Context, cfg *config.Config) (cache.ListingCache, func()) {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err == nil {
			slog.Info("caching listings in redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
			return rc, func() {
				if err := rc.Close(); err != nil {
					slog.Warn("closing redis", "error", err)
				}
			}
		}
		slog.Warn("redis unavailable, caching listings in memory", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewMemory(cfg.CacheTTL), func() {}
}
