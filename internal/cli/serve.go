package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/star/assetlist/internal/api"
	"github.com/star/assetlist/internal/cache"
	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/metrics"
	"github.com/star/assetlist/internal/session"
	"github.com/star/assetlist/internal/stream"
	"github.com/star/assetlist/web"
)

const shutdownTimeout = 5 * time.Second

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog browser HTTP server",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	logger := newLogger(os.Stdout, cfg.Log.Level)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	store := catalog.NewStore()
	fetcher := catalog.NewFetcher(cfg.Upstream.Fetcher(), logger.With("component", "fetcher"))
	queryCache := cache.NewQueryCache(cfg.Cache.QueryCache(), fetcher, store, logger.With("component", "cache"))
	sessions := session.NewManager(gctx, cfg.Session.Manager(), queryCache, logger.With("component", "session"))
	streamHandler := stream.NewHandler(sessions, cfg.StreamHandler(), logger.With("component", "stream"))
	srv := api.NewServer(cfg.HTTP.Server(), sessions, queryCache, store, streamHandler, web.Content, logger)

	logger.Info("config",
		"upstream", cfg.Upstream.BaseURL,
		"upstream_retries", cfg.Upstream.Retries,
		"cache_size", cfg.Cache.Size,
		"cache_ttl_seconds", cfg.Cache.TTL.Seconds(),
		"session_ttl_seconds", cfg.Session.IdleTTL.Seconds(),
		"max_sessions", cfg.Session.MaxSessions,
		"trust_proxy", cfg.HTTP.TrustProxy,
	)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.HTTPServer().Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return sessions.Run(gctx)
	})

	// Warm the "All Objects" query so readiness does not wait for the first visitor.
	g.Go(func() error {
		q := catalog.NewQuery(catalog.AllObjectTypes)
		if _, err := queryCache.Get(gctx, q); err != nil && gctx.Err() == nil {
			logger.Warn("catalog warmup failed", "key", q.Key(), "error", err)
		}
		return nil
	})

	// Dataset age gauge.
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetDatasetAge(age)
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		exitErr("serve", err)
	}
	logger.Info("server stopped")
}
