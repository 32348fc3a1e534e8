package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/hedge-desk/api"
	"github.com/warp/hedge-desk/cache"
	"github.com/warp/hedge-desk/config"
	"github.com/warp/hedge-desk/request"
	"github.com/warp/hedge-desk/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8080)")
	serveCmd.Flags().String("db", "", `SQLite database path, ":memory:" for in-memory`)
	serveCmd.Flags().String("redis", "", "Redis address for the summary cache (empty: in-process)")

	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("db_path", serveCmd.Flags().Lookup("db"))
	_ = v.BindPFlag("redis_addr", serveCmd.Flags().Lookup("redis"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	backend, closeCache, err := newCacheBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := &request.Service{
		Store:      store,
		Executives: store,
		Cache:      cache.NewPortfolio(backend, cfg.CacheTTL),
		Log:        logger,

		DefaultMarkup: decimal.NewNullDecimal(cfg.DefaultMarkup),
	}

	scheduler := api.NewExpiryScheduler(svc, logger, cfg.ExpirySchedule)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(svc, store, logger)
	handler.Scheduler = scheduler
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Port,
			"db":   cfg.DBPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newCacheBackend returns Redis when configured and reachable, otherwise an
// in-process cache.
func newCacheBackend(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (cache.Cache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}

	r := cache.NewRedis(cfg.RedisAddr)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logger.WithField("addr", cfg.RedisAddr).Info("using redis summary cache")
	return r, func() { r.Close() }, nil
}
