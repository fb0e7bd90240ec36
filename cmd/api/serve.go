package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/infra/httpserver"
	"github.com/gtu-cse396/sdbelt/internal/middleware"
)

func newServeCmd(load loader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			defer closeLogged(c)

			if migrate {
				if err := c.Migrate(ctx); err != nil {
					return err
				}
			}

			cfg := c.Config
			limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
			defer limiter.Stop()

			handler := httpserver.NewRouter(c.Scans, c.Diagnoses, httpserver.Options{
				APIKeys:        cfg.Auth.APIKeys,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RateLimiter:    limiter,
				Metrics:        middleware.NewMetrics(),
				HealthCheckers: c.Checkers,
				Logger:         c.Logger.Named("http"),
				System:         c.System,
			})

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			// graceful shutdown
			c.Logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "create tables before serving")
	return cmd
}
