package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/app"
	"github.com/gtu-cse396/sdbelt/internal/config"
	"github.com/gtu-cse396/sdbelt/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sdbelt",
		Short:         "SD-Belt scan service",
		Long:          "sdbelt records conveyor belt scan results and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// path config.yaml
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to config.yaml (env CONFIG_PATH)")

	load := func(ctx context.Context) (*app.Container, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		c, err := app.BuildContainer(ctx, cfg, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
		return c, nil
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newMigrateCmd(load))
	root.AddCommand(newArchiveCmd(load))
	return root
}

type loader func(ctx context.Context) (*app.Container, error)

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLogged(c)

			if err := c.Migrate(cmd.Context()); err != nil {
				return err
			}
			c.Logger.Info("migration complete")
			return nil
		},
	}
}

func closeLogged(c *app.Container) {
	if err := c.Close(); err != nil {
		c.Logger.Warn("close failed", zap.Error(err))
	}
	_ = c.Logger.Sync()
}
