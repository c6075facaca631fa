package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmchat/dmchat-server/internal/app"
	"github.com/dmchat/dmchat-server/internal/config"
	"github.com/dmchat/dmchat-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "dmchat-server",
		Short:         "One-to-one chat server with presence tracking and offline delivery",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("db", "", "path to the sqlite database")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("static-dir", "", "directory of static assets to serve")

	return cmd
}

func run(cmd *cobra.Command, configPath string) error {
	bootLogger := log.New("info")

	cfg, cfgPath, err := config.Load(bootLogger, configPath)
	if err != nil {
		return err
	}

	// Flags win over file and env.
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if staticDir, _ := cmd.Flags().GetString("static-dir"); staticDir != "" {
		cfg.StaticDir = staticDir
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", cfgPath).Str("addr", cfg.Addr).Msg("starting dmchat server")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
