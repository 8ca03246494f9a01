package main

import (
	"log/slog"
	"os"

	"zephyr-lounge/internal/config"
	"zephyr-lounge/pkg/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "api",
	Short:        "Zephyr Lounge API server",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	serveFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads env config and installs the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		return config.Config{}, nil, err
	}
	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	return cfg, log, nil
}
