// Package cmd implements the subday command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subday/internal/config"
	"gitlab.com/yelinaung/subday/internal/logger"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var build = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

var rootCmd = &cobra.Command{
	Use:           "subday",
	Short:         "Subscription tracker API and reminder service",
	Long:          "Track recurring subscriptions, see what is due, and get reminded before payments.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute(info BuildInfo) {
	build = info
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogHashSalt != "" {
		logger.InitHashSalt()
	} else {
		logger.Log.Warn().Msg("LOG_HASH_SALT is not set, user ids are hashed with the default salt")
	}
	return cfg, nil
}
