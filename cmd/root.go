// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fetchbot/internal/config"
	"fetchbot/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig    string
	flagDatabase  string
	flagLogFormat string
	flagJSON      bool
	flagDebug     bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

// logger is built from cfg once it is loaded.
var logger = logging.Nop()

var rootCmd = &cobra.Command{
	Use:   "fetchbot",
	Short: "Telegram bot that fetches videos and audio from links",
	Long: `Fetchbot receives links in a Telegram chat, resolves the media behind them
with yt-dlp and sends the video or audio back, within Telegram's upload limit.

Run "fetchbot serve" to start the bot. The other commands administer and
report on its database.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/fetchbot/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "database", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: console | json")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Print reports as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(banCmd, unbanCmd, blockCmd, unblockCmd, banlistCmd)
	rootCmd.AddCommand(statsCmd, topDomainsCmd, topVideosCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration and builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file and environment values
	if flagDatabase != "" {
		cfg.DatabasePath = flagDatabase
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return nil
}
