// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-fetcher CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials resolved at startup.
	loadedSecrets map[string]string

	// logger is built from the log configuration before any command runs.
	logger = zerolog.Nop()
)

// rootCmd is the base command for the paper-fetcher CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-fetcher",
	Short: "Find and download academic papers from citation lists",
	Long: `paper-fetcher reads a list of citations, searches scholarly sources in
priority order for each paper, scores the candidates against the citation,
and downloads the best match as a PDF with a YAML metadata record.

Sources are queried one at a time per paper with per-source rate limits;
downloads run in a bounded pool with retries and fall back to the next
candidate when configured. Every paper ends with exactly one outcome in
report.yaml and the run database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lc := observability.DefaultLoggingConfig()
		if err := viper.UnmarshalKey("log", &lc); err != nil {
			return fmt.Errorf("reading log configuration: %w", err)
		}
		logger = observability.NewLogger(lc)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		envFile, _ := cmd.Flags().GetString("env-file")
		s, err := secrets.Resolve(dir, envFile)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-fetcher.yaml or ~/.config/paper-fetcher/config.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of credential files")
	pf.String("env-file", ".env", "dotenv file with PAPER_FETCHER_* credentials")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error, disabled)")
	pf.String("log-format", "console", "log format (console, json)")

	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-fetcher")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-fetcher"))
		}
	}

	viper.SetEnvPrefix("PAPER_FETCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
