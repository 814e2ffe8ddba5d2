// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// runFlagKeys maps run flags to the configuration keys they override.
var runFlagKeys = map[string]string{
	"output":      "output_dir",
	"concurrency": "concurrency",
	"threshold":   "match.threshold",
	"year-window": "match.year_window",
	"timeout":     "http.timeout",
	"proxy":       "http.proxy",
}

// addRunFlags registers the flags shared by fetch and search.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory (default downloads)")
	f.Int("concurrency", 0, "papers processed at once (default 3)")
	f.Float64("threshold", 0, "minimum match score (default 0.5)")
	f.Int("year-window", 0, "years a candidate may differ and still match fully (default 1)")
	f.Duration("timeout", 0, "HTTP request timeout (default 60s)")
	f.String("proxy", "", "HTTP proxy URL")
	f.StringSlice("sources", nil, "enable only these sources, e.g. arxiv,openalex")
}

// applyFlags copies explicitly set flags over the configuration, so a flag
// overrides the config file, which overrides the defaults.
func applyFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
}

// loadConfig builds the run configuration from defaults, the config file,
// the environment, and flags, then validates it.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	applyFlags(cmd, runFlagKeys)

	cfg := types.DefaultConfig()
	if viper.IsSet("sources") {
		cfg.Sources = nil
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if only, _ := cmd.Flags().GetStringSlice("sources"); len(only) > 0 {
		want := make(map[string]bool, len(only))
		for _, s := range only {
			want[strings.TrimSpace(s)] = true
		}
		for _, name := range only {
			if _, ok := cfg.Source(strings.TrimSpace(name)); !ok {
				return cfg, fmt.Errorf("unknown source %q", name)
			}
		}
		for i := range cfg.Sources {
			cfg.Sources[i].Enabled = want[cfg.Sources[i].Name]
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
