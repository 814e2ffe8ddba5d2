// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

// Source identifiers known to the engine.
const (
	SourceArxiv           = "arxiv"
	SourceOpenAlex        = "openalex"
	SourceSemanticScholar = "semantic_scholar"
	SourceScholar         = "scholar"
	SourceMirror          = "mirror"
	SourcePMC             = "pmc"
	SourceDOAJ            = "doaj"
	SourceCORE            = "core"
	SourceZenodo          = "zenodo"
	SourceHAL             = "hal"
	SourceBioRxiv         = "biorxiv"
)

// HTTPConfig holds shared HTTP settings used by every network component.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Proxy is an optional proxy URL applied to all requests.
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy" validate:"omitempty,url"`
}

// SourceConfig configures one search source.
type SourceConfig struct {
	// Name is the source identifier.
	Name string `json:"name" yaml:"name" mapstructure:"name" validate:"required,oneof=arxiv openalex semantic_scholar scholar mirror pmc doaj core zenodo hal biorxiv"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Priority orders sources; lower values are tried first.
	Priority int `json:"priority" yaml:"priority" mapstructure:"priority"`

	// MaxResults caps the candidates requested from this source.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gte=0"`

	// Delay is the minimum interval between two searches against this source.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`

	// DownloadDelay is the minimum interval between two downloads of
	// candidates produced by this source. Zero disables the throttle.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay" validate:"gte=0"`

	// Mirrors lists base URLs for the mirror source, tried in order.
	Mirrors []string `json:"mirrors,omitempty" yaml:"mirrors,omitempty" mapstructure:"mirrors" validate:"dive,url"`
}

// DownloadConfig configures the download manager.
type DownloadConfig struct {
	// Workers bounds the number of concurrent transfers (default 3).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=1"`

	// MaxAttempts is the total number of tries per candidate (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`

	// BackoffBase is the delay before the second attempt; it doubles each retry.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base" validate:"gte=0"`

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration `json:"backoff_max" yaml:"backoff_max" mapstructure:"backoff_max" validate:"gte=0"`

	// MinBytes rejects artifacts smaller than this size (default 1024).
	MinBytes int64 `json:"min_bytes" yaml:"min_bytes" mapstructure:"min_bytes" validate:"gte=1"`

	// MaxBytes rejects artifacts larger than this size. Zero means unlimited.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes" validate:"gte=0"`

	// FallbackCandidates is how many lower-ranked candidates are tried
	// after the best one exhausts its attempts.
	FallbackCandidates int `json:"fallback_candidates" yaml:"fallback_candidates" mapstructure:"fallback_candidates" validate:"gte=0"`
}

// MatchConfig configures candidate scoring and search stopping rules.
type MatchConfig struct {
	// Threshold is the minimum score of an acceptable candidate (default 0.5).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=1"`

	// HighConfidence stops the search as soon as a candidate reaches it (default 0.9).
	HighConfidence float64 `json:"high_confidence" yaml:"high_confidence" mapstructure:"high_confidence" validate:"gte=0,lte=1"`

	// YearWindow is the year difference still scored as a full match (default 1).
	YearWindow int `json:"year_window" yaml:"year_window" mapstructure:"year_window" validate:"gte=0"`

	// MaxCandidates stops the search once this many acceptable candidates
	// are collected (default 5).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates" mapstructure:"max_candidates" validate:"gte=1"`
}

// Config is the complete engine configuration.
type Config struct {
	// OutputDir is the root of pdfs/, metadata/, and the run report.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`

	// Concurrency bounds the number of papers processed at once.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`

	// Overwrite re-downloads papers whose target file already exists.
	Overwrite bool `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`

	// DryRun searches without downloading; outcomes stay SEARCHED.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`

	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	Download DownloadConfig `json:"download" yaml:"download" mapstructure:"download"`
	Match    MatchConfig    `json:"match" yaml:"match" mapstructure:"match"`
	Sources  []SourceConfig `json:"sources" yaml:"sources" mapstructure:"sources" validate:"dive"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() Config {
	return Config{
		OutputDir:   "downloads",
		Concurrency: 3,
		HTTP: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "paper-fetcher/0.1",
		},
		Download: DownloadConfig{
			Workers:     3,
			MaxAttempts: 3,
			BackoffBase: 2 * time.Second,
			BackoffMax:  30 * time.Second,
			MinBytes:    1024,
			MaxBytes:    100 << 20,
		},
		Match: MatchConfig{
			Threshold:      0.5,
			HighConfidence: 0.9,
			YearWindow:     1,
			MaxCandidates:  5,
		},
		Sources: []SourceConfig{
			{Name: SourceArxiv, Enabled: true, Priority: 1, MaxResults: 10, Delay: 3 * time.Second},
			{Name: SourceOpenAlex, Enabled: true, Priority: 2, MaxResults: 10, Delay: time.Second},
			{Name: SourceSemanticScholar, Enabled: true, Priority: 3, MaxResults: 10, Delay: time.Second},
			{Name: SourceScholar, Enabled: false, Priority: 10, MaxResults: 10, Delay: 5 * time.Second, DownloadDelay: 2 * time.Second},
			{Name: SourceMirror, Enabled: false, Priority: 11, MaxResults: 1, Delay: 2 * time.Second, DownloadDelay: 2 * time.Second},
			{Name: SourcePMC, Enabled: true, Priority: 4, MaxResults: 10, Delay: 400 * time.Millisecond},
			{Name: SourceDOAJ, Enabled: true, Priority: 5, MaxResults: 10, Delay: time.Second},
			{Name: SourceZenodo, Enabled: true, Priority: 6, MaxResults: 10, Delay: time.Second},
			{Name: SourceHAL, Enabled: true, Priority: 7, MaxResults: 10, Delay: time.Second},
			{Name: SourceBioRxiv, Enabled: true, Priority: 8, MaxResults: 1, Delay: time.Second},
			{Name: SourceCORE, Enabled: false, Priority: 9, MaxResults: 10, Delay: 2 * time.Second},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Match.HighConfidence < c.Match.Threshold {
		return fmt.Errorf("invalid configuration: high_confidence %.2f below threshold %.2f",
			c.Match.HighConfidence, c.Match.Threshold)
	}
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("invalid configuration: source %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// EnabledSources returns the enabled sources ordered by priority. Sources
// with equal priority keep their configured order.
func (c Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b SourceConfig) int { return a.Priority - b.Priority })
	return out
}

// Source returns the configuration for the named source.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}
