// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package config holds the settings of an analysis job.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/fileio"
	"github.com/poiesic/entitymine/pipeline"
	"github.com/poiesic/entitymine/scoring"
)

// ErrInvalidConfig is returned when a configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds configuration for an analysis job.
type Config struct {
	// Parallelism is the number of scoring workers. It is capped at the
	// number of CPUs when the job starts.
	Parallelism int `yaml:"parallelism"`

	// Aliases is the alias source table (TSV with header).
	Aliases string `yaml:"aliases"`

	// Redirects is the redirect table (two-column TSV).
	Redirects string `yaml:"redirects"`

	// Phrases is the candidate phrase list, one per line. "-" reads stdin.
	Phrases string `yaml:"phrases"`

	// Report is where matched lines are written. "-" writes stdout.
	// A .gz, .zst or .lz4 extension compresses the output.
	Report string `yaml:"report"`

	// Index is the directory of the document index.
	Index string `yaml:"index"`

	// QueueSize is the capacity of the work queue.
	// Default: 1000
	QueueSize int `yaml:"queue_size"`

	// MinimumMentions is the number of documents a phrase must match.
	// Default: 20
	MinimumMentions int `yaml:"minimum_mentions"`

	// QueryRetries is the number of attempts per index query.
	// Default: 1
	QueryRetries int `yaml:"query_retries"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithParallelism sets the number of scoring workers.
func WithParallelism(n int) ConfigOption {
	return func(c *Config) {
		c.Parallelism = n
	}
}

// WithAliases sets the alias source path.
func WithAliases(path string) ConfigOption {
	return func(c *Config) {
		c.Aliases = path
	}
}

// WithRedirects sets the redirect table path.
func WithRedirects(path string) ConfigOption {
	return func(c *Config) {
		c.Redirects = path
	}
}

// WithPhrases sets the phrase list path.
func WithPhrases(path string) ConfigOption {
	return func(c *Config) {
		c.Phrases = path
	}
}

// WithReport sets the report path.
func WithReport(path string) ConfigOption {
	return func(c *Config) {
		c.Report = path
	}
}

// WithIndex sets the document index directory.
func WithIndex(path string) ConfigOption {
	return func(c *Config) {
		c.Index = path
	}
}

// WithQueueSize sets the work queue capacity.
func WithQueueSize(n int) ConfigOption {
	return func(c *Config) {
		c.QueueSize = n
	}
}

// WithMinimumMentions sets the minimum number of matching documents.
func WithMinimumMentions(n int) ConfigOption {
	return func(c *Config) {
		c.MinimumMentions = n
	}
}

// WithQueryRetries sets the number of attempts per index query.
func WithQueryRetries(n int) ConfigOption {
	return func(c *Config) {
		c.QueryRetries = n
	}
}

// WithMetricsAddr sets the address of the metrics endpoint.
func WithMetricsAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.MetricsAddr = addr
	}
}

// DefaultConfig returns a Config that reads phrases from stdin and writes the
// report to stdout. Input tables and the index still have to be set.
func DefaultConfig() *Config {
	return &Config{
		Parallelism:     runtime.NumCPU(),
		Phrases:         fileio.Stdio,
		Report:          fileio.Stdio,
		QueueSize:       pipeline.DefaultQueueSize,
		MinimumMentions: scoring.DefaultMinimumMentions,
		QueryRetries:    1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML file over the defaults and then applies opts, so options
// take precedence over the file. Unknown keys are rejected.
func Load(path string, opts ...ConfigOption) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Decode reads a YAML document over the defaults.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete enough to run an analysis.
func (c *Config) Validate() error {
	if err := core.ValidateParallelism(c.Parallelism); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Aliases == "" {
		return fmt.Errorf("%w: aliases is required", ErrInvalidConfig)
	}
	if c.Redirects == "" {
		return fmt.Errorf("%w: redirects is required", ErrInvalidConfig)
	}
	if c.Index == "" {
		return fmt.Errorf("%w: index is required", ErrInvalidConfig)
	}
	if c.Phrases == "" {
		return fmt.Errorf("%w: phrases is required", ErrInvalidConfig)
	}
	if c.Report == "" {
		return fmt.Errorf("%w: report is required", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	}
	if c.MinimumMentions < 1 {
		return fmt.Errorf("%w: minimum_mentions must be at least 1", ErrInvalidConfig)
	}
	if c.QueryRetries < 1 {
		return fmt.Errorf("%w: query_retries must be at least 1", ErrInvalidConfig)
	}
	return nil
}
