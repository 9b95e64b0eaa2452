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
// Package entitymine finds which entities a phrase most likely refers to by
// counting the link targets of the documents that contain it.
//
// A Job resolves the alias and redirect tables into one canonical map, opens
// the document index and runs the scoring pipeline over a phrase list.
package entitymine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/entitymine/aliases"
	"github.com/poiesic/entitymine/config"
	"github.com/poiesic/entitymine/fileio"
	"github.com/poiesic/entitymine/metrics"
	"github.com/poiesic/entitymine/pipeline"
	"github.com/poiesic/entitymine/scoring"
	"github.com/poiesic/entitymine/storage/badger"
)

// queryRetryDelay is the first backoff between index query attempts.
const queryRetryDelay = 50 * time.Millisecond

// Job is one analysis run over a phrase list.
type Job struct {
	cfg     *config.Config
	logger  *slog.Logger
	monitor pipeline.Monitor
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) JobOption {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithMonitor observes the scoring pipeline. When the configuration sets a
// metrics address, monitor receives the same events as the Prometheus monitor.
func WithMonitor(monitor pipeline.Monitor) JobOption {
	return func(j *Job) {
		j.monitor = monitor
	}
}

// NewJob validates cfg and creates a Job.
func NewJob(cfg *config.Config, opts ...JobOption) (*Job, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	j := &Job{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// ResolveAliases loads the alias and redirect tables and folds the redirects
// into the alias map. The redirect map is dropped once resolved.
func ResolveAliases(aliasPath, redirectPath string, logger *slog.Logger) (aliases.DataMap, aliases.ClosureStats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dm, err := loadTable(aliasPath, func(f io.Reader) (aliases.DataMap, error) {
		return aliases.LoadDataMap(f, aliases.WithLoadLogger(logger))
	})
	if err != nil {
		return nil, aliases.ClosureStats{}, err
	}
	rm, err := loadTable(redirectPath, func(f io.Reader) (aliases.RedirectMap, error) {
		return aliases.LoadRedirects(f, aliases.WithLoadLogger(logger))
	})
	if err != nil {
		return nil, aliases.ClosureStats{}, err
	}

	stats := aliases.Resolve(dm, rm, aliases.WithResolveLogger(logger))
	return dm, stats, nil
}

func loadTable[T any](path string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := fileio.OpenInput(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	table, err := load(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Run executes the analysis. Worker failures are returned after the report
// has been written; every other error stops the run.
func (j *Job) Run(ctx context.Context) error {
	cfg := j.cfg

	backend, err := badger.OpenBackend(cfg.Index, false,
		badger.WithReadOnly(), badger.WithBackendLogger(j.logger))
	if err != nil {
		return fmt.Errorf("opening index %s: %w", cfg.Index, err)
	}
	defer backend.Close()

	index, err := badger.NewIndex(backend)
	if err != nil {
		return err
	}
	defer index.Close()

	dm, _, err := ResolveAliases(cfg.Aliases, cfg.Redirects, j.logger)
	if err != nil {
		return err
	}

	monitor := j.monitor
	var wg sync.WaitGroup
	if cfg.MetricsAddr != "" {
		m := metrics.NewMonitor()
		monitor = pipeline.NewMultiMonitor(j.monitor, m)
		serveCtx, stop := context.WithCancel(ctx)
		defer func() {
			stop()
			wg.Wait()
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(serveCtx, cfg.MetricsAddr, m.Handler(), j.logger); err != nil {
				j.logger.Error("metrics endpoint failed", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	p, err := pipeline.NewPipeline(func() (pipeline.Scorer, error) {
		s, err := scoring.NewScorer(index, dm,
			scoring.WithMinimumMentions(cfg.MinimumMentions),
			scoring.WithQueryRetries(cfg.QueryRetries, queryRetryDelay),
			scoring.WithLogger(j.logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	},
		pipeline.WithParallelism(cfg.Parallelism),
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithLogger(j.logger),
		pipeline.WithMonitor(monitor))
	if err != nil {
		return err
	}

	in, err := fileio.OpenInput(cfg.Phrases)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fileio.OpenOutput(cfg.Report)
	if err != nil {
		return err
	}

	runErr := p.Run(ctx, in, out)
	if err := out.Close(); err != nil {
		return errors.Join(runErr, fmt.Errorf("closing report: %w", err))
	}
	return runErr
}
