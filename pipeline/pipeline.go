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
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/progress"
)

const (
	// DefaultQueueSize is the capacity of the work queue.
	// The order queue holds one more.
	DefaultQueueSize = 1000

	// DefaultPollInterval is how long the producer waits on a full queue
	// before logging and trying again.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultSkipPrefix marks category pages in phrase lists.
	DefaultSkipPrefix = "category "

	// maxLineSize bounds one phrase line; longer lines are skipped and logged.
	maxLineSize = 1 << 20
)

// Scorer scores one candidate and resolves it.
// Implementations need not be safe for concurrent use; every worker owns one.
type Scorer interface {
	Score(ctx context.Context, cand *core.Candidate) error
}

// ScorerFactory creates the Scorer for one worker.
type ScorerFactory func() (Scorer, error)

// Pipeline scores phrases concurrently and writes matched lines in input order.
type Pipeline struct {
	newScorer    ScorerFactory
	parallelism  int
	queueSize    int
	pollInterval time.Duration
	skipPrefixes []string
	logger       *slog.Logger
	monitor      Monitor
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithParallelism sets the number of scoring workers.
// The value is capped at runtime.NumCPU(). Default is runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(p *Pipeline) error {
		if err := core.ValidateParallelism(n); err != nil {
			return err
		}
		p.parallelism = min(n, runtime.NumCPU())
		return nil
	}
}

// WithQueueSize sets the work queue capacity.
// Default is DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidQueueSize, n)
		}
		p.queueSize = n
		return nil
	}
}

// WithPollInterval sets how often a blocked producer re-checks a full queue.
// Default is DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return ErrInvalidPollInterval
		}
		p.pollInterval = d
		return nil
	}
}

// WithSkipPrefixes replaces the list of line prefixes that are not scored.
// Default is DefaultSkipPrefix. Passing nothing disables skipping.
func WithSkipPrefixes(prefixes ...string) Option {
	return func(p *Pipeline) error {
		p.skipPrefixes = prefixes
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMonitor attaches a Monitor to every run.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// NewPipeline creates a pipeline whose workers get their scorer from newScorer.
func NewPipeline(newScorer ScorerFactory, opts ...Option) (*Pipeline, error) {
	if newScorer == nil {
		return nil, ErrScorerFactoryRequired
	}

	p := &Pipeline{
		newScorer:    newScorer,
		parallelism:  runtime.NumCPU(),
		queueSize:    DefaultQueueSize,
		pollInterval: DefaultPollInterval,
		skipPrefixes: []string{DefaultSkipPrefix},
		logger:       slog.Default(),
		monitor:      &noopMonitor{},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Parallelism returns the number of workers a run will start.
func (p *Pipeline) Parallelism() int {
	return p.parallelism
}

// run holds the state of a single Run call.
type run struct {
	*Pipeline
	id     string
	logger *slog.Logger

	work  chan *core.Candidate
	order chan *core.Candidate

	read      atomic.Int64
	skipped   atomic.Int64
	written   atomic.Int64
	abandoned atomic.Int64

	mu       sync.Mutex
	failures []error
}

// Run reads one phrase per line from phrases and writes the report to report.
// Worker failures do not stop the run; they are joined and returned once the
// report has been flushed. Cancelling ctx stops all stages and Run returns
// ctx.Err().
func (p *Pipeline) Run(ctx context.Context, phrases io.Reader, report io.Writer) error {
	scorers := make([]Scorer, p.parallelism)
	for i := range scorers {
		s, err := p.newScorer()
		if err != nil {
			return fmt.Errorf("creating scorer %d: %w", i, err)
		}
		scorers[i] = s
	}

	pool, err := ants.NewPool(p.parallelism)
	if err != nil {
		return err
	}
	defer pool.Release()

	r := &run{
		Pipeline: p,
		id:       ulid.Make().String(),
		work:     make(chan *core.Candidate, p.queueSize),
		order:    make(chan *core.Candidate, p.queueSize+1),
	}
	r.logger = p.logger.With("run", r.id)
	r.logger.Info("starting analysis", "workers", p.parallelism, "queue_size", p.queueSize)
	p.monitor.Start(r.id, p.parallelism)
	started := time.Now()

	tracker := progress.NewTracker(r.logger, "analyze", 0, 10_000, 30*time.Second)
	tracker.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.produce(gctx, phrases)
	})
	g.Go(func() error {
		var wg sync.WaitGroup
		for i, s := range scorers {
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				r.score(gctx, i, s)
			}); err != nil {
				wg.Done()
				r.fail(fmt.Errorf("starting worker %d: %w", i, err))
			}
		}
		wg.Wait()
		r.drain()
		return nil
	})
	g.Go(func() error {
		return r.sequence(gctx, report, tracker)
	})

	err = g.Wait()
	tracker.Finish()

	summary := Summary{
		RunID:     r.id,
		Read:      int(r.read.Load()),
		Skipped:   int(r.skipped.Load()),
		Written:   int(r.written.Load()),
		Abandoned: int(r.abandoned.Load()),
		Failures:  len(r.failures),
		Elapsed:   time.Since(started),
	}
	p.monitor.Finish(summary)
	r.logger.Info("analysis finished",
		"read", summary.Read,
		"skipped", summary.Skipped,
		"written", summary.Written,
		"abandoned", summary.Abandoned,
		"failures", summary.Failures,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return err
	}
	return errors.Join(r.failures...)
}

func (r *run) fail(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
	r.monitor.WorkerFailed(err)
}
