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

package progress

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Tracker tracks and logs progress of a long running task.
// Reports are throttled: one every reportEvery items or every interval,
// whichever comes first.
type Tracker struct {
	logger    *slog.Logger
	task      string
	total     int
	current   int
	startTime time.Time
	started   bool
	sometimes rate.Sometimes
	mu        sync.Mutex
}

// NewTracker creates a new progress tracker.
// total may be zero when the amount of work is not known up front.
func NewTracker(logger *slog.Logger, task string, total, reportEvery int, interval time.Duration) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger: logger,
		task:   task,
		total:  total,
		sometimes: rate.Sometimes{
			Every:    reportEvery,
			Interval: interval,
		},
	}
}

// Start begins tracking progress.
func (p *Tracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
}

// Increment increases the current progress by delta and reports when due.
func (p *Tracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}
	p.sometimes.Do(p.report)
}

// Current returns the number of items done so far.
func (p *Tracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish logs the final count and elapsed time.
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if p.total > 0 {
		p.current = p.total
	}
	p.logger.Info("finished", "task", p.task, "done", p.current, "elapsed", time.Since(p.startTime).Round(time.Millisecond))
	p.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (p *Tracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report logs the current progress. Must be called with lock held.
func (p *Tracker) report() {
	elapsed := time.Since(p.startTime)
	itemRate := 0.0
	if elapsed > 0 {
		itemRate = float64(p.current) / elapsed.Seconds()
	}

	attrs := []any{"task", p.task, "done", p.current, "per_second", int(itemRate)}
	if p.total > 0 {
		attrs = append(attrs, "total", p.total, "percent", float64(p.current)/float64(p.total)*100.0)
	}
	p.logger.Info("progress", attrs...)
}
