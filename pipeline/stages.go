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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/progress"
)

const (
	workQueue  = "work"
	orderQueue = "order"
)

// produce reads phrases and feeds both queues, closing them when done.
func (r *run) produce(ctx context.Context, phrases io.Reader) error {
	defer close(r.order)
	defer close(r.work)

	scanner := bufio.NewScanner(phrases)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(skipLongLines(maxLineSize, func() {
		r.read.Add(1)
		r.skipped.Add(1)
		r.logger.Warn("skipping oversized phrase line", "limit", maxLineSize)
	}))
	for scanner.Scan() {
		line := scanner.Text()
		r.read.Add(1)
		if r.skip(line) {
			r.skipped.Add(1)
			continue
		}

		cand := core.NewCandidate(line)
		if err := r.enqueue(ctx, r.work, workQueue, cand); err != nil {
			return err
		}
		if err := r.enqueue(ctx, r.order, orderQueue, cand); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading phrases: %w", err)
	}
	r.logger.Debug("phrases exhausted", "read", r.read.Load(), "skipped", r.skipped.Load())
	return nil
}

// skipLongLines splits like bufio.ScanLines but discards any line that
// reaches limit bytes, calling onSkip once per discarded line. limit must
// equal the scanner's maximum token size.
func skipLongLines(limit int, onSkip func()) bufio.SplitFunc {
	skipping := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if skipping {
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				skipping = false
				return i + 1, nil, nil
			}
			return len(data), nil, nil
		}
		advance, token, err := bufio.ScanLines(data, atEOF)
		if advance == 0 && token == nil && err == nil && len(data) >= limit {
			skipping = true
			onSkip()
			return len(data), nil, nil
		}
		return advance, token, err
	}
}

func (r *run) skip(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	for _, prefix := range r.skipPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// enqueue blocks until cand fits in queue, re-checking every poll interval.
func (r *run) enqueue(ctx context.Context, queue chan<- *core.Candidate, name string, cand *core.Candidate) error {
	select {
	case queue <- cand:
		r.monitor.Enqueued(name, len(queue))
		return nil
	default:
	}

	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	for {
		select {
		case queue <- cand:
			r.monitor.Enqueued(name, len(queue))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			r.logger.Debug("queue full, waiting", "queue", name, "capacity", cap(queue))
			r.monitor.Backpressure(name)
			timer.Reset(r.pollInterval)
		}
	}
}

// score runs one worker until the work queue is drained, ctx is cancelled or
// its scorer fails.
func (r *run) score(ctx context.Context, worker int, s Scorer) {
	logger := r.logger.With("worker", worker)
	logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case cand, ok := <-r.work:
			if !ok {
				logger.Debug("worker finished")
				return
			}
			start := time.Now()
			if err := scoreOne(ctx, s, cand); err != nil {
				cand.Resolve(core.OutcomeAbandoned, "")
				r.abandoned.Add(1)
				if ctx.Err() != nil {
					return
				}
				r.fail(fmt.Errorf("worker %d: %w", worker, err))
				logger.Error("worker exiting after failure", "phrase", cand.Query, "err", err)
				return
			}
			// A scorer that returns without resolving leaves nothing to report.
			cand.Resolve(core.OutcomeUnsupported, "")
			r.monitor.Scored(cand.Outcome(), time.Since(start))
		}
	}
}

// scoreOne runs s on cand and turns a panic into an error, so the caller
// can abandon the candidate the sequencer is waiting on.
func scoreOne(ctx context.Context, s Scorer, cand *core.Candidate) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrScorerPanic, p)
		}
	}()
	return s.Score(ctx, cand)
}

// drain abandons whatever is still queued once no worker is left.
// The producer closes the work queue on every exit path, so this terminates.
func (r *run) drain() {
	n := 0
	for cand := range r.work {
		cand.Resolve(core.OutcomeAbandoned, "")
		n++
	}
	if n > 0 {
		r.abandoned.Add(int64(n))
		r.logger.Warn("abandoned queued phrases", "count", n)
	}
}

// sequence writes resolved candidates in input order.
func (r *run) sequence(ctx context.Context, report io.Writer, tracker *progress.Tracker) error {
	w := bufio.NewWriter(report)
	for cand := range r.order {
		select {
		case <-cand.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		tracker.Increment(1)
		line, ok := cand.Result()
		if !ok {
			continue
		}
		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		r.written.Add(1)
		r.monitor.Written(cand)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}
