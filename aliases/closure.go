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

package aliases

import (
	"log/slog"
	"time"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/progress"
)

// ClosureStats summarizes a Resolve run.
type ClosureStats struct {
	Redirects  int // pairs examined
	Resolved   int // redirect sources that received a canonical ID
	Anomalous  int // redirect sources that already had a canonical ID
	Propagated int // chain hops written while propagating anomalous sources
	Cycles     int // chains abandoned because they revisit an alias
	Unresolved int // chains ending without reaching a known alias
}

// ResolveOption configures Resolve.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	logger      *slog.Logger
	reportEvery int
}

// WithResolveLogger sets the logger for warnings and progress.
func WithResolveLogger(logger *slog.Logger) ResolveOption {
	return func(o *resolveOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReportEvery sets how many redirects are processed between progress reports.
func WithReportEvery(n int) ResolveOption {
	return func(o *resolveOptions) {
		if n > 0 {
			o.reportEvery = n
		}
	}
}

// Resolve computes the transitive closure of rm into dm.
//
// For every redirect source → target:
//   - when the source is already mapped, its canonical ID is pushed along the
//     chain starting at target, overwriting each hop, until a hop already
//     holds that ID or the chain ends;
//   - otherwise the chain from target is followed until the first mapped
//     hop, whose ID the source then receives. A chain that revisits an alias
//     is logged as a cycle and leaves the source unmapped; a chain that ends
//     without a mapped hop leaves it unmapped silently.
//
// dm is modified in place and must not be used by anything else meanwhile.
// rm is only read.
func Resolve(dm DataMap, rm RedirectMap, opts ...ResolveOption) ClosureStats {
	o := &resolveOptions{logger: slog.Default(), reportEvery: 1_000_000}
	for _, opt := range opts {
		opt(o)
	}

	tracker := progress.NewTracker(o.logger, "redirect closure", len(rm), o.reportEvery, 30*time.Second)
	tracker.Start()
	defer tracker.Finish()

	stats := ClosureStats{Redirects: len(rm)}
	seen := make(map[string]struct{})
	for source, target := range rm {
		tracker.Increment(1)

		if id, ok := dm[source]; ok {
			stats.Anomalous++
			stats.Propagated += propagate(dm, rm, id, source, target, o.logger)
			continue
		}

		clear(seen)
		seen[source] = struct{}{}
		seen[target] = struct{}{}
		hop := target
		for {
			if id, ok := dm[hop]; ok {
				dm[source] = id
				stats.Resolved++
				break
			}
			next, ok := rm[hop]
			if !ok {
				stats.Unresolved++
				break
			}
			if _, dup := seen[next]; dup {
				o.logger.Warn("abandoning redirect", "source", source, "hop", hop, "next", next, "err", ErrCycleDetected)
				stats.Cycles++
				break
			}
			seen[next] = struct{}{}
			hop = next
		}
	}

	o.logger.Info("computed redirect closure",
		"redirects", stats.Redirects,
		"resolved", stats.Resolved,
		"anomalous", stats.Anomalous,
		"cycles", stats.Cycles,
		"unresolved", stats.Unresolved,
		"aliases", len(dm))
	return stats
}

// propagate writes id along the chain starting at target and returns the
// number of hops it changed. It stops at the first hop already holding id;
// since every visited hop ends up holding id, a cycle stops it too.
func propagate(dm DataMap, rm RedirectMap, id core.CanonicalID, source, target string, logger *slog.Logger) int {
	changed := 0
	for hop, ok := target, true; ok; hop, ok = rm[hop] {
		old, had := dm[hop]
		if had && old == id {
			break
		}
		dm[hop] = id
		changed++
		if !had {
			logger.Warn("propagating canonical id along redirect", "id", id, "source", source, "hop", hop, "err", ErrAnomalousRedirect)
		}
	}
	return changed
}
