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
	"time"

	"github.com/poiesic/entitymine/core"
)

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Read      int
	Skipped   int
	Written   int
	Abandoned int
	Failures  int
	Elapsed   time.Duration
}

// Monitor provides hooks to observe a pipeline run.
// Hooks are called from several goroutines and must be safe for concurrent use.
type Monitor interface {
	Start(runID string, parallelism int)
	Enqueued(queue string, depth int)
	Backpressure(queue string)
	Scored(outcome core.Outcome, elapsed time.Duration)
	WorkerFailed(err error)
	Written(cand *core.Candidate)
	Finish(summary Summary)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                  {}
func (n *noopMonitor) Enqueued(_ string, _ int)               {}
func (n *noopMonitor) Backpressure(_ string)                  {}
func (n *noopMonitor) Scored(_ core.Outcome, _ time.Duration) {}
func (n *noopMonitor) WorkerFailed(_ error)                   {}
func (n *noopMonitor) Written(_ *core.Candidate)              {}
func (n *noopMonitor) Finish(_ Summary)                       {}

// multiMonitor forwards every hook to each of its monitors in order.
type multiMonitor []Monitor

var _ Monitor = multiMonitor(nil)

// NewMultiMonitor returns a Monitor that reports to all non-nil monitors.
func NewMultiMonitor(monitors ...Monitor) Monitor {
	var mm multiMonitor
	for _, m := range monitors {
		if m != nil {
			mm = append(mm, m)
		}
	}
	switch len(mm) {
	case 0:
		return &noopMonitor{}
	case 1:
		return mm[0]
	}
	return mm
}

func (mm multiMonitor) Start(runID string, parallelism int) {
	for _, m := range mm {
		m.Start(runID, parallelism)
	}
}

func (mm multiMonitor) Enqueued(queue string, depth int) {
	for _, m := range mm {
		m.Enqueued(queue, depth)
	}
}

func (mm multiMonitor) Backpressure(queue string) {
	for _, m := range mm {
		m.Backpressure(queue)
	}
}

func (mm multiMonitor) Scored(outcome core.Outcome, elapsed time.Duration) {
	for _, m := range mm {
		m.Scored(outcome, elapsed)
	}
}

func (mm multiMonitor) WorkerFailed(err error) {
	for _, m := range mm {
		m.WorkerFailed(err)
	}
}

func (mm multiMonitor) Written(cand *core.Candidate) {
	for _, m := range mm {
		m.Written(cand)
	}
}

func (mm multiMonitor) Finish(summary Summary) {
	for _, m := range mm {
		m.Finish(summary)
	}
}
