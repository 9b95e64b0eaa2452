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

package core

import "sync"

// Outcome is the terminal state of a Candidate.
type Outcome int

const (
	// OutcomePending means the candidate has not been scored yet.
	OutcomePending Outcome = iota
	// OutcomeMatched means at least one target passed the support threshold.
	OutcomeMatched
	// OutcomeTooRare means the phrase matched fewer documents than required.
	OutcomeTooRare
	// OutcomeUnsupported means no target reached the support threshold.
	OutcomeUnsupported
	// OutcomeAbandoned means the worker scoring the candidate failed.
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeMatched:
		return "matched"
	case OutcomeTooRare:
		return "too_rare"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Candidate is one mention phrase moving through the scoring pipeline.
// It is resolved exactly once; later calls to Resolve are ignored.
type Candidate struct {
	Query string

	once    sync.Once
	done    chan struct{}
	outcome Outcome
	result  string
}

// NewCandidate creates a pending candidate for the given phrase.
func NewCandidate(query string) *Candidate {
	return &Candidate{
		Query: query,
		done:  make(chan struct{}),
	}
}

// Resolve records the terminal outcome and wakes anyone waiting on Done.
// The result line is kept only for OutcomeMatched.
func (c *Candidate) Resolve(outcome Outcome, result string) {
	c.once.Do(func() {
		c.outcome = outcome
		if outcome == OutcomeMatched {
			c.result = result
		}
		close(c.done)
	})
}

// Done is closed once the candidate has been resolved.
func (c *Candidate) Done() <-chan struct{} {
	return c.done
}

// Outcome returns the terminal outcome, or OutcomePending while unresolved.
func (c *Candidate) Outcome() Outcome {
	select {
	case <-c.done:
		return c.outcome
	default:
		return OutcomePending
	}
}

// Result returns the formatted report line and whether the candidate matched.
func (c *Candidate) Result() (string, bool) {
	if c.Outcome() != OutcomeMatched {
		return "", false
	}
	return c.result, true
}

func (c *Candidate) String() string {
	return c.Query + " " + c.Outcome().String()
}
