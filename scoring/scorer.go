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

package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/entitymine/aliases"
	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/stats"
	"github.com/poiesic/entitymine/storage"
)

const (
	// DefaultMinimumMentions is the number of matching documents a phrase
	// needs before it is considered at all.
	DefaultMinimumMentions = 20

	// MaxDocuments caps the documents examined per phrase. It must stay
	// below stats.ExactBonus so support never overflows into the exact rank.
	MaxDocuments = 0xFFFF
)

// Scorer evaluates candidates against a document index.
type Scorer struct {
	index       storage.DocumentIndex
	aliases     aliases.DataMap
	minMentions int
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger

	// Scratch state, reused across candidates.
	counters  *stats.TargetCounters
	dups      map[core.CanonicalID]struct{}
	dupsExact map[core.CanonicalID]struct{}
	buf       strings.Builder
	num       []byte
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMinimumMentions sets the minimum number of matching documents.
// Default is DefaultMinimumMentions.
func WithMinimumMentions(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.minMentions = n
		}
	}
}

// WithQueryRetries retries failed index queries with exponential backoff.
// Default is a single attempt.
func WithQueryRetries(attempts int, baseDelay time.Duration) Option {
	return func(s *Scorer) {
		if attempts > 0 {
			s.maxAttempts = attempts
			s.retryDelay = baseDelay
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScorer creates a Scorer reading from index and resolving link targets
// through dm, which must not change while the scorer is in use.
func NewScorer(index storage.DocumentIndex, dm aliases.DataMap, opts ...Option) (*Scorer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if dm == nil {
		return nil, ErrAliasesRequired
	}

	s := &Scorer{
		index:       index,
		aliases:     dm,
		minMentions: DefaultMinimumMentions,
		maxAttempts: 1,
		logger:      slog.Default(),
		counters:    stats.NewTargetCounters(),
		dups:        make(map[core.CanonicalID]struct{}),
		dupsExact:   make(map[core.CanonicalID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Score evaluates cand and resolves it with its outcome.
// An index failure is returned wrapped in ErrIndexQuery and leaves cand
// unresolved; the caller decides what happens to it.
func (s *Scorer) Score(ctx context.Context, cand *core.Candidate) error {
	tokens := strings.Fields(cand.Query)
	if len(tokens) == 0 {
		cand.Resolve(core.OutcomeTooRare, "")
		return nil
	}

	var res *core.SearchResult
	err := retryWithBackoff(ctx, s.logger, func() error {
		var err error
		res, err = s.index.Search(ctx, tokens, MaxDocuments)
		return err
	}, s.maxAttempts, s.retryDelay)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrIndexQuery, cand.Query, err)
	}
	if res == nil {
		return fmt.Errorf("%w: %q: no result", ErrIndexQuery, cand.Query)
	}

	outcome, line := s.evaluate(cand.Query, res)
	cand.Resolve(outcome, line)
	return nil
}

// evaluate turns a search result into an outcome and, when matched, the
// report line.
func (s *Scorer) evaluate(query string, res *core.SearchResult) (core.Outcome, string) {
	docs := res.Documents
	if len(docs) < s.minMentions {
		return core.OutcomeTooRare, ""
	}
	minsupp := max(s.minMentions, len(docs)/10)

	s.counters.Reset()
	weight := 0
	for _, doc := range docs {
		if len(doc.Links) == 0 {
			continue
		}
		clear(s.dups)
		clear(s.dupsExact)
		used := false
		for _, link := range doc.Links {
			id, ok := s.aliases[link.Target]
			if !ok {
				continue
			}
			if _, dup := s.dups[id]; !dup {
				s.dups[id] = struct{}{}
				s.counters.AddSupport(id)
				used = true
			}
			if strings.EqualFold(link.Label, query) {
				if _, dup := s.dupsExact[id]; !dup {
					s.dupsExact[id] = struct{}{}
					s.counters.AddExact(id)
				}
			}
		}
		if used {
			weight++
		}
	}
	if s.counters.Len() == 0 {
		return core.OutcomeUnsupported, ""
	}

	s.buf.Reset()
	s.buf.WriteString(query)
	s.writeInt('\t', res.TotalHits)
	s.writeInt('\t', weight)

	matched := false
	for _, e := range s.counters.Descending() {
		if e.Support < minsupp {
			break
		}
		// Once a dominant target shows up, later ones need half its support.
		if e.Support>>1 > minsupp {
			minsupp = e.Support >> 1
		}
		s.buf.WriteByte('\t')
		s.buf.WriteString(string(e.Key))
		s.writeInt(':', e.Support)
		s.writeInt(':', e.Exact)
		s.writeInt(':', stats.Confidence(e.Support, weight))
		s.buf.WriteByte('%')
		matched = true
	}
	if !matched {
		return core.OutcomeUnsupported, ""
	}
	return core.OutcomeMatched, s.buf.String()
}

func (s *Scorer) writeInt(sep byte, v int) {
	s.buf.WriteByte(sep)
	s.num = strconv.AppendInt(s.num[:0], int64(v), 10)
	s.buf.Write(s.num)
}
