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

package stats

import (
	"cmp"
	"math"
	"slices"

	"github.com/poiesic/entitymine/core"
)

// ExactBonus is the weight of one exact label match in the combined score.
// Support counts stay below it because a phrase query returns at most
// 0xFFFF documents, so any exact match outranks pure support.
const ExactBonus = 0x10000

// Entry holds the counts of one target.
type Entry struct {
	Key     core.CanonicalID
	Support int // documents linking to the target
	Exact   int // documents whose link label equals the phrase
}

// Score is the combined ordering key.
func (e Entry) Score() int {
	return e.Exact*ExactBonus + e.Support
}

// TargetCounters counts support and exact matches per canonical ID.
// It is meant to be reset and reused between candidates; it is not safe
// for concurrent use.
type TargetCounters struct {
	index   map[core.CanonicalID]int
	entries []Entry
	sorted  []Entry
}

// NewTargetCounters creates an empty counter set.
func NewTargetCounters() *TargetCounters {
	return &TargetCounters{index: make(map[core.CanonicalID]int)}
}

func (c *TargetCounters) entry(id core.CanonicalID) *Entry {
	i, ok := c.index[id]
	if !ok {
		i = len(c.entries)
		c.index[id] = i
		c.entries = append(c.entries, Entry{Key: id})
	}
	return &c.entries[i]
}

// AddSupport counts one more supporting document for id.
func (c *TargetCounters) AddSupport(id core.CanonicalID) {
	c.entry(id).Support++
}

// AddExact counts one more exact label match for id.
func (c *TargetCounters) AddExact(id core.CanonicalID) {
	c.entry(id).Exact++
}

// Get returns the counts for id.
func (c *TargetCounters) Get(id core.CanonicalID) (Entry, bool) {
	i, ok := c.index[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of distinct targets counted.
func (c *TargetCounters) Len() int {
	return len(c.entries)
}

// Reset forgets all counts but keeps the allocated storage.
func (c *TargetCounters) Reset() {
	clear(c.index)
	c.entries = c.entries[:0]
	c.sorted = c.sorted[:0]
}

// Descending returns the entries ordered by Score, highest first, ties by key.
// The slice is reused and only valid until the next Reset or Descending call.
func (c *TargetCounters) Descending() []Entry {
	c.sorted = append(c.sorted[:0], c.entries...)
	slices.SortFunc(c.sorted, func(a, b Entry) int {
		if s := cmp.Compare(b.Score(), a.Score()); s != 0 {
			return s
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return c.sorted
}

// Confidence normalizes a support count against the number of contributing
// documents: round(100 * log1p(0.1*support) / log1p(0.1*weight)).
// A weight below one counts as one. Support above weight yields more than 100.
func Confidence(support, weight int) int {
	weight = max(weight, 1)
	return int(math.Round(math.Log1p(0.1*float64(support)) / math.Log1p(0.1*float64(weight)) * 100))
}
