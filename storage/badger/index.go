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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/storage"
)

// cancelCheckInterval is how many candidate documents are examined between
// context checks during a search.
const cancelCheckInterval = 1024

// Index implements storage.DocumentIndex on top of a Backend.
// Each term keeps a roaring bitmap of the documents containing it and, per
// document, the list of positions it occurs at.
type Index struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.DocumentIndex = (*Index)(nil)

// NewIndex creates a new Index reading from backend.
// The backend stays owned by the caller.
func NewIndex(backend *Backend) (*Index, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &Index{
		backend: backend,
		logger:  backend.logger,
	}, nil
}

// Search finds the documents containing tokens as a contiguous phrase.
// Documents are visited in id order; the first limit matches are loaded.
func (ix *Index) Search(ctx context.Context, tokens []string, limit int) (*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	if ix.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	terms := storage.Analyze(strings.Join(tokens, " "))
	result := &core.SearchResult{}
	if len(terms) == 0 {
		return result, nil
	}

	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		candidates, err := ix.intersect(tx, terms)
		if err != nil || candidates == nil {
			return err
		}

		seen := 0
		iter := candidates.Iterator()
		for iter.HasNext() {
			id := core.ID(iter.Next())

			seen++
			if seen%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			if len(terms) > 1 {
				ok, err := ix.containsPhrase(tx, terms, id)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}

			result.TotalHits++
			if len(result.Documents) >= limit {
				continue
			}
			doc, err := loadDocument(tx, id)
			if err != nil {
				return err
			}
			result.Documents = append(result.Documents, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	ix.logger.Debug("phrase search", "terms", terms, "hits", result.TotalHits, "returned", len(result.Documents))
	return result, nil
}

// Close is a no-op; the backend is closed by its owner.
func (ix *Index) Close() error {
	return nil
}

// intersect returns the documents containing every term, or nil when some
// term is not indexed at all.
func (ix *Index) intersect(tx *badger.Txn, terms []string) (*roaring64.Bitmap, error) {
	var result *roaring64.Bitmap
	for _, term := range uniqueTerms(terms) {
		bm, err := loadPosting(tx, term)
		if err != nil {
			return nil, err
		}
		if bm == nil {
			return nil, nil
		}
		if result == nil {
			result = bm
		} else {
			result.And(bm)
		}
		if result.IsEmpty() {
			return nil, nil
		}
	}
	return result, nil
}

// containsPhrase reports whether terms occur at consecutive positions in doc id.
func (ix *Index) containsPhrase(tx *badger.Txn, terms []string, id core.ID) (bool, error) {
	positions := make(map[string][]uint32, len(terms))
	for _, term := range terms {
		if _, ok := positions[term]; ok {
			continue
		}
		pos, err := loadPositions(tx, term, id)
		if err != nil {
			return false, err
		}
		if len(pos) == 0 {
			return false, nil
		}
		positions[term] = pos
	}

	for _, start := range positions[terms[0]] {
		matched := true
		for offset := 1; offset < len(terms); offset++ {
			if _, found := slices.BinarySearch(positions[terms[offset]], start+uint32(offset)); !found {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func uniqueTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if !slices.Contains(out, term) {
			out = append(out, term)
		}
	}
	return out
}

// loadPosting reads a term's bitmap. Returns nil, nil for unknown terms.
func loadPosting(tx *badger.Txn, term string) (*roaring64.Bitmap, error) {
	item, err := tx.Get(makePostingKey(term))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	bm := roaring64.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: posting list for %q: %w", storage.ErrSerializationFailed, term, err)
	}
	return bm, nil
}

func loadPositions(tx *badger.Txn, term string, id core.ID) ([]uint32, error) {
	item, err := tx.Get(makePositionKey(term, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var positions []uint32
	err = item.Value(func(val []byte) error {
		var err error
		positions, err = storage.UnmarshalPositions(val)
		return err
	})
	return positions, err
}

func loadDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: document %d", storage.ErrNotFound, id)
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
