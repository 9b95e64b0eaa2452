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

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/storage"
)

const (
	// DefaultFlushEvery is the number of documents buffered before posting
	// lists are merged into the database.
	DefaultFlushEvery = 10_000
)

// Writer implements storage.IndexWriter.
// Documents and positions stream through a badger.WriteBatch; posting
// bitmaps are buffered in memory and merged on Flush.
type Writer struct {
	backend    *Backend
	batch      *badger.WriteBatch
	postings   map[string]*roaring64.Bitmap
	added      map[core.ID]struct{}
	pending    int
	flushEvery int
	logger     *slog.Logger
}

var _ storage.IndexWriter = (*Writer)(nil)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFlushEvery sets how many documents are buffered between flushes.
func WithFlushEvery(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.flushEvery = n
		}
	}
}

// NewWriter creates a bulk index writer on backend.
func NewWriter(backend *Backend, opts ...WriterOption) (*Writer, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	w := &Writer{
		backend:    backend,
		batch:      backend.newWriteBatch(),
		postings:   make(map[string]*roaring64.Bitmap),
		added:      make(map[core.ID]struct{}),
		flushEvery: DefaultFlushEvery,
		logger:     backend.logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add stores doc and indexes the analyzed terms of text.
// A title that is already indexed is rejected with storage.ErrDuplicateDocument
// and leaves the index unchanged.
func (w *Writer) Add(ctx context.Context, doc *core.Document, text string) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if doc.Id == 0 {
		doc.Id = core.IDFromContent(doc.Title)
	}

	exists, err := w.exists(doc.Id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", storage.ErrDuplicateDocument, doc.Title)
	}

	if err := w.batch.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
		return fmt.Errorf("store document %q: %w", doc.Title, err)
	}

	positions := make(map[string][]uint32)
	for i, term := range storage.Analyze(text) {
		positions[term] = append(positions[term], uint32(i))
	}
	for term, pos := range positions {
		if err := w.batch.Set(makePositionKey(term, doc.Id), storage.MarshalPositions(pos)); err != nil {
			return fmt.Errorf("store positions of %q: %w", term, err)
		}
		bm, ok := w.postings[term]
		if !ok {
			bm = roaring64.New()
			w.postings[term] = bm
		}
		bm.Add(uint64(doc.Id))
	}

	w.added[doc.Id] = struct{}{}
	w.pending++
	if w.pending >= w.flushEvery {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes buffered documents and merges buffered posting lists into
// the stored ones.
func (w *Writer) Flush(ctx context.Context) error {
	err := w.batch.Flush()
	w.batch = w.backend.newWriteBatch()
	if err != nil {
		return fmt.Errorf("flush documents: %w", err)
	}

	txn := w.backend.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	merged := 0
	for term, bm := range w.postings {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := mergePosting(txn, term, bm)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return fmt.Errorf("commit postings: %w", err)
			}
			txn = w.backend.db.NewTransaction(true)
			err = mergePosting(txn, term, bm)
		}
		if err != nil {
			return fmt.Errorf("merge posting for %q: %w", term, err)
		}
		merged++
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit postings: %w", err)
	}

	w.logger.Debug("flushed index batch", "documents", w.pending, "terms", merged)
	clear(w.postings)
	w.pending = 0
	return nil
}

// Close flushes pending data. The backend stays open.
func (w *Writer) Close() error {
	err := w.Flush(context.Background())
	w.batch.Cancel()
	return err
}

func (w *Writer) exists(id core.ID) (bool, error) {
	if _, ok := w.added[id]; ok {
		return true, nil
	}
	var found bool
	err := w.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDocumentKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// mergePosting ORs bm into the stored bitmap of term within txn.
func mergePosting(txn *badger.Txn, term string, bm *roaring64.Bitmap) error {
	stored, err := loadPosting(txn, term)
	if err != nil {
		return err
	}
	if stored == nil {
		stored = bm
	} else {
		stored.Or(bm)
	}
	data, err := stored.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return txn.Set(makePostingKey(term), data)
}
