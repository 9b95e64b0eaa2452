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

package storage

import (
	"context"

	"github.com/poiesic/entitymine/core"
)

// DocumentIndex answers phrase queries over the indexed corpus.
// Implementations must be thread-safe; scoring workers query concurrently.
type DocumentIndex interface {
	// Search returns the documents containing the tokens as a contiguous phrase.
	// TotalHits counts every match; at most limit documents are returned,
	// each with its stored link list.
	Search(ctx context.Context, tokens []string, limit int) (*core.SearchResult, error)

	// Close closes the index and releases resources.
	Close() error
}

// IndexWriter loads documents into a DocumentIndex.
// It is not safe for concurrent use.
type IndexWriter interface {
	// Add stores doc and indexes the terms of text against it.
	// Documents are keyed by core.IDFromContent(doc.Title) when Id is zero.
	Add(ctx context.Context, doc *core.Document, text string) error

	// Flush persists buffered posting lists.
	Flush(ctx context.Context) error

	// Close flushes and releases the writer.
	Close() error
}
