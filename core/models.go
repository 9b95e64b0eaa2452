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

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is derived from the document title so re-indexing a title replaces it.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// CanonicalID identifies a real-world entity, e.g. a knowledge-base item.
// It is opaque and never changes once assigned.
type CanonicalID string

// Link is one outgoing link of a document: the raw link target (an alias key)
// and the visible label text.
type Link struct {
	Target string
	Label  string
}

// Document is a stored document as returned by the index.
type Document struct {
	Id    ID
	Title string
	Links []Link
}

// SearchResult is the answer of a phrase query.
// TotalHits counts every matching document, Documents holds at most the
// requested limit of them.
type SearchResult struct {
	TotalHits int
	Documents []*Document
}
