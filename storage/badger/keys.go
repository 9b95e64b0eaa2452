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
	"encoding/binary"

	"github.com/poiesic/entitymine/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "doc:"
	postingPrefix  = "post:"
	positionPrefix = "pos:"
)

// termSeparator never occurs in analyzed terms, which are letters and digits only.
const termSeparator = 0x00

// makeDocumentKey generates a key for a stored document by ID.
// Format: prefix + 8 byte big endian id
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePostingKey generates the key holding a term's document bitmap.
// Format: prefix:term
func makePostingKey(term string) []byte {
	buf := make([]byte, len(postingPrefix)+len(term))
	offset := copy(buf, postingPrefix)
	copy(buf[offset:], term)
	return buf
}

// makePositionKey generates the key holding a term's positions in one document.
// Format: prefix:term 0x00 id
func makePositionKey(term string, id core.ID) []byte {
	buf := make([]byte, len(positionPrefix)+len(term)+1+8)
	offset := copy(buf, positionPrefix)
	offset += copy(buf[offset:], term)
	buf[offset] = termSeparator
	offset++
	// Write in BigEndian order so a term's documents sort by id
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
