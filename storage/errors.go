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

import "errors"

var (
	// ErrNotFound is returned when a posting points at a document that is not stored.
	ErrNotFound = errors.New("document not found")

	// ErrStorageClosed is returned when searching an index whose backend is closed.
	ErrStorageClosed = errors.New("index is closed")

	// ErrInvalidQuery is returned for search parameters that cannot be served.
	ErrInvalidQuery = errors.New("invalid search")

	// ErrSerializationFailed wraps decoding failures of stored values.
	ErrSerializationFailed = errors.New("corrupt index value")

	// ErrTruncatedData is returned when a stored value is shorter than its header claims.
	ErrTruncatedData = errors.New("index value truncated")

	// ErrDuplicateDocument is returned when adding a title that is already indexed.
	ErrDuplicateDocument = errors.New("document already indexed")
)
