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
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - every Link must have a non-empty Target
//
// Labels may be empty; they simply never match a phrase exactly.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	for i, link := range doc.Links {
		if link.Target == "" {
			return fmt.Errorf("%w: link %d: %w", ErrInvalidDocument, i, ErrEmptyLinkTarget)
		}
	}

	return nil
}

// ValidateParallelism checks that a configured worker count is usable.
func ValidateParallelism(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidParallelism, n)
	}
	return nil
}
