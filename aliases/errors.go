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

package aliases

import "errors"

var (
	// ErrMalformedRow indicates a row whose column count does not match the format.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingHeader indicates an alias source without a header row.
	ErrMissingHeader = errors.New("missing header row")

	// ErrCycleDetected indicates a redirect chain that revisits an alias.
	ErrCycleDetected = errors.New("redirect cycle detected")

	// ErrAnomalousRedirect indicates a redirect source that is itself a mapped alias.
	ErrAnomalousRedirect = errors.New("alias source references a redirect")
)
