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
package pipeline

import "errors"

var (
	// ErrScorerFactoryRequired is returned when no scorer factory is provided.
	ErrScorerFactoryRequired = errors.New("scorer factory required")

	// ErrInvalidQueueSize is returned when a queue capacity is below one.
	ErrInvalidQueueSize = errors.New("queue size must be at least 1")

	// ErrInvalidPollInterval is returned when the backpressure poll interval is not positive.
	ErrInvalidPollInterval = errors.New("poll interval must be positive")

	// ErrScorerPanic wraps a panic raised while scoring a candidate.
	ErrScorerPanic = errors.New("scorer panicked")
)
