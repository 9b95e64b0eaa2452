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
// Package pipeline scores a stream of candidate phrases concurrently and
// writes the report in input order.
//
// A single producer reads phrases and feeds two bounded queues: a work queue
// consumed by a pool of scoring workers, and an order queue consumed by the
// output sequencer. The sequencer waits on each candidate's completion
// channel in turn, so report order always equals input order no matter which
// worker finishes first.
//
// A worker whose index query fails, or whose scorer panics, abandons its
// candidate and exits. Once all
// workers are gone the remaining queued candidates are abandoned too, and Run
// reports the worker errors after the report has been flushed.
package pipeline
