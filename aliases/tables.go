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

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/entitymine/core"
)

// maxLineSize bounds a single row of the alias and redirect tables.
const maxLineSize = 4 * 1024 * 1024

// DataMap maps alias keys to canonical IDs.
type DataMap map[string]core.CanonicalID

// RedirectMap maps a redirecting alias key to the alias key it points at.
type RedirectMap map[string]string

// LoadOption configures the table loaders.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger   *slog.Logger
	sizeHint int
}

// WithLoadLogger sets the logger used while loading.
func WithLoadLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSizeHint preallocates room for n entries.
func WithSizeHint(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.sizeHint = n
		}
	}
}

func newLoadOptions(opts []LoadOption) *loadOptions {
	o := &loadOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

// LoadDataMap reads a tab separated alias table.
//
// The header names the columns: the first is the canonical key column, the
// others are alias sources (e.g. language editions). Each data row holds the
// canonical key followed by one alias per column, empty when absent. Every
// alias is stored as "<column>:<alias>" and maps to the canonical composite
// "<canonical key>:<first alias of the row>", with ':' in that alias
// replaced by a space. Rows without any alias are ignored.
func LoadDataMap(r io.Reader, opts ...LoadOption) (DataMap, error) {
	o := newLoadOptions(opts)
	dm := make(DataMap, o.sizeHint)

	scanner := newScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, ErrMissingHeader
	}
	header := strings.Split(scanner.Text(), "\t")

	var buf strings.Builder
	lineNo, duplicates := 1, 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d columns, header has %d", ErrMalformedRow, lineNo, len(cols), len(header))
		}

		var canonical core.CanonicalID
		for i := 1; i < len(cols); i++ {
			if cols[i] == "" {
				continue
			}
			if canonical == "" {
				buf.Reset()
				buf.WriteString(cols[0])
				buf.WriteByte(':')
				buf.WriteString(strings.ReplaceAll(cols[i], ":", " "))
				canonical = core.CanonicalID(buf.String())
			}
			key := header[i] + ":" + cols[i]
			if _, ok := dm[key]; ok {
				duplicates++
				o.logger.Debug("duplicate alias", "alias", key, "line", lineNo)
			}
			dm[key] = canonical
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if duplicates > 0 {
		o.logger.Warn("alias table contains duplicate aliases", "count", duplicates)
	}
	o.logger.Info("loaded alias table", "aliases", len(dm), "rows", lineNo-1)
	return dm, nil
}

// LoadRedirects reads a tab separated redirect table with exactly two
// columns per line: source alias and target alias. Blank lines are skipped.
func LoadRedirects(r io.Reader, opts ...LoadOption) (RedirectMap, error) {
	o := newLoadOptions(opts)
	rm := make(RedirectMap, o.sizeHint)

	scanner := newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		source, target, ok := strings.Cut(line, "\t")
		if !ok || strings.Contains(target, "\t") {
			return nil, fmt.Errorf("%w: line %d must have exactly 2 columns", ErrMalformedRow, lineNo)
		}
		rm[source] = target
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	o.logger.Info("loaded redirects", "redirects", len(rm))
	return rm, nil
}

// WriteDataMap writes dm as "alias\tcanonical" lines sorted by alias.
func WriteDataMap(w io.Writer, dm DataMap) error {
	bw := bufio.NewWriter(w)
	for _, key := range slices.Sorted(maps.Keys(dm)) {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", key, dm[key]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
