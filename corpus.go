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
package entitymine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/fileio"
	"github.com/poiesic/entitymine/progress"
	"github.com/poiesic/entitymine/storage"
	"github.com/poiesic/entitymine/storage/badger"
)

// maxDocumentLine bounds one line of index input, article text included.
const maxDocumentLine = 64 * 1024 * 1024

// ParseDocument splits an index input line of the form
// "title<TAB>text(<TAB>target<TAB>label)*". A trailing target without a
// label gets an empty label; pairs with an empty target are dropped.
func ParseDocument(line string) (*core.Document, string, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return nil, "", fmt.Errorf("%w: expected title and text", ErrMalformedDocument)
	}

	doc := &core.Document{Title: fields[0]}
	rest := fields[2:]
	if len(rest) > 0 {
		doc.Links = make([]core.Link, 0, (len(rest)+1)/2)
	}
	for i := 0; i < len(rest); i += 2 {
		if rest[i] == "" {
			continue
		}
		link := core.Link{Target: rest[i]}
		if i+1 < len(rest) {
			link.Label = rest[i+1]
		}
		doc.Links = append(doc.Links, link)
	}
	return doc, fields[1], nil
}

// IndexDocuments adds every document read from r to w and flushes it.
// Invalid and already indexed documents are logged and skipped; a line that
// cannot be parsed stops indexing. The count excludes skipped documents.
func IndexDocuments(ctx context.Context, r io.Reader, w storage.IndexWriter, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tracker := progress.NewTracker(logger, "index", 0, 50_000, 30*time.Second)
	tracker.Start()
	defer tracker.Finish()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxDocumentLine)

	added, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return added, err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		doc, text, err := ParseDocument(line)
		if err != nil {
			return added, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := w.Add(ctx, doc, text); err != nil {
			if errors.Is(err, core.ErrInvalidDocument) {
				logger.Warn("skipping invalid document", "line", lineNo, "err", err)
				continue
			}
			if errors.Is(err, storage.ErrDuplicateDocument) {
				logger.Warn("skipping duplicate document", "line", lineNo, "title", doc.Title)
				continue
			}
			return added, fmt.Errorf("line %d: %w", lineNo, err)
		}
		added++
		tracker.Increment(1)
	}
	if err := scanner.Err(); err != nil {
		return added, err
	}
	return added, w.Flush(ctx)
}

// BuildIndex reads index input from input (compressed or plain, "-" for
// stdin) into the Badger index at dir, creating it when missing.
func BuildIndex(ctx context.Context, input, dir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	in, err := fileio.OpenInput(input)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	backend, err := badger.OpenBackend(dir, false, badger.WithBackendLogger(logger))
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	writer, err := badger.NewWriter(backend)
	if err != nil {
		return 0, err
	}

	added, err := IndexDocuments(ctx, in, writer, logger)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return added, err
	}
	logger.Info("index built", "documents", added, "dir", dir)
	return added, nil
}
