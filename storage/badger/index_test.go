package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/poiesic/entitymine/core"
	"github.com/poiesic/entitymine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestIndex(t *testing.T) (*Index, *Writer) {
	index, writer, backend, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() {
		backend.Close()
	})
	return index, writer
}

func addDocument(t *testing.T, w *Writer, title, text string, links ...core.Link) *core.Document {
	doc := &core.Document{Title: title, Links: links}
	require.NoError(t, w.Add(context.Background(), doc, text))
	return doc
}

func titles(res *core.SearchResult) []string {
	out := make([]string, 0, len(res.Documents))
	for _, doc := range res.Documents {
		out = append(out, doc.Title)
	}
	return out
}

func TestSearch_Phrase(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	addDocument(t, writer, "enwiki:A", "President Barack Obama visited Chicago.",
		core.Link{Target: "enwiki:Barack Obama", Label: "Barack Obama"})
	addDocument(t, writer, "enwiki:B", "Obama, Barack is listed in reverse order.")
	addDocument(t, writer, "enwiki:C", "barack   obama again, twice: barack obama")
	require.NoError(t, writer.Flush(ctx))

	res, err := index.Search(ctx, []string{"barack", "obama"}, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalHits)
	assert.ElementsMatch(t, []string{"enwiki:A", "enwiki:C"}, titles(res))

	for _, doc := range res.Documents {
		if doc.Title == "enwiki:A" {
			require.Len(t, doc.Links, 1)
			assert.Equal(t, core.Link{Target: "enwiki:Barack Obama", Label: "Barack Obama"}, doc.Links[0])
		}
	}
}

func TestSearch_SingleTerm(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	addDocument(t, writer, "enwiki:A", "Chicago is a city")
	addDocument(t, writer, "enwiki:B", "Springfield is a city")
	require.NoError(t, writer.Close())

	res, err := index.Search(ctx, []string{"City"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalHits)
	assert.Len(t, res.Documents, 2)
}

func TestSearch_RepeatedTermInPhrase(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	addDocument(t, writer, "enwiki:A", "new new york")
	addDocument(t, writer, "enwiki:B", "new york is new")
	require.NoError(t, writer.Flush(ctx))

	res, err := index.Search(ctx, []string{"new", "new"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
	assert.Equal(t, []string{"enwiki:A"}, titles(res))
}

func TestSearch_LimitCapsDocumentsNotHits(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	for i := 0; i < 30; i++ {
		addDocument(t, writer, fmt.Sprintf("enwiki:Doc %d", i), "the red river flows")
	}
	require.NoError(t, writer.Flush(ctx))

	res, err := index.Search(ctx, []string{"red", "river"}, 5)
	require.NoError(t, err)
	assert.Equal(t, 30, res.TotalHits)
	assert.Len(t, res.Documents, 5)
}

func TestSearch_NoMatch(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	addDocument(t, writer, "enwiki:A", "red river")
	require.NoError(t, writer.Flush(ctx))

	res, err := index.Search(ctx, []string{"blue", "river"}, 5)
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
	assert.Empty(t, res.Documents)

	res, err = index.Search(ctx, []string{"river", "red"}, 5)
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)

	res, err = index.Search(ctx, nil, 5)
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
}

func TestSearch_InvalidLimit(t *testing.T) {
	index, _ := setupTestIndex(t)

	_, err := index.Search(context.Background(), []string{"x"}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestSearch_ClosedBackend(t *testing.T) {
	index, _, backend, err := NewMemoryIndex()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = index.Search(context.Background(), []string{"x"}, 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWriter_RejectsDuplicateTitles(t *testing.T) {
	ctx := context.Background()
	index, writer := setupTestIndex(t)

	addDocument(t, writer, "enwiki:A", "first version")
	err := writer.Add(ctx, &core.Document{Title: "enwiki:A"}, "second version")
	assert.ErrorIs(t, err, storage.ErrDuplicateDocument)
	require.NoError(t, writer.Flush(ctx))
	err = writer.Add(ctx, &core.Document{Title: "enwiki:A"}, "third version")
	assert.ErrorIs(t, err, storage.ErrDuplicateDocument)
	require.NoError(t, writer.Flush(ctx))

	res, err := index.Search(ctx, []string{"version"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)

	res, err = index.Search(ctx, []string{"second"}, 10)
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
}

func TestWriter_RejectsInvalidDocument(t *testing.T) {
	_, writer := setupTestIndex(t)

	err := writer.Add(context.Background(), &core.Document{Title: ""}, "text")
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestWriter_MergesPostingsAcrossFlushes(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	writer, err := NewWriter(backend, WithFlushEvery(2))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		addDocument(t, writer, fmt.Sprintf("enwiki:%d", i), "shared term")
	}
	require.NoError(t, writer.Close())

	index, err := NewIndex(backend)
	require.NoError(t, err)
	res, err := index.Search(ctx, []string{"shared", "term"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalHits)
}

func TestIndex_ReopenReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	writer, err := NewWriter(backend)
	require.NoError(t, err)
	addDocument(t, writer, "enwiki:A", "persistent phrase here")
	require.NoError(t, writer.Close())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false, WithReadOnly())
	require.NoError(t, err)
	defer backend.Close()

	index, err := NewIndex(backend)
	require.NoError(t, err)
	res, err := index.Search(ctx, []string{"persistent", "phrase"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
}
