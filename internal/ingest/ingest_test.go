package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/corpus"
	"book-rag/internal/embedding"
	"book-rag/internal/normalize"
)

func testBuilder() *Builder {
	return NewBuilder(normalize.NewWithLemmatizer(nil), embedding.NewSimpleEmbedder(16))
}

func TestPreprocessFlattensAndDeduplicates(t *testing.T) {
	raw := map[string][]map[string]any{
		"fantasy": {
			{"book_id": "b1", "title": "The Hobbit", "author": "J.R.R. Tolkien", "subjects": []any{"fantasy", "adventure"}, "first_publish_year": float64(1937)},
			{"book_id": "b2", "title": "Dune", "author": "Frank Herbert", "subjects": "science fiction, desert", "year": "1965"},
		},
		"adventure": {
			// same book listed under a second subject
			{"book_id": "b1", "title": "The Hobbit", "author": "J.R.R. Tolkien"},
		},
	}

	records := testBuilder().Preprocess(raw)

	require.Len(t, records, 2)
	// subjects walked in sorted order, so the adventure copy wins the dedupe
	assert.Equal(t, "b1", records[0].BookID)
	assert.Equal(t, "b2", records[1].BookID)
	assert.Equal(t, "dune", records[1].Title)
	assert.Equal(t, "1965", records[1].Year)
}

func TestPreprocessAuthorShapes(t *testing.T) {
	b := testBuilder()

	cases := []struct {
		name  string
		entry map[string]any
		want  string
	}{
		{"plain string", map[string]any{"title": "tale", "author": " Jane Doe "}, "jane doe"},
		// the author list is joined before normalization, which strips the comma
		{"list of names", map[string]any{"title": "tale", "author": []any{"First Author", "Second Author"}}, "first author second author"},
		{"authors objects", map[string]any{"title": "tale", "authors": []any{map[string]any{"name": "Obj Author"}}}, "obj author"},
		{"missing", map[string]any{"title": "tale"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, ok := b.extract(tc.entry)
			require.True(t, ok)
			assert.Equal(t, tc.want, rec.Author)
		})
	}
}

func TestPreprocessSkipsUntitled(t *testing.T) {
	raw := map[string][]map[string]any{
		"misc": {
			{"book_id": "b1", "author": "Anonymous"},
			{"book_id": "b2", "title": "   "},
			{"book_id": "b3", "title": "Kept"},
		},
	}

	records := testBuilder().Preprocess(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "b3", records[0].BookID)
}

func TestPreprocessGeneratesIDWhenMissing(t *testing.T) {
	raw := map[string][]map[string]any{
		"misc": {{"title": "No ID Book"}},
	}

	records := testBuilder().Preprocess(raw)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].BookID)
}

func TestExtractBuildsNormalizedEmbeddingInput(t *testing.T) {
	rec, ok := testBuilder().extract(map[string]any{
		"book_id":  "b1",
		"title":    "The Hobbit!",
		"author":   "J.R.R. Tolkien",
		"subjects": []any{"Fantasy Fiction"},
		"year":     float64(1937),
	})

	require.True(t, ok)
	assert.Equal(t, "hobbit", rec.Title)
	assert.Equal(t, "jrr tolkien", rec.Author)
	assert.Equal(t, "Title: hobbit. Author: jrr tolkien. Subjects: fantasy fiction. Year: 1937.", rec.EmbeddingInput)
}

func TestExtractEmbeddingInputRegenerable(t *testing.T) {
	rec, ok := testBuilder().extract(map[string]any{
		"book_id":  "b1",
		"title":    "The Hunter's Moon!",
		"author":   "J. R. R. Tolkien",
		"subjects": "Fantasy, Epic Quests",
		"year":     "1954",
	})

	require.True(t, ok)
	// the stored fields alone must reproduce the embedded string exactly
	assert.Equal(t, rec.EmbeddingInput, corpus.BuildEmbeddingInput(rec))
	assert.Equal(t, "hunters moon", rec.Title)
	assert.Equal(t, "j r r tolkien", rec.Author)
}

func TestEmbedPreservesRecordOrder(t *testing.T) {
	b := testBuilder()
	b.batchSize = 2

	raw := map[string][]map[string]any{
		"s": {
			{"book_id": "b1", "title": "alpha"},
			{"book_id": "b2", "title": "beta"},
			{"book_id": "b3", "title": "gamma"},
		},
	}
	records := b.Preprocess(raw)
	require.Len(t, records, 3)

	vectors, err := b.Embed(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	single, err := b.embedder.Embed(context.Background(), records[2].EmbeddingInput)
	require.NoError(t, err)
	assert.Equal(t, single, vectors[2])
}

func TestRunWritesAlignedCorpus(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "books.json")
	embPath := filepath.Join(dir, "embeddings.json")
	metaPath := filepath.Join(dir, "metadata.json")

	dump := `{"fantasy": [
		{"book_id": "b1", "title": "The Hobbit", "author": "J.R.R. Tolkien", "year": "1937"},
		{"book_id": "b2", "title": "Dune", "author": "Frank Herbert", "year": "1965"}
	]}`
	require.NoError(t, os.WriteFile(input, []byte(dump), 0o644))

	require.NoError(t, testBuilder().Run(context.Background(), input, embPath, metaPath))

	store, err := corpus.Load(embPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 16, store.Dimension())
}

func TestRunRejectsEmptyDump(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(input, []byte(`{}`), 0o644))

	err := testBuilder().Run(context.Background(), input, filepath.Join(dir, "e.json"), filepath.Join(dir, "m.json"))
	assert.ErrorContains(t, err, "no usable records")
}
