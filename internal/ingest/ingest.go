// Package ingest turns scraped book dumps into an aligned embedding
// corpus. Input is a JSON object keyed by subject, each value a list of
// loosely-shaped book entries; scraped data is messy, so every field is
// extracted tolerantly rather than rejected.
package ingest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"book-rag/internal/corpus"
	"book-rag/internal/embedding"
	"book-rag/internal/models"
)

// Normalizer reduces text to the canonical form used for embedding.
type Normalizer interface {
	Normalize(text string) string
	NormalizeSubjects(value any) string
}

type Builder struct {
	normalizer Normalizer
	embedder   embedding.Embedder
	batchSize  int
}

func NewBuilder(normalizer Normalizer, embedder embedding.Embedder) *Builder {
	return &Builder{normalizer: normalizer, embedder: embedder, batchSize: 64}
}

// Run loads a raw dump, embeds every record and writes the aligned
// corpus files.
func (b *Builder) Run(ctx context.Context, inputPath, embeddingsPath, metadataPath string) error {
	raw, err := LoadRaw(inputPath)
	if err != nil {
		return fmt.Errorf("loading raw dump: %w", err)
	}

	records := b.Preprocess(raw)
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", inputPath)
	}
	log.Info().Int("records", len(records)).Msg("Preprocessed book dump")

	vectors, err := b.Embed(ctx, records)
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}

	return corpus.Save(embeddingsPath, metadataPath, vectors, records)
}

// LoadRaw reads a subject-keyed dump of book entries.
func LoadRaw(path string) (map[string][]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, nil
}

// Preprocess flattens the subject-keyed dump into deduplicated records
// with embedding inputs attached. Subjects are walked in sorted order so
// the output is stable across runs.
func (b *Builder) Preprocess(raw map[string][]map[string]any) []models.BookRecord {
	subjects := make([]string, 0, len(raw))
	for s := range raw {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	seen := make(map[string]bool)
	var records []models.BookRecord
	for _, subject := range subjects {
		for _, entry := range raw[subject] {
			rec, ok := b.extract(entry)
			if !ok {
				continue
			}
			if seen[rec.BookID] {
				continue
			}
			seen[rec.BookID] = true
			records = append(records, rec)
		}
	}
	return records
}

// Embed produces one vector per record, in record order.
func (b *Builder) Embed(ctx context.Context, records []models.BookRecord) ([][]float32, error) {
	inputs := make([]string, len(records))
	for i, rec := range records {
		inputs[i] = rec.EmbeddingInput
	}

	vectors := make([][]float32, 0, len(records))
	for start := 0; start < len(inputs); start += b.batchSize {
		end := start + b.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := b.embedder.EmbedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch starting at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
		log.Debug().Int("done", end).Int("total", len(inputs)).Msg("Embedded batch")
	}
	return vectors, nil
}

// extract builds one record with every text field in normalized form,
// so EmbeddingInput is regenerable from the record's own fields.
func (b *Builder) extract(entry map[string]any) (models.BookRecord, bool) {
	title := stringField(entry, "title")
	if title == "" {
		return models.BookRecord{}, false
	}

	rec := models.BookRecord{
		BookID:   bookID(entry),
		Title:    b.normalizer.Normalize(title),
		Author:   b.normalizer.Normalize(authorField(entry)),
		Subjects: b.normalizer.NormalizeSubjects(entry["subjects"]),
		Year:     yearField(entry),
	}
	rec.EmbeddingInput = corpus.BuildEmbeddingInput(rec)
	return rec, true
}

func bookID(entry map[string]any) string {
	if id := stringField(entry, "book_id"); id != "" {
		return id
	}
	if id := stringField(entry, "work_id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// authorField handles every author shape seen in scraped dumps: a plain
// string, a list of names (joined), or a list of {"name": ...} objects
// under "authors" (first name only).
func authorField(entry map[string]any) string {
	switch v := entry["author"].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var names []string
		for _, e := range v {
			if name, ok := e.(string); ok {
				names = append(names, strings.TrimSpace(name))
			}
		}
		if len(names) > 0 {
			return strings.Join(names, ", ")
		}
	}
	if authors, ok := entry["authors"].([]any); ok && len(authors) > 0 {
		if m, ok := authors[0].(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				return strings.TrimSpace(name)
			}
		}
	}
	return ""
}

func yearField(entry map[string]any) string {
	for _, key := range []string{"year", "first_publish_year"} {
		switch v := entry[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.Itoa(int(v))
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func stringField(entry map[string]any, key string) string {
	if v, ok := entry[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
