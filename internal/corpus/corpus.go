// Package corpus holds the precomputed embedding matrix and its aligned
// book metadata. Index i of the matrix always corresponds to index i of
// the metadata slice; every ranking result depends on that alignment.
package corpus

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"book-rag/internal/models"
)

// Store is loaded once at startup and read-only afterwards, so it is
// safe for unsynchronized concurrent reads.
type Store struct {
	embeddings [][]float32
	records    []models.BookRecord
}

// New builds a Store from an in-memory matrix and metadata slice,
// enforcing the alignment invariant.
func New(embeddings [][]float32, records []models.BookRecord) (*Store, error) {
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("corpus alignment mismatch: %d embeddings vs %d records",
			len(embeddings), len(records))
	}
	return &Store{embeddings: embeddings, records: records}, nil
}

// Load reads the two aligned corpus files. Any failure returns an error
// rather than a half-populated store; the caller must treat it as fatal.
func Load(embeddingsPath, metadataPath string) (*Store, error) {
	embeddings, err := loadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings from %s: %w", embeddingsPath, err)
	}

	records, err := loadMetadata(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("loading metadata from %s: %w", metadataPath, err)
	}

	store, err := New(embeddings, records)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("books", len(records)).
		Int("dimension", store.Dimension()).
		Msg("Loaded book corpus")
	return store, nil
}

func loadEmbeddings(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var embeddings [][]float32
	if err := json.Unmarshal(data, &embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func loadMetadata(path string) ([]models.BookRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []models.BookRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save writes the matrix and metadata as two aligned JSON files.
func Save(embeddingsPath, metadataPath string, embeddings [][]float32, records []models.BookRecord) error {
	if len(embeddings) != len(records) {
		return fmt.Errorf("corpus alignment mismatch: %d embeddings vs %d records",
			len(embeddings), len(records))
	}

	data, err := json.Marshal(embeddings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(embeddingsPath, data, 0o644); err != nil {
		return err
	}

	data, err = json.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(metadataPath, data, 0o644)
}

func (s *Store) Len() int { return len(s.records) }

// Dimension reports the embedding width, 0 for an empty corpus.
func (s *Store) Dimension() int {
	if len(s.embeddings) == 0 {
		return 0
	}
	return len(s.embeddings[0])
}

func (s *Store) Embeddings() [][]float32 { return s.embeddings }

func (s *Store) Record(i int) models.BookRecord { return s.records[i] }

// Records maps ranker indices to metadata, preserving order.
func (s *Store) Records(indices []int) []models.BookRecord {
	out := make([]models.BookRecord, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.records[i])
	}
	return out
}

// BuildEmbeddingInput regenerates the exact concatenated string that was
// embedded for a record. It must stay byte-identical to the string used
// by the offline pipeline.
func BuildEmbeddingInput(rec models.BookRecord) string {
	return fmt.Sprintf("Title: %s. Author: %s. Subjects: %s. Year: %s.",
		rec.Title, rec.Author, rec.Subjects, rec.Year)
}
