// Package search assembles the retrieval pipeline: validate, gate,
// cache, embed, rank, prompt, stream. The Service is constructed once at
// startup and handed to request handlers; nothing here mutates shared
// state per request.
package search

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"book-rag/internal/corpus"
	"book-rag/internal/embedding"
	"book-rag/internal/models"
	"book-rag/internal/profanity"
	"book-rag/internal/prompt"
	"book-rag/internal/rag"
	"book-rag/internal/ranker"
	"book-rag/internal/workerpool"
)

// Cache is the optional read-through cache collaborator. A miss and an
// unavailable cache look the same to the pipeline.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Normalizer produces the canonical token form of a query, used as the
// cache key.
type Normalizer interface {
	Normalize(text string) string
}

type Service struct {
	normalizer Normalizer
	embedder   embedding.Embedder
	store      *corpus.Store
	cache      Cache
	gate       profanity.Gate
	orch       *rag.Orchestrator
	pool       *workerpool.Pool
	topK       int
}

type Options struct {
	Normalizer Normalizer
	Embedder   embedding.Embedder
	Store      *corpus.Store
	Cache      Cache
	Gate       profanity.Gate
	Orch       *rag.Orchestrator
	Pool       *workerpool.Pool
	TopK       int
}

func NewService(opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Pool == nil {
		opts.Pool = workerpool.New(1)
	}
	return &Service{
		normalizer: opts.Normalizer,
		embedder:   opts.Embedder,
		store:      opts.Store,
		cache:      opts.Cache,
		gate:       opts.Gate,
		orch:       opts.Orch,
		pool:       opts.Pool,
		topK:       opts.TopK,
	}
}

// Search runs the full pipeline for one query and returns the response
// event stream. Validation, profanity and availability failures are
// returned synchronously; everything after that arrives on the stream.
func (s *Service) Search(ctx context.Context, userID, query string) (<-chan rag.Event, error) {
	records, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	messages := prompt.BuildMessages(strings.ToLower(strings.TrimSpace(query)), records)
	return s.orch.Stream(ctx, userID, messages)
}

// Chat relays an already-assembled conversation to the model without
// retrieval. The orchestrator owns message validation.
func (s *Service) Chat(ctx context.Context, userID string, messages []models.ChatMessage) (<-chan rag.Event, error) {
	return s.orch.Stream(ctx, userID, messages)
}

// Retrieve returns the top-k records for a query without invoking the
// generative model.
func (s *Service) Retrieve(ctx context.Context, query string) ([]models.BookRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	if s.gate != nil && s.gate.IsProfane(query) {
		return nil, models.ErrProfanity
	}
	if s.store == nil || s.embedder == nil {
		// an empty result here would be indistinguishable from
		// "no good matches" for the user, so fail loudly instead
		return nil, models.ErrUnavailable
	}

	query = strings.ToLower(query)

	cacheKey := "books:" + s.normalizedKey(query)
	if cached, ok := s.cachedRecords(ctx, cacheKey); ok {
		log.Debug().Str("query", query).Msg("Cache hit for retrieval")
		return cached, nil
	}

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	indices := ranker.Rank(queryVec, s.store.Embeddings(), s.topK)
	records := s.store.Records(indices)

	s.storeRecords(ctx, cacheKey, records)
	return records, nil
}

// embedQuery offloads model inference to the bounded worker pool so a
// slow embedding never blocks other in-flight requests.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var vec []float32
	var embErr error
	if err := s.pool.Submit(ctx, func() {
		vec, embErr = s.embedder.Embed(ctx, query)
	}); err != nil {
		return nil, err
	}
	return vec, embErr
}

func (s *Service) normalizedKey(query string) string {
	if s.normalizer == nil {
		return query
	}
	if normalized := s.normalizer.Normalize(query); normalized != "" {
		return normalized
	}
	return query
}

func (s *Service) cachedRecords(ctx context.Context, key string) ([]models.BookRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var records []models.BookRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return records, true
}

func (s *Service) storeRecords(ctx context.Context, key string, records []models.BookRecord) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, string(raw))
}
