package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"book-rag/internal/config"
)

// Embedder converts text into fixed-dimension float32 vectors. Batch
// output preserves input order exactly; the corpus alignment invariant
// depends on it. Implementations must be deterministic for a fixed
// model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LangchainEmbedder wraps a langchaingo embedder. Input is lowercased
// here as well as by the normalizer; both call sites lowercase
// defensively so query and corpus stay consistent.
type LangchainEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

// NewOllamaEmbedder builds an embedder backed by a local Ollama server.
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*LangchainEmbedder, error) {
	log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("embedding_model", llmConfig.Model).
		Msg("Initializing ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &LangchainEmbedder{embedder: embedder}, nil
}

// NewOpenAIEmbedder builds an embedder backed by an OpenAI-compatible
// endpoint such as OpenRouter.
func NewOpenAIEmbedder(llmConfig *config.LLMConfig) (*LangchainEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &LangchainEmbedder{embedder: embedder}, nil
}

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, strings.ToLower(text))
}

func (e *LangchainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}
	return e.embedder.EmbedDocuments(ctx, lowered)
}
