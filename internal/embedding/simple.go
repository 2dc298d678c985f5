package embedding

import (
	"context"
	"math"
	"strings"
)

// SimpleEmbedder is a lightweight word-frequency hash embedding. It
// needs no external model server, which makes it useful for local runs
// and tests, at the cost of retrieval quality.
type SimpleEmbedder struct {
	dimension int
}

func NewSimpleEmbedder(dimension int) *SimpleEmbedder {
	if dimension <= 0 {
		dimension = 128
	}
	return &SimpleEmbedder{dimension: dimension}
}

func (e *SimpleEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.encode(text), nil
}

func (e *SimpleEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.encode(t)
	}
	return out, nil
}

func (e *SimpleEmbedder) encode(text string) []float32 {
	words := strings.Fields(strings.ToLower(text))
	vec := make([]float32, e.dimension)
	if len(words) == 0 {
		return vec
	}

	counts := make(map[string]int)
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word != "" {
			counts[word]++
		}
	}

	for word, count := range counts {
		hash := 0
		for _, char := range word {
			hash = hash*31 + int(char)
		}
		pos := (hash & 0x7FFFFFFF) % e.dimension
		vec[pos] += float32(count) / float32(len(words))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}
