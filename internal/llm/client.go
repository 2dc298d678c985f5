// Package llm talks to an OpenAI-compatible chat completions endpoint in
// streaming mode and exposes the response as a pull-based chunk stream.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"book-rag/internal/config"
	"book-rag/internal/models"
)

type Client struct {
	baseURL     string
	key         string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewClient(llmConfig *config.LLMConfig) *Client {
	timeout := 60 * time.Second
	return &Client{
		baseURL:     strings.TrimSuffix(llmConfig.BaseURL, "/"),
		key:         llmConfig.Key,
		model:       llmConfig.Model,
		temperature: llmConfig.Temperature,
		maxTokens:   llmConfig.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream"`
}

type chunkDelta struct {
	Content string `json:"content"`
}

type chunkChoice struct {
	Delta        chunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type completionChunk struct {
	Choices []chunkChoice `json:"choices"`
}

// Stream sends the conversation upstream with stream enabled. Request
// setup failures (network, auth, non-200 status) are returned before any
// chunk is produced.
func (c *Client) Stream(ctx context.Context, messages []models.ChatMessage) (*Stream, error) {
	payload := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.key, "Bearer "))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("chat completion request failed: %d, %s", resp.StatusCode, string(body))
	}

	return &Stream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// Stream is a lazy, finite, non-restartable sequence of content deltas.
// Closing it early releases the upstream connection.
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

// Recv returns the next content delta in arrival order. It returns
// io.EOF after the upstream [DONE] marker; an EOF without that marker is
// a connection drop, reported as io.ErrUnexpectedEOF. Lines that are not
// data events (blanks, comments) are protocol noise and skipped; a data
// payload that fails to parse is unrecoverable for this request.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("malformed stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
}

func (s *Stream) Close() error {
	return s.body.Close()
}
