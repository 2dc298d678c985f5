// Package server exposes the recommendation service over HTTP. The
// search endpoint speaks server-sent events so clients see tokens as
// the model produces them.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"book-rag/internal/history"
	"book-rag/internal/models"
	"book-rag/internal/rag"
)

const (
	defaultUserID      = "anonymous"
	defaultHistorySize = 50
)

// Searcher runs the retrieval-augmented pipeline for one query, or
// relays a raw conversation without retrieval.
type Searcher interface {
	Search(ctx context.Context, userID, query string) (<-chan rag.Event, error)
	Chat(ctx context.Context, userID string, messages []models.ChatMessage) (<-chan rag.Event, error)
}

// HistoryReader returns recent conversation turns for a user.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, n int) ([]history.Turn, error)
}

// HealthChecker reports whether the cache backend answers.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type Server struct {
	router   chi.Router
	searcher Searcher
	history  HistoryReader
	health   HealthChecker
}

func New(searcher Searcher, hist HistoryReader, health HealthChecker) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		searcher: searcher,
		history:  hist,
		health:   health,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleWelcome)
	s.router.Post("/search_books", s.handleSearchBooks)
	s.router.Post("/chat/stream", s.handleChatStream)
	s.router.Get("/chat/messages", s.handleChatMessages)
	s.router.Get("/healthcheck/redis", s.handleRedisHealth)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting http server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Book Search API"})
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := s.searcher.Search(r.Context(), userID(r), req.Query)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	streamEvents(w, events)
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// handleChatStream relays a raw conversation to the model, bypassing
// retrieval. Used by clients that manage their own context.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := s.searcher.Chat(r.Context(), userID(r), req.Messages)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	streamEvents(w, events)
}

func streamEvents(w http.ResponseWriter, events <-chan rag.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		switch ev.Type {
		case rag.EventDelta:
			writeSSEData(w, ev.Data)
		case rag.EventError:
			writeSSEError(w, ev.Data)
		case rag.EventDone:
			writeSSEData(w, "[DONE]")
		}
		flusher.Flush()
	}
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "chat history not configured")
		return
	}

	n := defaultHistorySize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		n = parsed
	}

	turns, err := s.history.Recent(r.Context(), userID(r), n)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load chat history")
		writeError(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	if turns == nil {
		turns = []history.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": turns})
}

func (s *Server) handleRedisHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil || !s.health.Healthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return defaultUserID
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, models.ErrInvalidMessages):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrProfanity):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeSSEData frames one payload as an SSE event. A multi-line payload
// becomes multiple data: lines within the same event.
func writeSSEData(w http.ResponseWriter, payload string) {
	for _, line := range strings.Split(payload, "\n") {
		w.Write([]byte("data: " + line + "\n"))
	}
	w.Write([]byte("\n"))
}

func writeSSEError(w http.ResponseWriter, msg string) {
	w.Write([]byte("event: error\n"))
	w.Write([]byte("data: " + msg + "\n\n"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
