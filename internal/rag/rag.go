// Package rag relays a streaming model response to the caller as an
// ordered sequence of events. Chunks are forwarded in arrival order with
// no buffering beyond line parsing; the caller always receives a
// well-formed terminal event, never a silently truncated stream.
package rag

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"book-rag/internal/models"
)

type EventType int

const (
	EventDelta EventType = iota
	EventError
	EventDone
)

// Event is one unit of the response stream: a content delta, a single
// terminal error, or the done marker.
type Event struct {
	Type EventType
	Data string
}

// ChunkStream is a lazy sequence of content deltas from the generative
// model. Recv returns io.EOF on clean completion; Close releases the
// upstream connection on early termination.
type ChunkStream interface {
	Recv() (string, error)
	Close() error
}

// Upstream starts a streaming completion for an ordered message list.
type Upstream interface {
	Stream(ctx context.Context, messages []models.ChatMessage) (ChunkStream, error)
}

// HistoryAppender records one conversation turn. Failures must not
// affect the streaming critical path.
type HistoryAppender interface {
	Append(ctx context.Context, userID, role, content string) error
}

type Orchestrator struct {
	upstream Upstream
	history  HistoryAppender
	timeout  time.Duration
}

func NewOrchestrator(upstream Upstream, history HistoryAppender, timeout time.Duration) *Orchestrator {
	return &Orchestrator{upstream: upstream, history: history, timeout: timeout}
}

// Stream validates the conversation and starts relaying model output.
// Validation failures are reported synchronously before any upstream
// call. The returned channel yields deltas in arrival order and is
// closed after exactly one terminal event (done or error). Cancelling
// ctx stops consumption and releases the upstream connection.
func (o *Orchestrator) Stream(ctx context.Context, userID string, messages []models.ChatMessage) (<-chan Event, error) {
	if len(messages) == 0 {
		return nil, models.ErrInvalidMessages
	}

	events := make(chan Event)
	go o.relay(ctx, userID, messages, events)
	return events, nil
}

func (o *Orchestrator) relay(ctx context.Context, userID string, messages []models.ChatMessage, events chan<- Event) {
	defer close(events)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	stream, err := o.upstream.Stream(ctx, messages)
	if err != nil {
		// the client has committed to reading a stream, so even a
		// setup failure is delivered inside the stream envelope
		log.Error().Err(err).Msg("Upstream request failed before streaming")
		o.emit(ctx, events, Event{Type: EventError, Data: "recommendation stream failed"})
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			if !o.emit(ctx, events, Event{Type: EventDone}) {
				return
			}
			o.persist(userID, messages, full.String())
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Stream terminated mid-response")
			o.emit(ctx, events, Event{Type: EventError, Data: "recommendation stream interrupted"})
			return
		}

		full.WriteString(delta)
		if !o.emit(ctx, events, Event{Type: EventDelta, Data: delta}) {
			// consumer went away; stop pulling chunks
			return
		}
	}
}

// emit delivers ev unless the consumer's context is already gone.
func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// persist appends the user turn and the aggregated assistant reply after
// a clean completion. Relaying took priority; history failures are
// logged, never surfaced.
func (o *Orchestrator) persist(userID string, messages []models.ChatMessage, assistantText string) {
	if o.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if user := lastUserMessage(messages); user != "" {
		if err := o.history.Append(ctx, userID, models.RoleUser, user); err != nil {
			log.Warn().Err(err).Msg("Failed to persist user message")
		}
	}
	if err := o.history.Append(ctx, userID, models.RoleAssistant, assistantText); err != nil {
		log.Warn().Err(err).Msg("Failed to persist assistant message")
	}
}

func lastUserMessage(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
