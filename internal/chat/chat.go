// Package chat keeps the running transcript and conversation id for one
// assistant conversation. The session starts idle (no conversation id, empty
// transcript), becomes active once the backend assigns an id, and returns to
// idle on Clear.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID      string
	Role    Role
	Content string
}

// Reply is one assistant turn as returned by the backend.
type Reply struct {
	ConversationID int64
	Text           string
}

// Sender delivers one chat turn to the backend. conversationID is nil while
// the session is idle.
type Sender interface {
	Send(ctx context.Context, userID, message string, conversationID *int64) (Reply, error)
}

// mutationMarkers are the substrings in an assistant reply that imply the
// backend mutated tasks. String matching here is a known weak point; the
// backend does not return a structured "tasks changed" flag.
var mutationMarkers = []string{
	"[completed]",
	"[done]",
	"[updated]",
	"[removed]",
	"added",
	"deleted",
	"completed",
	"updated",
}

const defaultSettleDelay = time.Second

type Session struct {
	userID      string
	sender      Sender
	onMutation  func()
	settleDelay time.Duration

	mu             sync.Mutex
	conversationID *int64
	transcript     []Message
	busy           bool
}

type Option func(*Session)

// WithMutationHandler registers the callback fired (after a settle delay)
// when an assistant reply implies the task collection changed.
func WithMutationHandler(fn func()) Option {
	return func(s *Session) { s.onMutation = fn }
}

// WithSettleDelay overrides the delay between detecting a mutation marker and
// firing the mutation handler.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settleDelay = d }
}

func NewSession(userID string, sender Sender, opts ...Option) *Session {
	s := &Session{
		userID:      userID,
		sender:      sender,
		settleDelay: defaultSettleDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends the user message to the transcript immediately, then issues
// the backend request. On success the assistant reply is appended and, on the
// first turn, the conversation id recorded. On failure a visible error entry
// is appended instead; the transcript is never rolled back.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.transcript = append(s.transcript, Message{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Content: text,
	})
	conversationID := s.conversationID
	s.mu.Unlock()

	reply, err := s.sender.Send(ctx, s.userID, text, conversationID)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.transcript = append(s.transcript, Message{
			ID:      uuid.NewString(),
			Role:    RoleAssistant,
			Content: "Error: " + err.Error(),
		})
		s.mu.Unlock()
		return
	}

	if s.conversationID == nil && reply.ConversationID != 0 {
		id := reply.ConversationID
		s.conversationID = &id
	}
	s.transcript = append(s.transcript, Message{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Content: reply.Text,
	})
	mutated := impliesMutation(reply.Text)
	s.mu.Unlock()

	if mutated && s.onMutation != nil {
		// Let the backend's own write settle before re-fetching.
		time.AfterFunc(s.settleDelay, s.onMutation)
	}
}

// Clear returns to idle unconditionally, discarding the transcript and the
// conversation id.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = nil
	s.transcript = nil
}

// Busy reports whether a send is in flight. The UI disables its send control
// while true; the session itself also drops overlapping sends.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Active reports whether a conversation id has been assigned.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID != nil
}

func (s *Session) ConversationID() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == nil {
		return nil
	}
	id := *s.conversationID
	return &id
}

// Transcript returns a copy of the message history.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Message, len(s.transcript))
	copy(result, s.transcript)
	return result
}

func impliesMutation(reply string) bool {
	lowered := strings.ToLower(reply)
	for _, marker := range mutationMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
