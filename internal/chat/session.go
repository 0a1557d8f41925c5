// Package chat holds the presentation-side conversation state shared by the web and terminal front ends:
// the submit guard, the relay round trip, and the per-block copy state.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/MegaGrindStone/gemini-web-chat/internal/models"
)

const (
	// ConnectionErrorReply is appended as the assistant message when the relay cannot be reached.
	ConnectionErrorReply = "Error connecting to server."
	// EmptyReply is appended when the relay answered with an empty reply.
	EmptyReply = "No response"
)

// Relay sends one user message to the relay endpoint and returns its reply. An error means the endpoint
// could not be reached or answered with something other than a reply payload.
type Relay interface {
	Send(ctx context.Context, message string) (string, error)
}

// Session is the conversation of one page (or terminal) session together with its loading flag. While a
// reply is pending the session is loading and further submissions are ignored.
//
// Session is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	conversation models.Conversation
	loading      bool

	relay Relay
}

// NewSession creates an empty, idle session that talks to relay.
func NewSession(relay Relay) *Session {
	return &Session{relay: relay}
}

// Begin accepts input as the next user message. It is a no-op, reporting false, when a reply is still
// pending or when input is empty after trimming whitespace. Otherwise the user message is appended as
// typed, the session starts loading, and the message and its position are returned.
func (s *Session) Begin(input string) (models.Message, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading || strings.TrimSpace(input) == "" {
		return models.Message{}, 0, false
	}

	msg := models.Message{Role: models.RoleUser, Content: input}
	pos := s.conversation.Append(msg)
	s.loading = true

	return msg, pos, true
}

// Complete appends the assistant message for the pending reply and returns the session to idle. A non-nil
// err is shown as ConnectionErrorReply, and an empty reply as EmptyReply.
func (s *Session) Complete(reply string, err error) (models.Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := reply
	switch {
	case err != nil:
		content = ConnectionErrorReply
	case content == "":
		content = EmptyReply
	}

	msg := models.Message{Role: models.RoleAssistant, Content: content}
	pos := s.conversation.Append(msg)
	s.loading = false

	return msg, pos
}

// Submit runs a full round trip: Begin, the relay call, then Complete. It reports whether input was
// accepted. The relay call is not cancelled on its own; it lasts as long as ctx allows.
func (s *Session) Submit(ctx context.Context, input string) bool {
	msg, _, ok := s.Begin(input)
	if !ok {
		return false
	}

	reply, err := s.relay.Send(ctx, msg.Content)
	s.Complete(reply, err)

	return true
}

// Send forwards message to the session's relay without touching the conversation. Front ends that run
// the relay call asynchronously use it between Begin and Complete.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	return s.relay.Send(ctx, message)
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conversation.Messages()
}

// Loading reports whether a reply is pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}
