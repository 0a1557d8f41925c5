package models

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the person using the chat.
	RoleUser Role = "user"
	// RoleAssistant represents a reply produced by the relay, including the error texts that stand in for
	// a reply when something failed along the way.
	RoleAssistant Role = "assistant"
)

// Message is a single entry of a conversation. A message never changes once it has been appended, and it
// has no identity beyond its position in the conversation.
type Message struct {
	Role    Role
	Content string
}
