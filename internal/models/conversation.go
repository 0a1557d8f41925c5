package models

// Conversation is an append-only, in-memory sequence of messages. It lives as long as the page (or
// terminal) session that owns it and is never persisted.
//
// Conversation is not safe for concurrent use; the owner serializes access.
type Conversation struct {
	messages []Message
}

// Append adds msg to the end of the conversation and returns its position.
func (c *Conversation) Append(msg Message) int {
	c.messages = append(c.messages, msg)
	return len(c.messages) - 1
}

// Messages returns a copy of the conversation in order.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len reports the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
