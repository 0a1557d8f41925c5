package chat

import (
	"fmt"
	"time"
)

const (
	// CopyLabel is the idle label of a code block's copy action.
	CopyLabel = "Copy"
	// CopiedLabel is shown on a copy action right after it was used.
	CopiedLabel = "Copied!"
	// CopyResetDelay is how long CopiedLabel stays before the label reverts.
	CopyResetDelay = 2 * time.Second
)

// BlockID identifies a fenced code block by the position of its message in the conversation and its
// index within that message.
type BlockID struct {
	Message int
	Block   int
}

// String returns the id in the "<message>-<block>" form used by the web front end.
func (b BlockID) String() string {
	return fmt.Sprintf("%d-%d", b.Message, b.Block)
}

// CopyState tracks which code blocks were copied recently. Each mark carries a token so that a revert
// scheduled by an earlier copy does not cut short the label of a later one.
//
// The zero value is ready to use. CopyState is not safe for concurrent use.
type CopyState struct {
	copied map[BlockID]uint64
	seq    uint64
}

// Mark flags id as copied and returns the token to pass to Reset once CopyResetDelay has elapsed.
func (c *CopyState) Mark(id BlockID) uint64 {
	if c.copied == nil {
		c.copied = make(map[BlockID]uint64)
	}
	c.seq++
	c.copied[id] = c.seq
	return c.seq
}

// Reset clears the copied flag of id if token belongs to the latest Mark of that block.
func (c *CopyState) Reset(id BlockID, token uint64) {
	if c.copied[id] == token {
		delete(c.copied, id)
	}
}

// Label returns the label to show on the copy action of id.
func (c *CopyState) Label(id BlockID) string {
	if _, ok := c.copied[id]; ok {
		return CopiedLabel
	}
	return CopyLabel
}
