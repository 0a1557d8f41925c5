package handlers

import (
	"strconv"
	"sync"

	"github.com/tmaxmax/go-sse"
)

// replyReplayer keeps every assistant bubble published to a page session, so a page that subscribes late
// or reconnects still receives the replies it missed. Event IDs are message positions: a subscription
// with a Last-Event-ID gets the bubbles after that position, one without gets all of them.
//
// The SSE provider calls Put and Replay from a single goroutine, so a bubble is either delivered live or
// replayed, never both.
type replyReplayer struct {
	mu      sync.Mutex
	bubbles map[string][]*sse.Message
}

func newReplyReplayer() *replyReplayer {
	return &replyReplayer{bubbles: make(map[string][]*sse.Message)}
}

// Put implements sse.Replayer. Messages without an ID, such as the shutdown broadcast, are not kept.
func (r *replyReplayer) Put(msg *sse.Message, topics []string) (*sse.Message, error) {
	if len(topics) == 0 {
		return nil, sse.ErrNoTopic
	}
	if !msg.ID.IsSet() {
		return msg, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, topic := range topics {
		if topic == sse.DefaultTopic {
			continue
		}
		r.bubbles[topic] = append(r.bubbles[topic], msg)
	}

	return msg, nil
}

// Replay implements sse.Replayer. The subscription is always flushed so the client sees the stream open
// even when there is nothing to replay.
func (r *replyReplayer) Replay(sub sse.Subscription) error {
	after := -1
	if sub.LastEventID.IsSet() {
		n, err := strconv.Atoi(sub.LastEventID.String())
		if err == nil {
			after = n
		}
	}

	r.mu.Lock()
	var pending []*sse.Message
	for _, topic := range sub.Topics {
		for _, msg := range r.bubbles[topic] {
			if pos, err := strconv.Atoi(msg.ID.String()); err == nil && pos > after {
				pending = append(pending, msg)
			}
		}
	}
	r.mu.Unlock()

	for _, msg := range pending {
		if err := sub.Client.Send(msg); err != nil {
			return err
		}
	}

	return sub.Client.Flush()
}

// forget drops the bubbles kept for topic.
func (r *replyReplayer) forget(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bubbles, topic)
}
