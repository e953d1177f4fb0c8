package staff

import (
	"sync"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

// ReplyHub routes staff-authored replies to sessions waiting on a human
// response. A send on the human channel opens a mailbox for its session
// and selects on it against its own deadline; the staff surface posts
// replies into it. The mailbox buffers one reply, so a reply posted
// before the wait begins is kept.
type ReplyHub struct {
	mu        sync.Mutex
	mailboxes map[string]chan model.Message
}

// NewReplyHub creates an empty reply hub.
func NewReplyHub() *ReplyHub {
	return &ReplyHub{mailboxes: make(map[string]chan model.Message)}
}

// Open registers a mailbox for a session and returns it. An existing
// mailbox for the same session is reused.
func (h *ReplyHub) Open(sessionID string) <-chan model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.mailboxes[sessionID]; ok {
		return ch
	}
	ch := make(chan model.Message, 1)
	h.mailboxes[sessionID] = ch
	return ch
}

// Close removes a session's mailbox.
func (h *ReplyHub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.mailboxes, sessionID)
}

// PostReply delivers a staff reply to the session's mailbox. Returns false
// when no one is waiting on that session.
func (h *ReplyHub) PostReply(msg model.Message) bool {
	h.mu.Lock()
	ch, ok := h.mailboxes[msg.SessionID]
	h.mu.Unlock()

	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
