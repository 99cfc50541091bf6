// Package realtime fans out new posts to live listeners such as the
// websocket feed served by pkg/api.
//
// Delivery is best effort: every listener has its own buffered channel and
// an event is dropped for a listener whose buffer is full, so a slow reader
// never blocks posting. Nothing is persisted or replayed.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/textboard/pkg/core"
)

const (
	KindThread = "thread"
	KindReply  = "reply"
)

// DefaultBuffer is the per-listener buffer used when none is given.
const DefaultBuffer = 32

// PostEvent announces a newly created thread or reply.
type PostEvent struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"threadId"`
	Subject   string    `json:"subject,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	HasImage  bool      `json:"hasImage"`
}

// ThreadCreated builds the event for a new thread.
func ThreadCreated(t *core.Thread) PostEvent {
	return PostEvent{
		Kind:      KindThread,
		ID:        t.ID,
		ThreadID:  t.ID,
		Subject:   t.Subject,
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
		HasImage:  t.Image != nil,
	}
}

// ReplyCreated builds the event for a new reply in the thread titled subject.
func ReplyCreated(r *core.Reply, subject string) PostEvent {
	return PostEvent{
		Kind:      KindReply,
		ID:        r.ID,
		ThreadID:  r.ThreadID,
		Subject:   subject,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		HasImage:  r.Image != nil,
	}
}

// Hub is an in-memory fan-out dispatcher, safe for concurrent use.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan PostEvent
	nextID    uint64
	bufSize   int
}

// NewHub returns a hub with bufSize slots per listener, DefaultBuffer when
// bufSize <= 0.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBuffer
	}
	return &Hub{
		listeners: make(map[uint64]chan PostEvent),
		bufSize:   bufSize,
	}
}

// Register adds a listener. Callers must Unregister the returned id.
func (h *Hub) Register() (uint64, <-chan PostEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan PostEvent, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers ev to every listener with room in its buffer and
// returns how many received it.
func (h *Hub) Broadcast(ev PostEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Size returns the number of registered listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
