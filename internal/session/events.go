package session

import (
	"sync"

	"github.com/twil3akine/gurobilab/internal/progress"
)

// EventKind says what changed.
type EventKind int

const (
	// EventStatus: status, message or pid changed.
	EventStatus EventKind = iota
	// EventLine: a line was appended to the log.
	EventLine
	// EventSample: a gap sample was appended.
	EventSample
	// EventText: the log or analysis text was replaced.
	EventText
)

// Event is a change notification.
type Event struct {
	Kind   EventKind
	Status Status
	Line   string
	Sample progress.Sample
}

const subscriberBuffer = 512

type eventHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan Event)}
}

func (h *eventHub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *eventHub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
