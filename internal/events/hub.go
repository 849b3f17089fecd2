package events

import (
	"encoding/json"
	"slices"
	"sync"
	"time"
)

type Event struct {
	ID   int64     `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data []byte    `json:"data"` // JSON payload
}

// history is a fixed-size ring of the most recent events, oldest first.
type history struct {
	buf   []Event
	start int
	n     int
}

func (r *history) push(ev Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = ev
		r.n++
		return
	}
	r.buf[r.start] = ev
	r.start = (r.start + 1) % len(r.buf)
}

func (r *history) at(i int) Event {
	return r.buf[(r.start+i)%len(r.buf)]
}

type subscriber struct {
	ch    chan Event
	types []string
}

func (s subscriber) wants(t string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Hub fans engine events out to subscribers and keeps the latest ones for
// clients that connect late. A nil *Hub drops everything, so the engine can
// run without one.
type Hub struct {
	mu      sync.Mutex
	lastID  int64
	recent  history
	subs    map[int]subscriber
	nextSub int
	dropped uint64

	subBuffer int
	now       func() time.Time
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		recent:    history{buf: make([]Event, capacity)},
		subs:      make(map[int]subscriber),
		subBuffer: 128,
		now:       time.Now,
	}
}

// Publish stores the event and fans it out. Data is JSON-encoded; values
// that fail to encode are published as an empty object. Subscribers that
// are not keeping up miss the event instead of stalling the tick.
func (h *Hub) Publish(eventType string, data any) Event {
	if h == nil {
		return Event{Type: eventType}
	}
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastID++
	ev := Event{ID: h.lastID, Type: eventType, At: h.now().UTC(), Data: payload}
	h.recent.push(ev)
	for _, s := range h.subs {
		if !s.wants(eventType) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped++
		}
	}
	return ev
}

// Subscribe registers a listener for the given event types, or for all of
// them when none are given. The returned func unsubscribes and closes the
// channel; it is safe to call twice.
func (h *Hub) Subscribe(types ...string) (<-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	s := subscriber{ch: make(chan Event, h.subBuffer), types: slices.Clone(types)}
	h.subs[id] = s

	return s.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts deliveries skipped because a subscriber buffer was full.
func (h *Hub) Dropped() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// SnapshotSince returns buffered events with ID > lastID, oldest first,
// limited to types when any are given.
func (h *Hub) SnapshotSince(lastID int64, types ...string) []Event {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	filter := subscriber{types: types}
	out := make([]Event, 0, h.recent.n)
	for i := 0; i < h.recent.n; i++ {
		ev := h.recent.at(i)
		if ev.ID > lastID && filter.wants(ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

// Latest returns the newest buffered event of the given type.
func (h *Hub) Latest(eventType string) (Event, bool) {
	if h == nil {
		return Event{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := h.recent.n - 1; i >= 0; i-- {
		if ev := h.recent.at(i); ev.Type == eventType {
			return ev, true
		}
	}
	return Event{}, false
}
