package realtime

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/canteen-app/utils"
)

const subscriberBuffer = 32

type subscriber struct {
	filter Filter
	ch     chan ChangeEvent
	// gaps is signalled when an event was dropped; nil for plain subscribers.
	gaps chan struct{}
}

// Hub holds the subscribers of the change feed.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Publish delivers e to every matching subscriber. A subscriber whose
// buffer is full misses the event; gap-aware subscribers are told so.
func (h *Hub) Publish(e ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, sub := range h.subs {
		if !sub.filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			if sub.gaps != nil {
				select {
				case sub.gaps <- struct{}{}:
				default:
				}
			}
			utils.InfoLogger.Warnf("realtime: subscriber %d is slow, dropped %s %s #%d", id, e.Table, e.Type, e.RecordID)
		}
	}
}

// Subscribe returns a channel of matching events and a cancel func.
// Calling cancel more than once is safe.
func (h *Hub) Subscribe(f Filter) (<-chan ChangeEvent, func()) {
	return h.subscribe(&subscriber{filter: f, ch: make(chan ChangeEvent, subscriberBuffer)})
}

// SubscribeWithGaps is Subscribe plus a channel that receives a value
// whenever at least one matching event was dropped since the last receive.
// The gap channel is never closed.
func (h *Hub) SubscribeWithGaps(f Filter) (<-chan ChangeEvent, <-chan struct{}, func()) {
	sub := &subscriber{filter: f, ch: make(chan ChangeEvent, subscriberBuffer), gaps: make(chan struct{}, 1)}
	events, cancel := h.subscribe(sub)
	return events, sub.gaps, cancel
}

func (h *Hub) subscribe(sub *subscriber) (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = sub
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams events matching f as JSON
// until the client goes away.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request, f Filter) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("realtime: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(f)
	defer cancel()

	utils.InfoLogger.Infof("realtime: client %s subscribed to table=%q types=%v", r.RemoteAddr, f.Table, f.Types)

	// Reader goroutine detects client close; incoming messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				utils.ErrorLogger.Errorf("realtime: write to %s failed: %v", r.RemoteAddr, err)
				return
			}
		}
	}
}
