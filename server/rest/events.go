package rest

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 14,
}

// Hub fans task events out to websocket clients. It is subscribed to the
// notification channel exactly once; clients attach and detach from the hub.
type Hub struct {
	mu      sync.Mutex
	clients map[chan internal.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan internal.Event]struct{}),
	}
}

// Broadcast never blocks: a client that fell behind misses progress events.
func (h *Hub) Broadcast(e internal.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			slog.Warn("dropping event for slow client", slog.String("id", e.Task.Id))
		}
	}
}

func (h *Hub) attach() chan internal.Event {
	ch := make(chan internal.Event, 64)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *Hub) detach(ch chan internal.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade events connection", slog.Any("err", err))
		return
	}
	defer conn.Close()

	ch := h.attach()
	defer h.detach(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e := <-ch:
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
