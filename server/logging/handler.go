package logging

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 12,
}

func ApplyRouter(j *Journal) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", entries(j))
		r.Get("/ws", stream(j))
	}
}

func entries(j *Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(j.Entries()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func stream(j *Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade log stream", slog.Any("err", err))
			return
		}
		defer conn.Close()

		ch, unsubscribe := j.Subscribe()
		defer unsubscribe()

		// the client never talks back; a read error means it left
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
			case e, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(e); err != nil {
					return
				}
			}
		}
	}
}
