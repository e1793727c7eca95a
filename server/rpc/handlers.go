package rpc

import (
	"io"
	"log/slog"
	"net/http"
	"net/rpc"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 14,
}

// WebSocket serves one JSON-RPC request per message.
func WebSocket(srv *rpc.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade rpc connection", slog.Any("err", err))
			return
		}
		defer c.Close()

		for {
			mtype, reader, err := c.NextReader()
			if err != nil {
				return
			}

			res, err := newRequest(reader).Call(srv)
			if err != nil {
				slog.Warn("malformed rpc request", slog.Any("err", err))
				continue
			}

			writer, err := c.NextWriter(mtype)
			if err != nil {
				return
			}
			io.Copy(writer, res)
			writer.Close()
		}
	}
}

// Post serves a single JSON-RPC request carried by the request body.
func Post(srv *rpc.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		res, err := newRequest(r.Body).Call(srv)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := io.Copy(w, res); err != nil {
			slog.Error("failed to write rpc response", slog.Any("err", err))
		}
	}
}
