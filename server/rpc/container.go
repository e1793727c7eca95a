package rpc

import (
	"net/rpc"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
	middlewares "github.com/marcopiovanello/m3u8-dl/server/middleware"
)

// Dependency injection container.
func Container(orch *orchestrator.Orchestrator) *Service {
	return &Service{
		orch: orch,
	}
}

// ApplyRouter registers the service on its own rpc server, so more than one
// router can live in a process.
func ApplyRouter(cfg *config.Config, service *Service) (func(chi.Router), error) {
	srv := rpc.NewServer()
	if err := srv.Register(service); err != nil {
		return nil, err
	}

	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig(cfg))
		r.Get("/ws", WebSocket(srv))
		r.Post("/http", Post(srv))
	}, nil
}
