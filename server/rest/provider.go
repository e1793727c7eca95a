package rest

import (
	"github.com/go-chi/chi/v5"
	middlewares "github.com/marcopiovanello/m3u8-dl/server/middleware"
)

func ProvideService(args *ContainerArgs) *Service {
	return NewService(args.Config, args.Orch, args.Archive)
}

func ProvideHandler(svc *Service, hub *Hub) *Handler {
	return &Handler{service: svc, hub: hub}
}

// Container wires the REST service and subscribes its event hub to the
// orchestrator.
func Container(args *ContainerArgs) (*Handler, error) {
	hub := NewHub()
	if err := args.Orch.Subscribe(hub.Broadcast); err != nil {
		return nil, err
	}
	return ProvideHandler(ProvideService(args), hub), nil
}

func ApplyRouter(args *ContainerArgs) (func(chi.Router), error) {
	h, err := Container(args)
	if err != nil {
		return nil, err
	}

	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig(args.Config))

		r.Post("/tasks", h.Exec())
		r.Get("/tasks", h.Running())
		r.Get("/tasks/{id}", h.Get())
		r.Post("/tasks/{id}/cancel", h.Cancel())
		r.Delete("/tasks/{id}", h.Delete())
		r.Get("/events", h.Events())
		r.Get("/history", h.History())
		r.Get("/settings", h.GetSettings())
		r.Put("/settings", h.UpdateSettings())
		r.Get("/version", h.GetVersion())
	}, nil
}
