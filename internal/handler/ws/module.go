package ws

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Module provides the WebSocket handler and mounts its route on the shared
// router.
var Module = fx.Module("handler-ws",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes mounts the cell-mirror WebSocket under /ws/cells/{uuid}.
func RegisterRoutes(router *chi.Mux, h *Handler) {
	router.Get("/ws/cells/{uuid}", h.ServeHTTP)
}
