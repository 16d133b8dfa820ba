package lp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Module provides the long-poll handler and mounts its route on the shared
// router.
var Module = fx.Module("handler-lp",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes mounts the long-poll endpoint under /cells/{uuid}.
func RegisterRoutes(router *chi.Mux, h *Handler) {
	router.Get("/cells/{uuid}", h.Poll)
}
