// Package ws exposes a cell's change-subscriber stream over a WebSocket: one
// connection mirrors one cell, emitting a JSON frame on every value change.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/webitel/valuegraph/internal/graph"
)

// Resolver looks up the graph cell addressed by a path-supplied uuid.
type Resolver func(uuid string) (*graph.Cell, error)

// Handler upgrades a request matching /cells/{uuid} and pumps that cell's
// changes to the client until it disconnects.
type Handler struct {
	logger   *slog.Logger
	resolve  Resolver
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler resolving uuids via resolve.
func NewHandler(logger *slog.Logger, resolve Resolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		resolve: resolve,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // adjust for production
		},
	}
}

type frame struct {
	UUID  string `json:"uuid"`
	Value any    `json:"value,omitempty"`
	Ready bool   `json:"ready"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	cell, err := h.resolve(uuid)
	if err != nil {
		http.Error(w, "unknown uuid", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	frames := make(chan frame, 16)
	token := cell.Tie(func(v any) {
		select {
		case frames <- frame{UUID: uuid, Value: v, Ready: true}:
		default:
			h.logger.Warn("ws client falling behind, dropping frame", slog.String("uuid", uuid))
		}
	})
	defer cell.Untie(token)

	h.logger.Info("ws opened", slog.String("uuid", uuid))

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			data, err := json.Marshal(f)
			if err != nil {
				h.logger.Error("failed to marshal ws frame", slog.Any("err", err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("ws send failed", slog.Any("err", err))
				return
			}
		}
	}
}
