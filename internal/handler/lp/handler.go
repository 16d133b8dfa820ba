// Package lp implements a long-polling endpoint serving a cell's latest
// value: it returns immediately if the cell is already ready, otherwise
// holds the connection until the next change or a timeout elapses.
package lp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webitel/valuegraph/internal/graph"
)

// Resolver looks up the graph cell addressed by a path-supplied uuid.
type Resolver func(uuid string) (*graph.Cell, error)

// Handler serves GET /cells/{uuid}.
type Handler struct {
	resolve Resolver
	timeout time.Duration
}

// NewHandler constructs a Handler resolving uuids via resolve, holding
// unready polls open for up to 30 seconds.
func NewHandler(resolve Resolver) *Handler {
	return &Handler{resolve: resolve, timeout: 30 * time.Second}
}

type response struct {
	UUID  string `json:"uuid"`
	Value any    `json:"value,omitempty"`
	Ready bool   `json:"ready"`
}

// Poll handles the long-polling request.
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	cell, err := h.resolve(uuid)
	if err != nil {
		http.Error(w, "unknown uuid", http.StatusNotFound)
		return
	}

	if v, ready := cell.Value(); ready {
		writeJSON(w, response{UUID: uuid, Value: v, Ready: true})
		return
	}

	changes := make(chan any, 1)
	token := cell.Tie(func(v any) {
		select {
		case changes <- v:
		default:
		}
	})
	defer cell.Untie(token)

	select {
	case <-r.Context().Done():
		return
	case <-time.After(h.timeout):
		// standard long-polling timeout to avoid hanging connections.
		w.WriteHeader(http.StatusNoContent)
	case v := <-changes:
		writeJSON(w, response{UUID: uuid, Value: v, Ready: true})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
