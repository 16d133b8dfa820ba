package cmd

import (
	"errors"
	"sync"

	"github.com/webitel/valuegraph/internal/graph"
)

// ErrUnknownCell is returned by CellRegistry.Resolve for an unregistered
// uuid.
var ErrUnknownCell = errors.New("unknown cell uuid")

// CellRegistry is the demo application's uuid -> cell lookup: the Resolver
// handed to the ws/lp handlers and, seeded with every demo source, the list
// rendered by the inspector dashboard.
type CellRegistry struct {
	mu    sync.RWMutex
	cells map[string]*graph.Cell
}

// NewCellRegistry returns an empty registry.
func NewCellRegistry() *CellRegistry {
	return &CellRegistry{cells: make(map[string]*graph.Cell)}
}

// Register adds or replaces the cell addressed by uuid.
func (r *CellRegistry) Register(uuid string, cell *graph.Cell) {
	r.mu.Lock()
	r.cells[uuid] = cell
	r.mu.Unlock()
}

// Resolve implements ws.Resolver and lp.Resolver.
func (r *CellRegistry) Resolve(uuid string) (*graph.Cell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cell, ok := r.cells[uuid]
	if !ok {
		return nil, ErrUnknownCell
	}
	return cell, nil
}

// Sources returns every registered cell as an inspector dashboard source.
func (r *CellRegistry) Sources() []InspectSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]InspectSource, 0, len(r.cells))
	for uuid, cell := range r.cells {
		out = append(out, InspectSource{Name: uuid, Cell: cell})
	}
	return out
}
