package reactive

import "github.com/webitel/valuegraph/internal/domain/cellcore"

// DefaultResolutionDepth is used when a caller does not need a tighter bound
// on how deep into input/output structures cells and futures are resolved.
const DefaultResolutionDepth = 8

// isReadyStructure reports whether every cell/future within depth levels of
// v is ready/completed. Containers beyond depth are opaque values and count
// as ready regardless of contents.
func isReadyStructure(v any, depth int) bool {
	switch x := v.(type) {
	case *cellcore.Cell:
		return x.IsReady()
	case *Future:
		return x.Done()
	case []any:
		if depth <= 0 {
			return true
		}
		for _, e := range x {
			if !isReadyStructure(e, depth-1) {
				return false
			}
		}
		return true
	case map[string]any:
		if depth <= 0 {
			return true
		}
		for _, e := range x {
			if !isReadyStructure(e, depth-1) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// resolveStructure deep-copies the spine of v (slices/maps), substituting any
// cell/future within depth levels by its resolved value; leaves are aliased,
// never copied.
func resolveStructure(v any, depth int) any {
	switch x := v.(type) {
	case *cellcore.Cell:
		val, _ := x.Value()
		return val
	case *Future:
		val, _ := x.Result()
		return val
	case []any:
		if depth <= 0 {
			return v
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = resolveStructure(e, depth-1)
		}
		return out
	case map[string]any:
		if depth <= 0 {
			return v
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = resolveStructure(e, depth-1)
		}
		return out
	default:
		return v
	}
}

// collectCellsAndFutures traverses v up to depth levels, invoking onCell/
// onFuture for every contained cell/future it finds.
func collectCellsAndFutures(v any, depth int, onCell func(*cellcore.Cell), onFuture func(*Future)) {
	switch x := v.(type) {
	case *cellcore.Cell:
		onCell(x)
	case *Future:
		onFuture(x)
	case []any:
		if depth <= 0 {
			return
		}
		for _, e := range x {
			collectCellsAndFutures(e, depth-1, onCell, onFuture)
		}
	case map[string]any:
		if depth <= 0 {
			return
		}
		for _, e := range x {
			collectCellsAndFutures(e, depth-1, onCell, onFuture)
		}
	}
}

// containsCellOrFuture reports whether v holds a cell or future within depth
// levels, used by TransformCell to decide whether a callback's return value
// needs the transient-inner-cell treatment.
func containsCellOrFuture(v any, depth int) bool {
	found := false
	collectCellsAndFutures(v, depth, func(*cellcore.Cell) { found = true }, func(*Future) { found = true })
	return found
}
