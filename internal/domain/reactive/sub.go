package reactive

import "github.com/webitel/valuegraph/internal/domain/cellcore"

// Sub builds a transform cell computing parent.value[key] for a fixed,
// static key. This replaces a dynamic subscript proxy (not idiomatic in a
// statically typed target) with an explicit accessor that a caller composes
// directly, the same way a field access would be written by hand.
func Sub(parent *cellcore.Cell, key any, opts ...cellcore.Option) *cellcore.Cell {
	tc := NewTransform([]any{parent}, nil, DefaultResolutionDepth, func(args []any) any {
		return index(args[0], key)
	}, DefaultResolutionDepth, false, opts...)
	return tc.Cell
}

// SubCell builds a two-input transform computing parent.value[keyCell.value],
// re-evaluating whenever either the parent or the key cell changes. This is
// the static equivalent of the cell-as-key protocol: instead of converting a
// cell to an opaque string token for later reverse lookup, the key cell is
// passed as an ordinary second input.
func SubCell(parent, keyCell *cellcore.Cell, opts ...cellcore.Option) *cellcore.Cell {
	tc := NewTransform([]any{parent, keyCell}, nil, DefaultResolutionDepth, func(args []any) any {
		return index(args[0], args[1])
	}, DefaultResolutionDepth, false, opts...)
	return tc.Cell
}

// index looks key up in v, supporting the container shapes produced by
// resolved cell structures: map[string]any keyed by string, and []any keyed
// by an integer. Any other combination yields Undefined{} rather than panicking, so a
// transform callback built on Sub degrades to "reset, and warn" instead of
// crashing the graph.
func index(v any, key any) any {
	switch container := v.(type) {
	case map[string]any:
		k, ok := key.(string)
		if !ok {
			return Undefined{}
		}
		val, ok := container[k]
		if !ok {
			return Undefined{}
		}
		return val
	case []any:
		idx, ok := toInt(key)
		if !ok || idx < 0 || idx >= len(container) {
			return Undefined{}
		}
		return container[idx]
	default:
		return Undefined{}
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
