package reactive

import (
	"log/slog"
	"sync"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// Undefined is the sentinel a transform callback returns to request "reset,
// and warn" instead of a value.
type Undefined struct{}

// TransformCell maps N input cells/futures/structures through a function,
// applying an output-handling policy to the result: undefined resets, a
// future is awaited, a structure containing cells/futures gets resolved via
// a transient inner reactive cell, anything else commits directly.
type TransformCell struct {
	*ReactiveCell

	outputDepth int
	latched     bool

	innerMu    sync.Mutex
	inner      *ReactiveCell
	innerToken cellcore.Token
}

// NewTransform constructs a transform cell. inputDepth bounds resolution of
// the input structures (as for ReactiveCell); outputDepth bounds resolution
// of a structured return value.
func NewTransform(
	inputs []any,
	deps []*cellcore.Cell,
	inputDepth int,
	fn func(args []any) any,
	outputDepth int,
	latched bool,
	opts ...cellcore.Option,
) *TransformCell {
	rc := newReactiveCore(inputs, deps, inputDepth, fn, nil)
	tc := &TransformCell{ReactiveCell: rc, outputDepth: outputDepth, latched: latched}
	rc.commit = tc.handleOutput

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(rc.registerAll, func() {
		rc.unregisterAll()
		tc.releaseInner()
	}))
	rc.Cell = cellcore.New(allOpts...)
	return tc
}

func (tc *TransformCell) handleOutput(result any) {
	switch v := result.(type) {
	case Undefined:
		tc.ReactiveCell.logger.Warn("transform returned undefined, resetting", slog.Uint64("cell_id", tc.Cell.ID()))
		tc.releaseInner()
		tc.Cell.Reset()

	case *Future:
		tc.releaseInner()
		if !tc.latched {
			tc.Cell.Reset()
		}
		gen := tc.generation
		v.Then(func(val any, err error) {
			if gen != tc.generation {
				return
			}
			if err != nil {
				tc.ReactiveCell.logger.Warn("transform output future rejected", slog.Any("err", err))
				return
			}
			tc.Cell.Changed(val)
		})

	default:
		if containsCellOrFuture(v, tc.outputDepth) {
			if !tc.latched {
				tc.Cell.Reset()
			}
			tc.adoptInner(v)
		} else {
			tc.releaseInner()
			tc.Cell.Changed(v)
		}
	}
}

// adoptInner builds a transient reactive cell over the returned structure
// whose own callback commits the fully-resolved structure into the outer
// cell, and takes ownership of it via Tie.
func (tc *TransformCell) adoptInner(structured any) {
	inner := NewReactive([]any{structured}, nil, tc.outputDepth, func(args []any) any {
		return args[0]
	})

	tc.innerMu.Lock()
	prevInner, prevToken := tc.inner, tc.innerToken
	tc.inner = inner
	tc.innerToken = inner.Tie(func(val any) { tc.Cell.Changed(val) })
	tc.innerMu.Unlock()

	if prevInner != nil {
		prevInner.Untie(prevToken)
	}
}

func (tc *TransformCell) releaseInner() {
	tc.innerMu.Lock()
	prevInner, prevToken := tc.inner, tc.innerToken
	tc.inner = nil
	tc.innerMu.Unlock()

	if prevInner != nil {
		prevInner.Untie(prevToken)
	}
}

// Latched reports whether this cell retains its last ready value while a new
// computation is in flight.
func (tc *TransformCell) Latched() bool { return tc.latched }
