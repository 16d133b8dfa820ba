// Package reactive implements the dependency-tracked cells built on top of
// cellcore: ReactiveCell, TransformCell, the small derivative specializations,
// the Sub accessor, and the Promise bridge.
package reactive

import (
	"log/slog"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// ReactiveCell re-executes a callback whenever any input cell/future changes,
// or any pure dependency's readiness flips.
type ReactiveCell struct {
	*cellcore.Cell

	inputs []any
	deps   []*cellcore.Cell
	depth  int

	callback func(args []any) any
	commit   func(any)

	logger *slog.Logger

	generation uint64
	regs       []registration
}

type registration struct {
	cell  *cellcore.Cell
	token cellcore.Token
}

func newReactiveCore(inputs []any, deps []*cellcore.Cell, depth int, callback func([]any) any, logger *slog.Logger) *ReactiveCell {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReactiveCell{
		inputs:   inputs,
		deps:     deps,
		depth:    depth,
		callback: callback,
		logger:   logger,
	}
}

// NewReactive constructs a plain reactive cell: the callback's return value
// becomes the cell's new value directly via Changed. Transform
// Cell (transform.go) builds on the same core with a different commit policy.
func NewReactive(inputs []any, deps []*cellcore.Cell, depth int, callback func([]any) any, opts ...cellcore.Option) *ReactiveCell {
	rc := newReactiveCore(inputs, deps, depth, callback, nil)
	rc.commit = func(v any) { rc.Cell.Changed(v) }

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(rc.registerAll, rc.unregisterAll))
	rc.Cell = cellcore.New(allOpts...)
	return rc
}

// registerAll is the ReactiveCell's "initialise" hook:
// register readiness-notifiers on dependencies and every input cell, attach
// completion handlers to every input future, then run the trampoline once
// immediately.
func (rc *ReactiveCell) registerAll() {
	rc.generation++
	gen := rc.generation
	rc.regs = rc.regs[:0]

	for _, dep := range rc.deps {
		token := dep.Notify(func() { rc.onGenerationEvent(gen) })
		rc.regs = append(rc.regs, registration{cell: dep, token: token})
	}

	for _, input := range rc.inputs {
		collectCellsAndFutures(input, rc.depth,
			func(c *cellcore.Cell) {
				token := c.Notify(func() { rc.onGenerationEvent(gen) })
				rc.regs = append(rc.regs, registration{cell: c, token: token})
			},
			func(fut *Future) {
				fut.Then(func(any, error) { rc.onGenerationEvent(gen) })
			},
		)
	}

	// Whether or not anything was found to observe, run the trampoline once:
	// with no active inputs this is the only recomputation the cell will ever
	// get; with inputs it establishes the initial value.
	rc.recompute()
}

// onGenerationEvent ignores events from a stale (already-finalised)
// registration epoch, guarding against futures that resolve after the cell
// was finalised and re-initialised.
func (rc *ReactiveCell) onGenerationEvent(gen uint64) {
	if gen != rc.generation {
		return
	}
	rc.recompute()
}

// unregisterAll is the ReactiveCell's "finalise" hook: unregister every
// readiness-notifier in reverse of registration order.
func (rc *ReactiveCell) unregisterAll() {
	rc.generation++ // invalidate any in-flight future callbacks
	for i := len(rc.regs) - 1; i >= 0; i-- {
		reg := rc.regs[i]
		reg.cell.Unnotify(reg.token)
	}
	rc.regs = rc.regs[:0]
}

// recompute is the trampoline: if every input is ready, resolve arguments and
// invoke the callback; otherwise reset.
func (rc *ReactiveCell) recompute() {
	ready := true
	for _, input := range rc.inputs {
		if !isReadyStructure(input, rc.depth) {
			ready = false
			break
		}
	}
	if !ready {
		rc.Cell.Reset()
		return
	}

	args := make([]any, len(rc.inputs))
	for i, input := range rc.inputs {
		args[i] = resolveStructure(input, rc.depth)
	}

	result, ok := rc.invokeCallback(args)
	if !ok {
		return
	}
	rc.commit(result)
}

// invokeCallback isolates the user callback from the trampoline: a panic is
// logged and treated as "no recomputation this round" rather than corrupting
// cell invariants.
func (rc *ReactiveCell) invokeCallback(args []any) (result any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rc.logger.Error("reactive callback panicked", slog.Any("recover", r))
			ok = false
		}
	}()
	return rc.callback(args), true
}
