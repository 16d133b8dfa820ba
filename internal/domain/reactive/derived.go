package reactive

import "github.com/webitel/valuegraph/internal/domain/cellcore"

// NewLatch wraps a single input cell: before the input is ready, presents an
// optional default; once the input first becomes ready, adopts that value
// and detaches from the input permanently.
func NewLatch(input *cellcore.Cell, hasDefault bool, defaultValue any, opts ...cellcore.Option) *cellcore.Cell {
	var token cellcore.Token
	var cell *cellcore.Cell
	var fired bool

	onUse := func() {
		fired = false
		token = input.Tie(func(v any) {
			fired = true
			cell.Changed(v)
			input.Untie(token)
		})
	}
	onDrop := func() {
		// once latched the input has already been untied; only tear down
		// the subscription if the input never fired. cell.IsReady() can't
		// tell the two cases apart when hasDefault is set (DefaultTo below
		// makes the cell ready immediately), so track firing separately.
		if fired {
			return
		}
		input.Untie(token)
	}

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	if hasDefault {
		cell.DefaultTo(defaultValue)
	}
	return cell
}

// NewDefaultCell always reports ready: it mirrors the input while the input
// is ready, and falls back to defaultValue otherwise.
func NewDefaultCell(input *cellcore.Cell, defaultValue any, opts ...cellcore.Option) *cellcore.Cell {
	var changeToken cellcore.Token
	var notifyToken cellcore.Token
	var cell *cellcore.Cell

	onUse := func() {
		changeToken = input.Tie(func(v any) { cell.Changed(v) })
		// Reset() only fires readiness-notifiers, never change-subscribers,
		// so falling back to defaultValue on a ready->not-ready transition
		// needs its own Notify subscription rather than relying on Tie.
		notifyToken = input.Notify(func() {
			if !input.IsReady() {
				cell.Changed(defaultValue)
			}
		})
		if !input.IsReady() {
			cell.Changed(defaultValue)
		}
	}
	onDrop := func() {
		input.Untie(changeToken)
		input.Unnotify(notifyToken)
	}

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	return cell
}

// NewReduce wraps input: starts ready with init, then on every change to
// input folds the new value into the running accumulator via fn and commits
// the result. Detaches and forgets the accumulator on finalise, restarting
// from init on the next use.
func NewReduce(input *cellcore.Cell, init any, fn func(acc, v any) any, opts ...cellcore.Option) *cellcore.Cell {
	var token cellcore.Token
	var cell *cellcore.Cell
	var acc any

	onUse := func() {
		acc = init
		cell.Changed(acc)
		token = input.Tie(func(v any) {
			acc = fn(acc, v)
			cell.Changed(acc)
		})
	}
	onDrop := func() { input.Untie(token) }

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	return cell
}

// NewReadyProbe always reports ready: its value is the boolean readiness of
// the input cell.
func NewReadyProbe(input *cellcore.Cell, opts ...cellcore.Option) *cellcore.Cell {
	var notifyToken cellcore.Token
	var cell *cellcore.Cell

	onUse := func() {
		notifyToken = input.Notify(func() { cell.Changed(input.IsReady()) })
		cell.Changed(input.IsReady())
	}
	onDrop := func() { input.Unnotify(notifyToken) }

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	return cell
}
