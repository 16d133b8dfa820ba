// Package graph is the public composition surface over the reactive value
// graph: building blocks to construct source, mapped, subscripted, and
// reduced cells, the derivative cells (latch/default/ready-probe/interval/
// subscription), and the promise/async bridge, without requiring callers to
// reach into internal/domain/cellcore or internal/domain/reactive directly.
package graph

import (
	"log/slog"
	"time"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
	"github.com/webitel/valuegraph/internal/domain/reactive"
)

// Cell is the public handle to a graph node.
type Cell = cellcore.Cell

// Option configures a Cell at construction time.
type Option = cellcore.Option

// Token is an opaque registration handle returned by Tie/Notify.
type Token = cellcore.Token

// CacheIdentity ties a cell to the shared cache; see cellcore.CacheIdentity.
type CacheIdentity = cellcore.CacheIdentity

// Future is the one-shot asynchronous value type used by Promise/All/MapAll
// and by any Map callback that returns one.
type Future = reactive.Future

// WithCacheIdentity, WithName, WithMayBeNull, WithIsDone, WithLogger are
// re-exported verbatim from cellcore for callers that never otherwise import
// it.
var (
	WithCacheIdentity = cellcore.WithCacheIdentity
	WithName          = cellcore.WithName
	WithMayBeNull     = cellcore.WithMayBeNull
	WithIsDone        = cellcore.WithIsDone
	WithLogger        = cellcore.WithLogger
)

// DefaultDepth is the resolution depth used by Map/MapEach/Sub/Reduce when
// callers don't need a tighter bound.
const DefaultDepth = reactive.DefaultResolutionDepth

// New constructs a source cell with no computed relationship to any input;
// callers drive it directly via Trigger/Changed.
func New(opts ...Option) *Cell {
	return cellcore.New(opts...)
}

// NewFuture returns a pending Future a caller can Resolve/Reject.
func NewFuture() *Future {
	return reactive.NewFuture()
}

// Map derives a cell from one or more inputs (each a *Cell, a *Future, or a
// slice/map possibly containing either, resolved up to depth), re-running fn
// whenever any of them changes. fn's return value commits directly as the
// new value — use MapEach if fn may itself return a cell/future/future-
// bearing structure that should be adopted rather than stored literally.
func Map(depth int, fn func(args []any) any, inputs ...any) *Cell {
	rc := reactive.NewReactive(inputs, nil, depth, fn)
	return rc.Cell
}

// MapEach behaves like Map, but applies the transform output-handling
// policy to fn's result: a reactive.Undefined{} resets the cell (with a
// warning), a *Future is awaited, and any other cell/future-bearing result
// is adopted through a transient inner reactive cell rather than stored
// literally.
func MapEach(depth int, fn func(args []any) any, inputs ...any) *Cell {
	tc := reactive.NewTransform(inputs, nil, depth, fn, depth, false)
	return tc.Cell
}

// Undefined is the sentinel a MapEach/Sub-style callback returns to request
// "reset, and warn" instead of committing a value.
type Undefined = reactive.Undefined

// Sub derives a cell that mirrors parent[key] — a static map-key or
// slice-index lookup — resetting (with a warning) when the key is absent.
func Sub(parent *Cell, key any, opts ...Option) *Cell {
	return reactive.Sub(parent, key, opts...)
}

// SubCell behaves like Sub, but the key is itself the value of a cell,
// re-indexing whenever either parent or keyCell changes.
func SubCell(parent, keyCell *Cell, opts ...Option) *Cell {
	return reactive.SubCell(parent, keyCell, opts...)
}

// Latch wraps input: before it is first ready, presents an optional
// default; once ready, adopts that value permanently and detaches.
func Latch(input *Cell, defaultValue any, hasDefault bool, opts ...Option) *Cell {
	return reactive.NewLatch(input, hasDefault, defaultValue, opts...)
}

// Default always reports ready: it mirrors input while input is ready, and
// falls back to defaultValue otherwise.
func Default(input *Cell, defaultValue any, opts ...Option) *Cell {
	return reactive.NewDefaultCell(input, defaultValue, opts...)
}

// ReadyProbe always reports ready: its value is the boolean readiness of
// input.
func ReadyProbe(input *Cell, opts ...Option) *Cell {
	return reactive.NewReadyProbe(input, opts...)
}

// IsReady reports whether cell currently holds a definite value.
func IsReady(cell *Cell) bool { return cell.IsReady() }

// IsNotReady is the complement of IsReady.
func IsNotReady(cell *Cell) bool { return !cell.IsReady() }

// Log subscribes a debug-level change logger to cell, returning the token so
// the caller can Untie it like any other subscription.
func Log(cell *Cell, logger *slog.Logger, label string) Token {
	return cell.Tie(func(v any) {
		logger.Debug("cell changed", slog.String("cell", label), slog.Any("value", v))
	})
}

// Reduce starts ready with init, then folds every subsequent value of input
// into the running accumulator via fn and commits the result.
func Reduce(input *Cell, init any, fn func(acc, v any) any, opts ...Option) *Cell {
	return reactive.NewReduce(input, init, fn, opts...)
}

// Clock abstracts wall-clock ticking for Interval, re-exported so callers
// can supply a fake in tests without importing internal/domain/reactive.
type Clock = reactive.Clock

// RealClock is the production Clock.
var RealClock = reactive.RealClock

// Interval returns a producer cell that, while in use, emits the current
// instant at period cadence.
func Interval(clock Clock, period time.Duration, opts ...Option) *Cell {
	return reactive.NewInterval(clock, period, opts...)
}

// SubscriptionClient is the RPC client a Subscription cell drives.
type SubscriptionClient = reactive.SubscriptionClient

// Subscription returns a producer cell that relays values pushed by client,
// reconnecting with exponential backoff on drop.
func Subscription(client SubscriptionClient, logger *slog.Logger, opts ...Option) *Cell {
	return reactive.NewSubscription(client, logger, opts...)
}

// Promise resolves a slice of items (each a *Cell, a *Future, or a plain
// value) concurrently into a single Future of their resolved values, or
// rejects with the aggregate of every item's error.
func Promise(items []any) *Future {
	return reactive.Promise(items)
}

// All is the variadic form of Promise.
func All(items ...any) *Future {
	return reactive.All(items...)
}

// MapAll resolves a map of named items concurrently into a single Future of
// a map keyed the same way.
func MapAll(items map[string]any) *Future {
	return reactive.MapAll(items)
}
