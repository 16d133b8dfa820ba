// Package cellcore implements the base Cell primitive of the reactive value
// graph: a single observable value slot with readiness, ref-counted
// activation, and ordered observer dispatch.
package cellcore

import (
	"log/slog"
	"sync"
)

// undefined is the internal "no value yet" sentinel. It is never exposed
// across the public API; callers see not-ready via IsReady()/Value(), never
// this marker.
type undefined struct{}

func isUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// SharedCache is the subset of the shared-cache protocol (internal/domain/cache)
// a Cell needs to delegate to when it carries a CacheIdentity. Kept as an
// interface here so cellcore never imports the cache package.
type SharedCache interface {
	Initialise(uuid string, cell *Cell, ci CacheIdentity)
	Finalise(uuid string, cell *Cell)
	Changed(uuid string, v any)
}

// CacheIdentity configures a Cell's participation in the shared cache,
// specifying its cache key and serialization for cross-instance storage.
type CacheIdentity struct {
	UUID        string
	Serialize   func(any) (string, error)
	Deserialize func(string) (any, error)
	Cache       SharedCache
}

type changeEntry struct {
	token Token
	fn    func(any)
}

type readyEntry struct {
	token Token
	fn    func()
}

type thenEntry struct {
	token Token
	fn    func(any)
}

// Cell is the base reactive value slot. Subclasses (ReactiveCell, TransformCell,
// the derivative cells) embed a *Cell and supply their own activation hooks via
// WithLifecycle: a thin concrete type wrapping a shared actor/lifecycle
// primitive.
type Cell struct {
	mu sync.Mutex

	id   uint64
	name string

	ready     bool
	value     any
	mayBeNull bool

	userCount int

	changeSubs []changeEntry
	readySubs  []readyEntry
	thens      []thenEntry

	defaultValue      any
	defaultConfigured bool

	cacheIdentity *CacheIdentity

	triggering bool

	onUse  func()
	onDrop func()

	isDoneFn func(any) bool

	logger *slog.Logger
}

// Option configures a Cell at construction time.
type Option func(*Cell)

// WithMayBeNull controls whether a proposed nil value is a legal ready value
// (true) or equivalent to not-ready/reset (false, the default), resolved
// explicitly per constructor rather than inferred from the value itself.
func WithMayBeNull(v bool) Option {
	return func(c *Cell) { c.mayBeNull = v }
}

// WithLifecycle supplies the subclass initialise/finalise hooks invoked on the
// 0→1 / 1→0 user-count transitions, when no shared cache is delegating them.
func WithLifecycle(onUse, onDrop func()) Option {
	return func(c *Cell) {
		c.onUse = onUse
		c.onDrop = onDrop
	}
}

// WithCacheIdentity ties the cell to a UUID in the shared cache.
func WithCacheIdentity(ci CacheIdentity) Option {
	return func(c *Cell) { c.cacheIdentity = &ci }
}

// WithIsDone supplies the predicate required by Done(); without it Done()
// panics with ErrDoneUnsupported.
func WithIsDone(fn func(any) bool) Option {
	return func(c *Cell) { c.isDoneFn = fn }
}

// WithName attaches a debugging label.
func WithName(name string) Option {
	return func(c *Cell) { c.name = name }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cell) { c.logger = l }
}

var cellSeq uint64

func nextCellID() uint64 {
	cellSeq++
	return cellSeq
}

// New constructs a not-ready Cell.
func New(opts ...Option) *Cell {
	c := &Cell{
		id:     nextCellID(),
		value:  undefined{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the debugging-only identifier.
func (c *Cell) ID() uint64 { return c.id }

// Name returns the debug label, if any.
func (c *Cell) Name() string { return c.name }

// UserCount returns the number of active interest-holders.
func (c *Cell) UserCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userCount
}

// IsReady reports whether the cell currently holds a definite value.
func (c *Cell) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Value returns the current value and whether it is ready.
func (c *Cell) Value() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil, false
	}
	return c.value, true
}

// IsDone reports whether v satisfies the configured done predicate. Defaults
// to false when none is configured.
func (c *Cell) IsDone(v any) bool {
	if c.isDoneFn == nil {
		return false
	}
	return c.isDoneFn(v)
}

// Use increments the user-count. On 0→1 it either delegates initialisation to
// the shared cache (if a CacheIdentity is configured) or invokes the
// subclass's onUse hook.
func (c *Cell) Use() {
	c.mu.Lock()
	c.userCount++
	first := c.userCount == 1
	ci := c.cacheIdentity
	c.mu.Unlock()

	if !first {
		return
	}
	if ci != nil && ci.Cache != nil {
		ci.Cache.Initialise(ci.UUID, c, *ci)
		return
	}
	if c.onUse != nil {
		c.onUse()
	}
}

// Drop decrements the user-count. Panics with ErrUsageUnderflow (a fatal
// usage error) if called with zero users.
func (c *Cell) Drop() {
	c.mu.Lock()
	if c.userCount == 0 {
		c.mu.Unlock()
		c.logger.Error("drop on zero users", slog.Uint64("cell_id", c.id))
		panic(ErrUsageUnderflow)
	}
	c.userCount--
	last := c.userCount == 0
	ci := c.cacheIdentity
	c.mu.Unlock()

	if !last {
		return
	}
	if ci != nil && ci.Cache != nil {
		ci.Cache.Finalise(ci.UUID, c)
		return
	}
	if c.onDrop != nil {
		c.onDrop()
	}
}

// ActivateLocal invokes this cell's own subclass onUse hook directly,
// bypassing a configured shared cache. The shared cache uses this when it
// promotes one of its user cells to primary: the cache owns the cell's
// cross-instance bookkeeping, but the promoted cell's own production logic
// (its reactive/transform/subscription activation) must still run once.
func (c *Cell) ActivateLocal() {
	if c.onUse != nil {
		c.onUse()
	}
}

// DeactivateLocal invokes this cell's own subclass onDrop hook directly,
// the counterpart to ActivateLocal used when the shared cache demotes a
// primary back to cold.
func (c *Cell) DeactivateLocal() {
	if c.onDrop != nil {
		c.onDrop()
	}
}

// Changed proposes a new value. Ignored for the undefined sentinel; resets
// when v is nil and the cell disallows null; otherwise triggers iff not ready
// or v is not canonically equal to the current value.
func (c *Cell) Changed(v any) {
	if isUndefined(v) {
		return
	}
	if v == nil {
		c.mu.Lock()
		allowNull := c.mayBeNull
		c.mu.Unlock()
		if !allowNull {
			c.Reset()
			return
		}
	}

	c.mu.Lock()
	notReady := !c.ready
	same := c.ready && CanonicalEqual(c.value, v)
	c.mu.Unlock()

	if notReady || !same {
		c.Trigger(v)
	}
}

// Trigger forces a value transition, firing readiness-notifiers, then
// change-subscribers, then draining one-shots, then publishing to the shared
// cache — in that order. Triggering a ready cell with a value canonically
// equal to its current one is a no-op.
func (c *Cell) Trigger(v any) {
	if isUndefined(v) {
		c.logger.Warn("trigger of undefined sentinel ignored", slog.Uint64("cell_id", c.id))
		return
	}

	c.mu.Lock()
	if c.triggering {
		c.mu.Unlock()
		c.logger.Warn("reentrant trigger ignored", slog.Uint64("cell_id", c.id))
		return
	}
	if c.ready && CanonicalEqual(c.value, v) {
		c.mu.Unlock()
		return
	}
	c.triggering = true
	c.ready = true
	c.value = v
	readySubs := append([]readyEntry(nil), c.readySubs...)
	changeSubs := append([]changeEntry(nil), c.changeSubs...)
	ci := c.cacheIdentity
	c.mu.Unlock()

	for _, e := range readySubs {
		invokeReady(c.logger, e.fn)
	}
	for _, e := range changeSubs {
		invokeChange(c.logger, e.fn, v)
	}
	c.drainThens()

	c.mu.Lock()
	c.triggering = false
	c.mu.Unlock()

	if ci != nil && ci.Cache != nil {
		ci.Cache.Changed(ci.UUID, v)
	}
}

func (c *Cell) drainThens() {
	c.mu.Lock()
	thens := c.thens
	c.thens = nil
	val := c.value
	c.mu.Unlock()

	for _, e := range thens {
		invokeChange(c.logger, e.fn, val)
		c.Drop()
	}
}

// Reset returns the cell to not-ready, or to its configured default if one has
// been set.
func (c *Cell) Reset() {
	c.mu.Lock()
	if c.defaultConfigured {
		def := c.defaultValue
		c.mu.Unlock()
		c.Trigger(def)
		return
	}
	if !c.ready {
		c.mu.Unlock()
		return
	}
	c.ready = false
	c.value = undefined{}
	readySubs := append([]readyEntry(nil), c.readySubs...)
	c.mu.Unlock()

	for _, e := range readySubs {
		invokeReady(c.logger, e.fn)
	}
}

// DefaultTo configures a default value; if the cell is currently not ready it
// immediately triggers that default.
func (c *Cell) DefaultTo(v any) {
	c.mu.Lock()
	c.defaultValue = v
	c.defaultConfigured = true
	notReady := !c.ready
	c.mu.Unlock()

	if notReady {
		c.Trigger(v)
	}
}

// Tie registers a change-subscriber, performing an implicit Use(). If the
// cell is already ready, f is invoked synchronously with the current value.
func (c *Cell) Tie(f func(any)) Token {
	token := nextToken()
	c.Use()

	c.mu.Lock()
	c.changeSubs = append(c.changeSubs, changeEntry{token, f})
	ready := c.ready
	val := c.value
	c.mu.Unlock()

	if ready {
		invokeChange(c.logger, f, val)
	}
	return token
}

// Untie removes a change-subscriber and performs the balancing Drop().
func (c *Cell) Untie(token Token) {
	c.mu.Lock()
	idx := -1
	for i, e := range c.changeSubs {
		if e.token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		c.logger.Warn("untie of unknown token", slog.Uint64("cell_id", c.id))
		return
	}
	c.changeSubs = append(c.changeSubs[:idx], c.changeSubs[idx+1:]...)
	c.mu.Unlock()

	c.Drop()
}

// Notify registers a readiness-notifier, performing an implicit Use(). Unlike
// Tie, it is never invoked synchronously at registration — only on future
// ready↔not-ready transitions and on transitions to a new ready value.
func (c *Cell) Notify(f func()) Token {
	token := nextToken()
	c.Use()

	c.mu.Lock()
	c.readySubs = append(c.readySubs, readyEntry{token, f})
	c.mu.Unlock()

	return token
}

// Unnotify removes a readiness-notifier and performs the balancing Drop().
func (c *Cell) Unnotify(token Token) {
	c.mu.Lock()
	idx := -1
	for i, e := range c.readySubs {
		if e.token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		c.logger.Warn("unnotify of unknown token", slog.Uint64("cell_id", c.id))
		return
	}
	c.readySubs = append(c.readySubs[:idx], c.readySubs[idx+1:]...)
	c.mu.Unlock()

	c.Drop()
}

// Then registers a one-shot observer, performing an implicit Use(). If ready,
// f runs immediately and Drop() balances the Use() at once; otherwise it is
// queued until the next ready transition, where it drains and drops.
func (c *Cell) Then(f func(any)) Token {
	c.Use()

	c.mu.Lock()
	ready := c.ready
	val := c.value
	c.mu.Unlock()

	if ready {
		invokeChange(c.logger, f, val)
		c.Drop()
		return 0
	}

	token := nextToken()
	c.mu.Lock()
	c.thens = append(c.thens, thenEntry{token, f})
	c.mu.Unlock()
	return token
}

// Done behaves like Tie but auto-unties the first time the configured isDone
// predicate returns true for the observed value. Panics with
// ErrDoneUnsupported if no predicate was configured.
func (c *Cell) Done(f func(any)) Token {
	if c.isDoneFn == nil {
		panic(ErrDoneUnsupported)
	}

	token := nextToken()
	wrapped := func(v any) {
		f(v)
		if c.isDoneFn(v) {
			c.Untie(token)
		}
	}

	c.Use()
	c.mu.Lock()
	c.changeSubs = append(c.changeSubs, changeEntry{token, wrapped})
	ready := c.ready
	val := c.value
	c.mu.Unlock()

	if ready {
		invokeChange(c.logger, wrapped, val)
	}
	return token
}

func invokeChange(logger *slog.Logger, f func(any), v any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("change-subscriber panicked", slog.Any("recover", r))
		}
	}()
	f(v)
}

func invokeReady(logger *slog.Logger, f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("readiness-notifier panicked", slog.Any("recover", r))
		}
	}()
	f()
}
