package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// ParentNotifier is the subset of the frame proxy child link a deferring
// cache needs: ask the parent to take over a UUID, and tell it to stop.
type ParentNotifier interface {
	UseSpook(uuid string)
	DropSpook(uuid string)
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithDeferToParentPrefixes marks UUID prefixes this instance never owns
// itself, instead always delegating to a parent frame via ParentNotifier.
func WithDeferToParentPrefixes(prefixes ...string) Option {
	return func(c *Cache) { c.deferPrefixes = prefixes }
}

// WithParentNotifier wires the frame proxy child link used for deferred
// UUIDs.
func WithParentNotifier(p ParentNotifier) Option {
	return func(c *Cache) { c.parent = p }
}

// WithColdRetention bounds how many recently-finalised primaries are kept
// warm (registration retained, storage owner key held) for instant reuse
// before being fully released. size <= 0 disables retention.
func WithColdRetention(size int) Option {
	return func(c *Cache) { c.coldCapacity = size }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache implements cellcore.SharedCache: one-owner-per-UUID election across
// concurrent runtime instances sharing Store, plus within-instance mirroring
// across multiple cell mirrors of the same UUID.
type Cache struct {
	mu   sync.Mutex
	regs map[string]*registration

	store     Store
	sessionID string

	deferPrefixes []string
	parent        ParentNotifier

	coldCapacity int
	cold         *lru.Cache[string, struct{}]

	breaker *gobreaker.CircuitBreaker[struct{}]

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCache constructs a Cache over store and starts its storage-event watch
// loop. Call Close to stop it.
func NewCache(store Store, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		regs:      make(map[string]*registration),
		store:     store,
		sessionID: newSessionID(),
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "cache-owner-claim",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
	})

	if c.coldCapacity > 0 {
		cold, _ := lru.NewWithEvict[string, struct{}](c.coldCapacity, func(uuid string, _ struct{}) {
			c.releaseCold(uuid)
		})
		c.cold = cold
	}

	go c.watchLoop()
	return c
}

// Close stops the background storage-event watch loop.
func (c *Cache) Close() { c.cancel() }

func (c *Cache) registrationFor(uuid string, ci cellcore.CacheIdentity) (*registration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, existed := c.regs[uuid]
	if !existed {
		reg = newRegistration(uuid, ci)
		c.regs[uuid] = reg
	}
	return reg, existed
}

// Initialise implements cellcore.SharedCache.
func (c *Cache) Initialise(uuid string, cell *cellcore.Cell, ci cellcore.CacheIdentity) {
	reg, existed := c.registrationFor(uuid, ci)

	reg.mu.Lock()
	isColdPrimary := existed && reg.primary == cell
	reg.mu.Unlock()

	if isColdPrimary {
		reg.mu.Lock()
		reg.owned = true
		reg.mu.Unlock()
		if c.cold != nil {
			c.cold.Remove(uuid)
		}
		return
	}

	if !existed {
		reg.addUser(cell)
		if v, ok, err := c.store.Get(c.ctx, valueKey(uuid)); err == nil && ok {
			if decoded, derr := ci.Deserialize(v); derr == nil {
				cell.Changed(decoded)
			}
		}
		c.ensureActive(uuid)
		return
	}

	reg.addUser(cell)
	if v, ok := reg.anyReadyValue(); ok {
		cell.Changed(v)
	}
}

// ensureActive runs the owner-reconciliation protocol for uuid.
func (c *Cache) ensureActive(uuid string) {
	c.mu.Lock()
	reg, ok := c.regs[uuid]
	c.mu.Unlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	hasUsers := reg.primary != nil || len(reg.users) > 0
	hasPrimary := reg.primary != nil
	owned := reg.owned
	reg.mu.Unlock()

	if !hasUsers {
		return
	}

	if hasPrimary && !owned {
		p := reg.primary
		reg.mu.Lock()
		reg.primary = nil
		reg.mu.Unlock()
		p.DeactivateLocal()
		return
	}

	if hasPrimary {
		return
	}

	if c.isDeferred(uuid) {
		reg.mu.Lock()
		reg.deferred = true
		reg.mu.Unlock()
		if c.parent != nil {
			c.parent.UseSpook(uuid)
		}
		return
	}

	owner, present, err := c.store.Get(c.ctx, ownerKey(uuid))
	if err != nil {
		c.logger.Error("owner lookup failed", slog.Any("err", err))
		return
	}

	if !present {
		claimed, err := c.claimOwner(uuid)
		if err != nil {
			c.logger.Warn("owner claim circuit open", slog.Any("err", err))
			return
		}
		if !claimed {
			return
		}
		owner = c.sessionID
	}

	if owner != c.sessionID {
		return // passive mirror, awaiting storage-change events
	}

	c.promoteOne(uuid, reg)
}

func (c *Cache) promoteOne(uuid string, reg *registration) {
	reg.mu.Lock()
	if len(reg.users) == 0 {
		reg.mu.Unlock()
		return
	}
	primary := reg.users[0]
	reg.users = reg.users[1:]
	reg.primary = primary
	reg.owned = true
	reg.mu.Unlock()

	primary.ActivateLocal()
}

func (c *Cache) claimOwner(uuid string) (bool, error) {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.store.Set(c.ctx, ownerKey(uuid), c.sessionID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Finalise implements cellcore.SharedCache.
func (c *Cache) Finalise(uuid string, cell *cellcore.Cell) {
	c.mu.Lock()
	reg, ok := c.regs[uuid]
	c.mu.Unlock()
	if !ok {
		return
	}

	wasPrimary := false
	reg.mu.Lock()
	if reg.primary == cell {
		wasPrimary = true
	}
	reg.mu.Unlock()

	empty := reg.removeUser(cell)

	if wasPrimary {
		if c.coldCapacity > 0 {
			reg.mu.Lock()
			reg.primary = cell
			reg.mu.Unlock()
			c.cold.Add(uuid, struct{}{})
		} else {
			c.releaseCold(uuid)
		}
		c.ensureActive(uuid)
		return
	}

	reg.mu.Lock()
	nowEmpty := len(reg.users) == 0 && reg.primary == nil
	deferred := reg.deferred
	reg.mu.Unlock()

	if nowEmpty && deferred {
		if c.parent != nil {
			c.parent.DropSpook(uuid)
		}
		reg.mu.Lock()
		reg.deferred = false
		reg.mu.Unlock()
	}

	if empty {
		c.mu.Lock()
		delete(c.regs, uuid)
		c.mu.Unlock()
	}
}

// releaseCold fully relinquishes a cold primary: drops it, and if we were
// the storage owner and no users remain, removes our owner key.
func (c *Cache) releaseCold(uuid string) {
	c.mu.Lock()
	reg, ok := c.regs[uuid]
	c.mu.Unlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	primary := reg.primary
	reg.primary = nil
	reg.owned = false
	noUsers := len(reg.users) == 0
	reg.mu.Unlock()

	if primary != nil {
		primary.DeactivateLocal()
	}

	if noUsers {
		owner, present, err := c.store.Get(c.ctx, ownerKey(uuid))
		if err == nil && present && owner == c.sessionID {
			_ = c.store.Delete(c.ctx, ownerKey(uuid))
		}
		c.mu.Lock()
		delete(c.regs, uuid)
		c.mu.Unlock()
	}
}

// Changed implements cellcore.SharedCache: only the owning instance
// publishes the new value and mirrors it to every registered user.
func (c *Cache) Changed(uuid string, v any) {
	c.mu.Lock()
	reg, ok := c.regs[uuid]
	c.mu.Unlock()
	if !ok {
		return
	}

	owner, present, err := c.store.Get(c.ctx, ownerKey(uuid))
	if err != nil || !present || owner != c.sessionID {
		return
	}

	serialized, err := reg.ci.Serialize(v)
	if err != nil {
		c.logger.Error("value serialization failed", slog.Any("err", err), slog.String("uuid", uuid))
		return
	}
	if err := c.store.Set(c.ctx, valueKey(uuid), serialized); err != nil {
		c.logger.Error("value store failed", slog.Any("err", err))
	}
	reg.mirror(v)
}

// ReceiveSpookUpdate implements frameproxy.CacheReceiver: applies a value
// relayed by the frame proxy client for a uuid this instance deferred to its
// parent rather than owning itself. serialized values (the spookCacheUpdate
// ValueString case, used whenever a serializer is configured for a non-null
// object) are run through the registration's own Deserialize before mirroring.
func (c *Cache) ReceiveSpookUpdate(uuid string, v any, ready bool, serialized bool) {
	c.mu.Lock()
	reg, ok := c.regs[uuid]
	c.mu.Unlock()
	if !ok {
		return
	}

	if !ready {
		reg.resetAll()
		return
	}

	if serialized {
		s, ok := v.(string)
		if !ok {
			c.logger.Error("serialized spook update was not a string", slog.String("uuid", uuid))
			return
		}
		decoded, err := reg.ci.Deserialize(s)
		if err != nil {
			c.logger.Error("spook update deserialization failed", slog.Any("err", err), slog.String("uuid", uuid))
			return
		}
		v = decoded
	}

	reg.mirror(v)
}

func (c *Cache) isDeferred(uuid string) bool {
	for _, p := range c.deferPrefixes {
		if len(uuid) >= len(p) && uuid[:len(p)] == p {
			return true
		}
	}
	return false
}

func (c *Cache) watchLoop() {
	events, err := c.store.Watch(c.ctx)
	if err != nil {
		c.logger.Error("store watch failed", slog.Any("err", err))
		return
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleStorageEvent(ev)
		}
	}
}

func (c *Cache) handleStorageEvent(ev StoreEvent) {
	uuid, kind, ok := parseKey(ev.Key)
	if !ok {
		return
	}

	c.mu.Lock()
	reg, exists := c.regs[uuid]
	c.mu.Unlock()
	if !exists {
		return
	}

	switch kind {
	case keyKindValue:
		if ev.Deleted {
			reg.resetAll()
			return
		}
		v, err := reg.ci.Deserialize(ev.Value)
		if err != nil {
			return
		}
		reg.mirror(v)
	case keyKindOwner:
		if ev.Deleted {
			c.ensureActive(uuid)
		}
	}
}
