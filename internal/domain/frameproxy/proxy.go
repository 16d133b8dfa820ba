package frameproxy

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// Resolver resolves a UUID to a producer cell the proxy does not itself own
// (injected by the application — typically a Subscription Cell or a graph
// lookup), mirroring the source system's fromUuid callback.
type Resolver func(uuid string) (*cellcore.Cell, error)

// Option configures a Proxy at construction time.
type Option func(*Proxy)

// WithDeferParentPrefix sets the prefix list advertised to children in
// spookProxyInfo.
func WithDeferParentPrefix(prefixes ...string) Option {
	return func(p *Proxy) { p.deferPrefixes = prefixes }
}

// WithAllowedOrigins restricts accepted links to those whose Origin() is in
// the allowlist. An empty allowlist accepts every link (single-process
// demo wiring); production wiring should always set this.
func WithAllowedOrigins(origins ...string) Option {
	return func(p *Proxy) {
		p.allowedOrigins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			p.allowedOrigins[o] = struct{}{}
		}
	}
}

// WithSerializer configures the object serialiser used to decide between
// spookCacheUpdate's Value and ValueString fields.
func WithSerializer(fn func(any) (string, bool, error)) Option {
	return func(p *Proxy) { p.serialize = fn }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Proxy) { p.logger = l }
}

// Proxy is the parent-side multiplexer: it serves children that cannot
// themselves own certain UUIDs by resolving a producer cell once per UUID
// and relaying its updates to every subscribed child.
type Proxy struct {
	mu       sync.Mutex
	tracked  map[string]*trackedUUID
	resolve  Resolver
	logger   *slog.Logger

	deferPrefixes  []string
	allowedOrigins map[string]struct{}
	serialize      func(any) (string, bool, error)
}

type trackedUUID struct {
	cell        *cellcore.Cell
	token       cellcore.Token
	subscribers map[Link]struct{}
	teardown    sync.Once
}

// NewProxy constructs a Proxy using resolve to satisfy useSpook requests.
func NewProxy(resolve Resolver, opts ...Option) *Proxy {
	p := &Proxy{
		tracked: make(map[string]*trackedUUID),
		resolve: resolve,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AcceptLink starts relaying a newly-connected child's messages until its
// channel closes.
func (p *Proxy) AcceptLink(link Link) {
	go func() {
		for msg := range link.Messages() {
			p.handleMessage(link, msg)
		}
		p.dropAllFor(link)
	}()
}

func (p *Proxy) handleMessage(link Link, msg InboundMessage) {
	if !p.originAllowed(link.Origin()) {
		p.logger.Warn("ignoring message from disallowed origin", slog.String("origin", link.Origin()))
		return
	}

	switch body := msg.Body.(type) {
	case HelloSpookProxy:
		link.Post(OutboundMessage{Body: SpookProxyInfo{DeferParentPrefix: p.deferPrefixes}})
	case UseSpook:
		p.handleUseSpook(link, body.UUID)
	case DropSpook:
		p.handleDropSpook(link, body.UUID)
	default:
		p.logger.Warn("unrecognised inbound message", slog.Any("body", body))
	}
}

func (p *Proxy) originAllowed(origin string) bool {
	if len(p.allowedOrigins) == 0 {
		return true
	}
	_, ok := p.allowedOrigins[origin]
	return ok
}

func (p *Proxy) handleUseSpook(link Link, uuid string) {
	p.mu.Lock()
	tu, existed := p.tracked[uuid]
	p.mu.Unlock()

	if !existed {
		cell, err := p.resolve(uuid)
		if err != nil {
			link.Post(OutboundMessage{Body: SpookUnknown{UUID: uuid}})
			return
		}

		tu = &trackedUUID{cell: cell, subscribers: make(map[Link]struct{})}
		p.mu.Lock()
		p.tracked[uuid] = tu
		p.mu.Unlock()

		tu.token = cell.Notify(func() { p.broadcast(uuid, tu) })
	}

	p.mu.Lock()
	tu.subscribers[link] = struct{}{}
	p.mu.Unlock()

	p.postOne(link, uuid, tu.cell)
}

func (p *Proxy) handleDropSpook(link Link, uuid string) {
	p.mu.Lock()
	tu, ok := p.tracked[uuid]
	if ok {
		delete(tu.subscribers, link)
	}
	empty := ok && len(tu.subscribers) == 0
	if empty {
		delete(p.tracked, uuid)
	}
	p.mu.Unlock()

	if empty {
		tu.teardown.Do(func() {
			tu.cell.Unnotify(tu.token)
		})
	}
}

func (p *Proxy) dropAllFor(link Link) {
	p.mu.Lock()
	var toTeardown []struct {
		uuid string
		tu   *trackedUUID
	}
	for uuid, tu := range p.tracked {
		if _, ok := tu.subscribers[link]; !ok {
			continue
		}
		delete(tu.subscribers, link)
		if len(tu.subscribers) == 0 {
			delete(p.tracked, uuid)
			toTeardown = append(toTeardown, struct {
				uuid string
				tu   *trackedUUID
			}{uuid, tu})
		}
	}
	p.mu.Unlock()

	for _, entry := range toTeardown {
		tu := entry.tu
		tu.teardown.Do(func() {
			tu.cell.Unnotify(tu.token)
		})
	}
}

// broadcast posts the current state of uuid to every subscribed child
// concurrently.
func (p *Proxy) broadcast(uuid string, tu *trackedUUID) {
	p.mu.Lock()
	links := make([]Link, 0, len(tu.subscribers))
	for l := range tu.subscribers {
		links = append(links, l)
	}
	p.mu.Unlock()

	var g errgroup.Group
	for _, link := range links {
		link := link
		g.Go(func() error {
			p.postOne(link, uuid, tu.cell)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Proxy) postOne(link Link, uuid string, cell *cellcore.Cell) {
	update := SpookCacheUpdate{UUID: uuid}

	v, ready := cell.Value()
	if ready {
		if p.serialize != nil {
			if s, isObject, err := p.serialize(v); err == nil && isObject {
				update.ValueString = s
				update.HasString = true
			} else {
				update.Value = v
				update.HasValue = true
			}
		} else {
			update.Value = v
			update.HasValue = true
		}
	}

	link.Post(OutboundMessage{Body: update})
}
