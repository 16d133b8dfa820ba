package frameproxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
)

// ParentLink is the child side of a Link: post a message body up to the
// parent, receive message bodies posted back down.
type ParentLink interface {
	Post(body any)
	Messages() <-chan any
}

// CacheReceiver is the subset of Cache a Client pushes relayed values into.
// serialized reports whether v is the cache identity's serialized string form
// (spookCacheUpdate's ValueString case) and must be run through the
// registration's Deserialize before use, rather than the already-decoded Go
// value (the Value case).
type CacheReceiver interface {
	ReceiveSpookUpdate(uuid string, v any, ready bool, serialized bool)
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithClientLogger overrides the default logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Client is the child side of the frame proxy protocol: it drives the
// helloSpookProxy handshake, forwards useSpook/dropSpook requests up to the
// parent, and relays spookCacheUpdate into a CacheReceiver. It implements
// cache.ParentNotifier.
type Client struct {
	mu       sync.Mutex
	link     ParentLink
	receiver CacheReceiver
	logger   *slog.Logger

	deferPrefixes []string
	tracked       map[string]struct{}

	helloAcked chan struct{}
	ackOnce    sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient constructs a Client over link and starts its handshake and
// message-relay goroutines. Call Close to stop them.
func NewClient(link ParentLink, receiver CacheReceiver, opts ...ClientOption) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		link:       link,
		receiver:   receiver,
		logger:     slog.Default(),
		tracked:    make(map[string]struct{}),
		helloAcked: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.relay()
	go c.handshake()
	return c
}

// Close stops the client's background goroutines.
func (c *Client) Close() { c.cancel() }

// DeferPrefixes returns the defer-to-parent UUID prefixes learned from
// spookProxyInfo, empty until the handshake completes.
func (c *Client) DeferPrefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferPrefixes
}

func (c *Client) handshake() {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	for {
		c.link.Post(HelloSpookProxy{})

		select {
		case <-c.ctx.Done():
			return
		case <-c.helloAcked:
			return
		case <-time.After(b.NextBackOff()):
		}
	}
}

func (c *Client) relay() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case body, ok := <-c.link.Messages():
			if !ok {
				return
			}
			c.handle(body)
		}
	}
}

func (c *Client) handle(body any) {
	switch v := body.(type) {
	case SpookProxyInfo:
		c.mu.Lock()
		c.deferPrefixes = v.DeferParentPrefix
		c.mu.Unlock()
		c.ackOnce.Do(func() { close(c.helloAcked) })

	case SpookCacheUpdate:
		switch {
		case v.HasString:
			c.receiver.ReceiveSpookUpdate(v.UUID, v.ValueString, true, true)
		case v.HasValue:
			c.receiver.ReceiveSpookUpdate(v.UUID, v.Value, true, false)
		default:
			c.receiver.ReceiveSpookUpdate(v.UUID, nil, false, false)
		}

	case SpookUnknown:
		c.logger.Warn("parent could not resolve uuid", slog.String("uuid", v.UUID))
		c.receiver.ReceiveSpookUpdate(v.UUID, nil, false, false)

	default:
		c.logger.Warn("unrecognised message from parent", slog.Any("body", body))
	}
}

// UseSpook asks the parent to start relaying updates for uuid.
func (c *Client) UseSpook(uuid string) {
	c.mu.Lock()
	c.tracked[uuid] = struct{}{}
	c.mu.Unlock()
	c.link.Post(UseSpook{UUID: uuid})
}

// DropSpook asks the parent to stop relaying updates for uuid.
func (c *Client) DropSpook(uuid string) {
	c.mu.Lock()
	delete(c.tracked, uuid)
	c.mu.Unlock()
	c.link.Post(DropSpook{UUID: uuid})
}
