// Package frameproxy implements the cross-frame message protocol: a parent
// runtime multiplexing producer cells on behalf of children that cannot
// claim ownership of certain UUIDs themselves, and a child-side client that
// drives the handshake and relays updates into local mirror cells.
package frameproxy

// Link is a single message channel to one child frame/tab. A concrete
// implementation wraps postMessage, a WebSocket, or any other transport
// carrying one Envelope per logical message.
type Link interface {
	Post(msg OutboundMessage)
	Messages() <-chan InboundMessage
	// Origin identifies the peer this Link was accepted from, checked against
	// the proxy's own child-origin allowlist before any inbound message is
	// processed.
	Origin() string
}

// InboundMessage is a message received from a child, tagged with the Link it
// arrived on so the proxy can reply and track per-child subscriptions.
type InboundMessage struct {
	From Link
	Body any
}

// OutboundMessage is a reply posted back to a single child Link.
type OutboundMessage struct {
	Body any
}

// HelloSpookProxy is sent by a child on startup to discover the parent's
// defer-to-parent UUID prefix configuration.
type HelloSpookProxy struct{}

// SpookProxyInfo replies to HelloSpookProxy.
type SpookProxyInfo struct {
	DeferParentPrefix []string
}

// UseSpook asks the parent to start relaying updates for uuid.
type UseSpook struct {
	UUID string
}

// DropSpook asks the parent to stop relaying updates for uuid from this
// child.
type DropSpook struct {
	UUID string
}

// SpookCacheUpdate relays a value (or not-ready) for uuid to a child. Value
// is set when the value is not a serialisable object (or no serialiser was
// configured); ValueString is set when it is. Neither is set to signal
// not-ready.
type SpookCacheUpdate struct {
	UUID        string
	Value       any
	ValueString string
	HasValue    bool
	HasString   bool
}

// SpookUnknown replies to a useSpook for a UUID the parent's fromUuid
// resolver could not resolve.
type SpookUnknown struct {
	UUID string
}
