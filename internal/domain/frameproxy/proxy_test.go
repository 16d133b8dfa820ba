package frameproxy

import (
	"errors"
	"testing"
	"time"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

type fakeLink struct {
	origin string
	posts  chan OutboundMessage
	msgs   chan InboundMessage
}

func newFakeLink(origin string) *fakeLink {
	return &fakeLink{origin: origin, posts: make(chan OutboundMessage, 16), msgs: make(chan InboundMessage, 16)}
}

func (f *fakeLink) Post(msg OutboundMessage)      { f.posts <- msg }
func (f *fakeLink) Messages() <-chan InboundMessage { return f.msgs }
func (f *fakeLink) Origin() string                { return f.origin }

func (f *fakeLink) send(body any) {
	f.msgs <- InboundMessage{From: f, Body: body}
}

func recvPost(t *testing.T, f *fakeLink, timeout time.Duration) OutboundMessage {
	t.Helper()
	select {
	case m := <-f.posts:
		return m
	case <-time.After(timeout):
		t.Fatal("timed out waiting for post")
		return OutboundMessage{}
	}
}

func TestProxyHandshakeRepliesProxyInfo(t *testing.T) {
	p := NewProxy(nil, WithDeferParentPrefix("ext:"))
	link := newFakeLink("child-a")
	p.AcceptLink(link)

	link.send(HelloSpookProxy{})

	msg := recvPost(t, link, time.Second)
	info, ok := msg.Body.(SpookProxyInfo)
	if !ok {
		t.Fatalf("expected SpookProxyInfo, got %T", msg.Body)
	}
	if len(info.DeferParentPrefix) != 1 || info.DeferParentPrefix[0] != "ext:" {
		t.Fatalf("unexpected prefixes: %v", info.DeferParentPrefix)
	}
}

func TestProxyUnknownUUID(t *testing.T) {
	p := NewProxy(func(uuid string) (*cellcore.Cell, error) {
		return nil, errors.New("no such uuid")
	})
	link := newFakeLink("child-a")
	p.AcceptLink(link)

	link.send(UseSpook{UUID: "missing"})

	msg := recvPost(t, link, time.Second)
	unk, ok := msg.Body.(SpookUnknown)
	if !ok || unk.UUID != "missing" {
		t.Fatalf("expected SpookUnknown{missing}, got %#v", msg.Body)
	}
}

func TestProxyBroadcastsToMultipleChildren(t *testing.T) {
	producer := cellcore.New()
	p := NewProxy(func(uuid string) (*cellcore.Cell, error) {
		return producer, nil
	})

	childA := newFakeLink("child-a")
	childB := newFakeLink("child-b")
	p.AcceptLink(childA)
	p.AcceptLink(childB)

	childA.send(UseSpook{UUID: "shared"})
	childB.send(UseSpook{UUID: "shared"})

	// both get the initial not-ready snapshot
	recvPost(t, childA, time.Second)
	recvPost(t, childB, time.Second)

	producer.Trigger(42)

	gotA := recvPost(t, childA, time.Second)
	gotB := recvPost(t, childB, time.Second)

	for _, got := range []OutboundMessage{gotA, gotB} {
		upd, ok := got.Body.(SpookCacheUpdate)
		if !ok || !upd.HasValue || upd.Value != 42 {
			t.Fatalf("expected SpookCacheUpdate{42}, got %#v", got.Body)
		}
	}
}

func TestProxyDropSpookStopsTracking(t *testing.T) {
	producer := cellcore.New()
	p := NewProxy(func(uuid string) (*cellcore.Cell, error) {
		return producer, nil
	})

	link := newFakeLink("child-a")
	p.AcceptLink(link)

	link.send(UseSpook{UUID: "shared"})
	recvPost(t, link, time.Second)

	link.send(DropSpook{UUID: "shared"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		_, tracked := p.tracked["shared"]
		p.mu.Unlock()
		if !tracked {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected uuid to stop being tracked after DropSpook")
}
