package frameproxy

import (
	"sync"
	"testing"
	"time"
)

type fakeParentLink struct {
	mu    sync.Mutex
	posts []any
	down  chan any
}

func newFakeParentLink() *fakeParentLink {
	return &fakeParentLink{down: make(chan any, 16)}
}

func (f *fakeParentLink) Post(body any) {
	f.mu.Lock()
	f.posts = append(f.posts, body)
	f.mu.Unlock()
}

func (f *fakeParentLink) Messages() <-chan any { return f.down }

func (f *fakeParentLink) lastPost() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		return nil
	}
	return f.posts[len(f.posts)-1]
}

type fakeReceiver struct {
	mu         sync.Mutex
	updates    map[string]any
	ready      map[string]bool
	serialized map[string]bool
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{
		updates:    make(map[string]any),
		ready:      make(map[string]bool),
		serialized: make(map[string]bool),
	}
}

func (r *fakeReceiver) ReceiveSpookUpdate(uuid string, v any, ready bool, serialized bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[uuid] = v
	r.ready[uuid] = ready
	r.serialized[uuid] = serialized
}

func waitForPost(t *testing.T, link *fakeParentLink, timeout time.Duration) any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p := link.lastPost(); p != nil {
			return p
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a post to the parent")
	return nil
}

func TestClientHandshakeSendsHello(t *testing.T) {
	link := newFakeParentLink()
	client := NewClient(link, newFakeReceiver())
	defer client.Close()

	if _, ok := waitForPost(t, link, time.Second).(HelloSpookProxy); !ok {
		t.Fatal("expected HelloSpookProxy to be posted")
	}
}

func TestClientLearnsDeferPrefixesOnAck(t *testing.T) {
	link := newFakeParentLink()
	client := NewClient(link, newFakeReceiver())
	defer client.Close()

	waitForPost(t, link, time.Second)
	link.down <- SpookProxyInfo{DeferParentPrefix: []string{"ext:"}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if prefixes := client.DeferPrefixes(); len(prefixes) == 1 && prefixes[0] == "ext:" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected defer prefixes to be learned")
}

func TestClientRelaysCacheUpdate(t *testing.T) {
	link := newFakeParentLink()
	recv := newFakeReceiver()
	client := NewClient(link, recv)
	defer client.Close()

	client.UseSpook("u1")
	link.down <- SpookCacheUpdate{UUID: "u1", Value: "hello", HasValue: true}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recv.mu.Lock()
		v, ready := recv.updates["u1"], recv.ready["u1"]
		recv.mu.Unlock()
		if ready && v == "hello" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected receiver to observe relayed value")
}

func TestClientRelaysSerializedCacheUpdate(t *testing.T) {
	link := newFakeParentLink()
	recv := newFakeReceiver()
	client := NewClient(link, recv)
	defer client.Close()

	client.UseSpook("u3")
	link.down <- SpookCacheUpdate{UUID: "u3", ValueString: `{"n":1}`, HasString: true}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recv.mu.Lock()
		v, ready, serialized := recv.updates["u3"], recv.ready["u3"], recv.serialized["u3"]
		recv.mu.Unlock()
		if ready && serialized && v == `{"n":1}` {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected receiver to observe the raw serialized value flagged for deserialization")
}

func TestClientUseDropSpookPostsRequests(t *testing.T) {
	link := newFakeParentLink()
	client := NewClient(link, newFakeReceiver())
	defer client.Close()

	client.UseSpook("u2")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		link.mu.Lock()
		found := false
		for _, p := range link.posts {
			if u, ok := p.(UseSpook); ok && u.UUID == "u2" {
				found = true
			}
		}
		link.mu.Unlock()
		if found {
			break
		}
		time.Sleep(time.Millisecond)
	}

	client.DropSpook("u2")
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		link.mu.Lock()
		found := false
		for _, p := range link.posts {
			if d, ok := p.(DropSpook); ok && d.UUID == "u2" {
				found = true
			}
		}
		link.mu.Unlock()
		if found {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected DropSpook to be posted")
}
