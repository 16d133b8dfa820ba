package reactive

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSubClient struct {
	mu       sync.Mutex
	onValue  func(any)
	canceled bool
}

func (f *fakeSubClient) Subscribe(ctx context.Context, onValue func(any), onClosed func(error)) (func(), error) {
	f.mu.Lock()
	f.onValue = onValue
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.canceled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeSubClient) push(v any) {
	f.mu.Lock()
	cb := f.onValue
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func TestSubscriptionRelaysPushedValues(t *testing.T) {
	client := &fakeSubClient{}
	cell := NewSubscription(client, nil)

	var got []any
	var mu sync.Mutex
	token := cell.Tie(func(v any) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		client.mu.Lock()
		ready := client.onValue != nil
		client.mu.Unlock()
		if ready {
			break
		}
		time.Sleep(time.Millisecond)
	}

	client.push("v1")

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 1 || got[0] != "v1" {
		t.Fatalf("expected [v1], got %v", got)
	}

	cell.Untie(token)
}
