package reactive

import (
	"errors"
	"testing"
	"time"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

func TestPromiseMixedItems(t *testing.T) {
	c := cellcore.New()
	fut := NewFuture()

	go func() {
		time.Sleep(time.Millisecond)
		c.Trigger("from-cell")
		fut.Resolve("from-future")
	}()

	p := Promise([]any{"plain", c, fut})

	select {
	case <-waitFuture(p):
	case <-time.After(time.Second):
		t.Fatal("promise did not resolve in time")
	}

	val, err := p.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results := val.([]any)
	if results[0] != "plain" || results[1] != "from-cell" || results[2] != "from-future" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestPromiseRejectsOnFutureRejection(t *testing.T) {
	fut := NewFuture()
	go fut.Reject(errors.New("boom"))

	p := Promise([]any{fut})
	<-waitFuture(p)

	_, err := p.Result()
	if err == nil {
		t.Fatal("expected rejection to propagate")
	}
}

func TestMapAllResolvesKeys(t *testing.T) {
	fut := NewFuture()
	go fut.Resolve(42)

	p := MapAll(map[string]any{"answer": fut, "fixed": "x"})
	<-waitFuture(p)

	val, err := p.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := val.(map[string]any)
	if m["answer"] != 42 || m["fixed"] != "x" {
		t.Fatalf("unexpected map: %v", m)
	}
}

func waitFuture(f *Future) <-chan struct{} {
	done := make(chan struct{})
	f.Then(func(any, error) { close(done) })
	return done
}
