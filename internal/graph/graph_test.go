package graph

import (
	"testing"
	"time"
)

func waitFut(t *testing.T, f *Future) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f.Done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("future did not resolve before timeout")
}

func TestMapDerivesFromSingleInput(t *testing.T) {
	a := New()
	doubled := Map(DefaultDepth, func(args []any) any {
		return args[0].(int) * 2
	}, a)

	var got []any
	doubled.Tie(func(v any) { got = append(got, v) })

	a.Trigger(21)
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected [42], got %v", got)
	}
}

func TestSubMissingKeyResets(t *testing.T) {
	parent := New()
	name := Sub(parent, "name")

	var got []any
	name.Tie(func(v any) { got = append(got, v) })

	parent.Trigger(map[string]any{"name": "alice"})
	if len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected [alice], got %v", got)
	}

	parent.Trigger(map[string]any{"other": 1})
	if name.IsReady() {
		t.Fatal("expected sub cell to reset on missing key")
	}
}

func TestPromiseResolvesPlainAndCellItems(t *testing.T) {
	a := New()
	a.Trigger(5)

	fut := All(a, 10)
	waitFut(t, fut)

	v, err := fut.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vals := v.([]any)
	if vals[0] != 5 || vals[1] != 10 {
		t.Fatalf("unexpected resolved values: %v", vals)
	}
}
