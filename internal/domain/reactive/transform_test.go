package reactive

import (
	"testing"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

func TestTransformPlainValue(t *testing.T) {
	in := cellcore.New()
	tc := NewTransform([]any{in}, nil, DefaultResolutionDepth, func(args []any) any {
		return args[0].(int) * 2
	}, DefaultResolutionDepth, false)

	var got []any
	tc.Tie(func(v any) { got = append(got, v) })

	in.Trigger(3)
	if len(got) != 1 || got[0] != 6 {
		t.Fatalf("expected [6], got %v", got)
	}
}

func TestTransformUndefinedResets(t *testing.T) {
	in := cellcore.New()
	tc := NewTransform([]any{in}, nil, DefaultResolutionDepth, func(args []any) any {
		return Undefined{}
	}, DefaultResolutionDepth, false)

	tc.Tie(func(any) {})
	in.Trigger(1)
	if tc.IsReady() {
		t.Fatal("expected transform cell to remain not-ready after undefined result")
	}
}

func TestTransformFutureOutput(t *testing.T) {
	in := cellcore.New()
	fut := NewFuture()
	tc := NewTransform([]any{in}, nil, DefaultResolutionDepth, func(args []any) any {
		return fut
	}, DefaultResolutionDepth, false)

	var got []any
	tc.Tie(func(v any) { got = append(got, v) })
	in.Trigger(1)

	if tc.IsReady() {
		t.Fatal("expected not-ready while future is pending")
	}
	fut.Resolve("done")
	if len(got) != 1 || got[0] != "done" {
		t.Fatalf("expected [done], got %v", got)
	}
}

func TestTransformLatchedKeepsValueWhilePending(t *testing.T) {
	in := cellcore.New()
	futs := map[int]*Future{1: NewFuture(), 2: NewFuture()}
	tc := NewTransform([]any{in}, nil, DefaultResolutionDepth, func(args []any) any {
		return futs[args[0].(int)]
	}, DefaultResolutionDepth, true)

	tc.Tie(func(any) {})
	in.Trigger(1)
	futs[1].Resolve("first")

	if v, ok := tc.Value(); !ok || v != "first" {
		t.Fatalf("expected first value, got %v ready=%v", v, ok)
	}

	in.Trigger(2)
	if v, ok := tc.Value(); !ok || v != "first" {
		t.Fatalf("expected latched first value while second is pending, got %v ready=%v", v, ok)
	}

	futs[2].Resolve("second")
	if v, ok := tc.Value(); !ok || v != "second" {
		t.Fatalf("expected second value, got %v ready=%v", v, ok)
	}
}

func TestTransformStructuredOutput(t *testing.T) {
	in := cellcore.New()
	innerA := cellcore.New()
	innerB := cellcore.New()

	tc := NewTransform([]any{in}, nil, DefaultResolutionDepth, func(args []any) any {
		return map[string]any{"a": innerA, "b": innerB}
	}, DefaultResolutionDepth, false)

	var got []any
	tc.Tie(func(v any) { got = append(got, v) })

	in.Trigger(1)
	if tc.IsReady() {
		t.Fatal("expected not-ready until inner cells resolve")
	}

	innerA.Trigger("x")
	innerB.Trigger("y")

	if len(got) == 0 {
		t.Fatal("expected at least one resolved structured value")
	}
	last := got[len(got)-1].(map[string]any)
	if last["a"] != "x" || last["b"] != "y" {
		t.Fatalf("unexpected resolved structure: %v", last)
	}
}
