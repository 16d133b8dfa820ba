package reactive

import (
	"testing"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// S3 Latch: L = latch(A, default=0); L.tie(f) -> f(0); A.trigger(7) -> f(7);
// A.trigger(8) -> f not called again.
func TestLatch(t *testing.T) {
	a := cellcore.New()
	l := NewLatch(a, true, 0)

	var got []any
	l.Tie(func(v any) { got = append(got, v) })

	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected immediate default 0, got %v", got)
	}

	a.Trigger(7)
	if len(got) != 2 || got[1] != 7 {
		t.Fatalf("expected latch to adopt 7, got %v", got)
	}

	a.Trigger(8)
	if len(got) != 2 {
		t.Fatalf("expected latch to detach after first value, got %v", got)
	}
}

// S4 Default cell: always ready, mirrors input when ready, else default.
func TestDefaultCell(t *testing.T) {
	a := cellcore.New()
	d := NewDefaultCell(a, "fallback")

	var got []any
	d.Tie(func(v any) { got = append(got, v) })
	if len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("expected fallback, got %v", got)
	}

	a.Trigger("real")
	if len(got) != 2 || got[1] != "real" {
		t.Fatalf("expected mirrored value, got %v", got)
	}

	a.Reset()
	if len(got) != 3 || got[2] != "fallback" {
		t.Fatalf("expected fallback after input reset, got %v", got)
	}
}

func TestReduce(t *testing.T) {
	a := cellcore.New()
	sum := NewReduce(a, 0, func(acc, v any) any {
		return acc.(int) + v.(int)
	})

	var got []any
	sum.Tie(func(v any) { got = append(got, v) })
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected initial accumulator 0, got %v", got)
	}

	a.Trigger(3)
	a.Trigger(4)
	if len(got) != 3 || got[1] != 3 || got[2] != 7 {
		t.Fatalf("expected running sum 3 then 7, got %v", got)
	}
}

func TestReadyProbe(t *testing.T) {
	a := cellcore.New()
	probe := NewReadyProbe(a)

	var got []any
	probe.Tie(func(v any) { got = append(got, v) })
	if len(got) != 1 || got[0] != false {
		t.Fatalf("expected initial false, got %v", got)
	}

	a.Trigger(1)
	if len(got) != 2 || got[1] != true {
		t.Fatalf("expected true after trigger, got %v", got)
	}

	a.Reset()
	if len(got) != 3 || got[2] != false {
		t.Fatalf("expected false after reset, got %v", got)
	}
}
