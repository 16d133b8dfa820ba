package reactive

import (
	"testing"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

func TestSubStaticKey(t *testing.T) {
	parent := cellcore.New()
	s := Sub(parent, "name")

	var got []any
	s.Tie(func(v any) { got = append(got, v) })

	parent.Trigger(map[string]any{"name": "ilya", "age": 30})
	if len(got) != 1 || got[0] != "ilya" {
		t.Fatalf("expected [ilya], got %v", got)
	}

	parent.Trigger(map[string]any{"name": "other"})
	if len(got) != 2 || got[1] != "other" {
		t.Fatalf("expected other, got %v", got)
	}
}

func TestSubMissingKeyResets(t *testing.T) {
	parent := cellcore.New()
	s := Sub(parent, "missing")
	s.Tie(func(any) {})

	parent.Trigger(map[string]any{"name": "ilya"})
	if s.IsReady() {
		t.Fatal("expected not-ready when key is missing")
	}
}

func TestSubCellDynamicKey(t *testing.T) {
	parent := cellcore.New()
	key := cellcore.New()
	s := SubCell(parent, key)

	var got []any
	s.Tie(func(v any) { got = append(got, v) })

	parent.Trigger(map[string]any{"a": 1, "b": 2})
	key.Trigger("a")
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected [1], got %v", got)
	}

	key.Trigger("b")
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("expected second value 2, got %v", got)
	}
}
