package reactive

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// Promise converts an ordered list of items — plain values, *Future, or
// *cellcore.Cell — into a single *Future that completes with the ordered
// resolved list once every item has resolved, or rejects permanently if any
// contained future rejects. Cells are observed via a one-shot Then, with
// Use/Drop accounting handled by Then itself.
func Promise(items []any) *Future {
	out := NewFuture()
	if len(items) == 0 {
		out.Resolve([]any{})
		return out
	}

	results := make([]any, len(items))
	g, _ := errgroup.WithContext(context.Background())

	var mu sync.Mutex
	var errs error
	recordErr := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			val, err := resolveOne(item)
			if err != nil {
				recordErr(err)
				return err
			}
			results[i] = val
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		if errs != nil {
			out.Reject(errs)
			return
		}
		out.Resolve(results)
	}()

	return out
}

// resolveOne blocks the calling goroutine (one of errgroup's workers) until
// a single item resolves, bridging cell/future completion callbacks onto a
// channel so they compose with errgroup's synchronous Go function shape.
func resolveOne(item any) (any, error) {
	switch v := item.(type) {
	case *cellcore.Cell:
		ch := make(chan any, 1)
		v.Then(func(val any) { ch <- val })
		return <-ch, nil
	case *Future:
		type result struct {
			val any
			err error
		}
		ch := make(chan result, 1)
		v.Then(func(val any, err error) { ch <- result{val, err} })
		r := <-ch
		return r.val, r.err
	default:
		return v, nil
	}
}

// All is sugar over Promise for variadic call sites.
func All(items ...any) *Future {
	return Promise(items)
}

// MapAll resolves every value of m concurrently, returning a future of a
// map with the same keys and resolved values.
func MapAll(m map[string]any) *Future {
	keys := make([]string, 0, len(m))
	items := make([]any, 0, len(m))
	for k, v := range m {
		keys = append(keys, k)
		items = append(items, v)
	}

	out := NewFuture()
	Promise(items).Then(func(resolved any, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		vals := resolved.([]any)
		result := make(map[string]any, len(keys))
		for i, k := range keys {
			result[k] = vals[i]
		}
		out.Resolve(result)
	})
	return out
}
