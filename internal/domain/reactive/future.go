package reactive

import "sync"

// Future is a one-shot asynchronous value slot. Reactive/Transform cells may
// reference a Future anywhere within a resolved input or output structure;
// it is the only suspension primitive besides RPC subscriptions.
type Future struct {
	mu      sync.Mutex
	done    bool
	value   any
	err     error
	waiters []func(any, error)
}

// NewFuture returns a pending Future.
func NewFuture() *Future {
	return &Future{}
}

// Resolve completes the future successfully. A future resolves at most once;
// subsequent calls are ignored.
func (f *Future) Resolve(v any) {
	f.complete(v, nil)
}

// Reject completes the future with a permanent error.
func (f *Future) Reject(err error) {
	f.complete(nil, err)
}

func (f *Future) complete(v any, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.value = v
	f.err = err
	waiters := f.waiters
	f.waiters = nil
	f.mu.Unlock()

	for _, w := range waiters {
		w(v, err)
	}
}

// Done reports whether the future has resolved or rejected.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Result returns the resolved value/error; meaningful only once Done().
func (f *Future) Result() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Then registers a completion handler, invoked synchronously if the future
// has already completed.
func (f *Future) Then(fn func(any, error)) {
	f.mu.Lock()
	if f.done {
		v, err := f.value, f.err
		f.mu.Unlock()
		fn(v, err)
		return
	}
	f.waiters = append(f.waiters, fn)
	f.mu.Unlock()
}
