package cellcore

import "errors"

// Soft errors are logged and ignored; Fatal errors panic at the call site.
var (
	ErrUsageUnderflow  = errors.New("cellcore: drop() called with zero users")
	ErrDoneUnsupported = errors.New("cellcore: done() requires an isDone predicate")

	ErrReentrantTrigger   = errors.New("cellcore: reentrant trigger ignored")
	ErrTriggerOfUndefined = errors.New("cellcore: trigger/changed of undefined sentinel ignored")
	ErrUnknownSubscriber  = errors.New("cellcore: untie/unnotify of unknown token")
	ErrCacheInconsistency = errors.New("cellcore: cache accounting invariant violated")
)
