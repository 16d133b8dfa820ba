package cache

import (
	"sync"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// registration is the per-UUID bookkeeping the cache maintains: a cold or
// active primary cell, the local mirror cells interested in the UUID, and
// the owned/deferred flags governing ensure-active.
type registration struct {
	mu sync.Mutex

	uuid string
	ci   cellcore.CacheIdentity

	primary  *cellcore.Cell
	users    []*cellcore.Cell
	owned    bool
	deferred bool
}

func newRegistration(uuid string, ci cellcore.CacheIdentity) *registration {
	return &registration{uuid: uuid, ci: ci}
}

func (r *registration) addUser(c *cellcore.Cell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, c)
}

// removeUser removes c from users (and, if c was the primary, clears it),
// reporting whether the registration is now fully empty (no primary, no
// users, not deferred) and therefore eligible for removal.
func (r *registration) removeUser(c *cellcore.Cell) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.primary == c {
		r.primary = nil
		r.owned = false
	} else {
		for i, u := range r.users {
			if u == c {
				r.users = append(r.users[:i], r.users[i+1:]...)
				break
			}
		}
	}
	return r.primary == nil && len(r.users) == 0 && !r.deferred
}

func (r *registration) mirror(v any) {
	r.mu.Lock()
	targets := append([]*cellcore.Cell(nil), r.users...)
	primary := r.primary
	r.mu.Unlock()

	for _, u := range targets {
		u.Changed(v)
	}
	if primary != nil {
		primary.Changed(v)
	}
}

func (r *registration) resetAll() {
	r.mu.Lock()
	targets := append([]*cellcore.Cell(nil), r.users...)
	primary := r.primary
	r.mu.Unlock()

	for _, u := range targets {
		u.Reset()
	}
	if primary != nil {
		primary.Reset()
	}
}

// anyReadyValue returns the value and readiness of the primary, or failing
// that, the first user — used to mirror a freshly-joined cell immediately.
func (r *registration) anyReadyValue() (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.primary != nil {
		if v, ok := r.primary.Value(); ok {
			return v, true
		}
	}
	for _, u := range r.users {
		if v, ok := u.Value(); ok {
			return v, true
		}
	}
	return nil, false
}
