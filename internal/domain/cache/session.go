package cache

import "github.com/google/uuid"

// newSessionID returns a fresh random session identifier chosen once at
// cache construction, identifying this runtime instance as a storage owner
// candidate.
func newSessionID() string {
	return uuid.New().String()[:8]
}
