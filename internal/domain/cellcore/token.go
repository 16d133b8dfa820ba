package cellcore

import "sync/atomic"

// Token is an opaque registration handle returned by Tie/Notify/Then.
// It replaces the source implementation's dynamic subscriber ids with a
// typed, monotonically increasing value.
type Token uint64

var tokenSeq uint64

func nextToken() Token {
	return Token(atomic.AddUint64(&tokenSeq, 1))
}
