package reactive

import (
	"time"

	"github.com/webitel/valuegraph/internal/domain/cellcore"
)

// Clock abstracts wall-clock ticking so interval cells are testable without
// real timers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) (c <-chan time.Time, stop func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

// RealClock is the production Clock, backed by time.NewTicker.
var RealClock Clock = realClock{}

// NewInterval returns a producer cell that, while in use, emits the current
// wall-clock instant at period cadence, and releases the timer on finalise.
func NewInterval(clock Clock, period time.Duration, opts ...cellcore.Option) *cellcore.Cell {
	if clock == nil {
		clock = RealClock
	}

	var cell *cellcore.Cell
	var stop func()
	stopCh := make(chan struct{})

	onUse := func() {
		ticks, stopTicker := clock.NewTicker(period)
		stop = stopTicker
		localStop := stopCh
		go func() {
			cell.Changed(clock.Now())
			for {
				select {
				case <-localStop:
					return
				case t, ok := <-ticks:
					if !ok {
						return
					}
					cell.Changed(t)
				}
			}
		}()
	}
	onDrop := func() {
		close(stopCh)
		stopCh = make(chan struct{})
		if stop != nil {
			stop()
		}
	}

	allOpts := append([]cellcore.Option{}, opts...)
	allOpts = append(allOpts, cellcore.WithLifecycle(onUse, onDrop))
	cell = cellcore.New(allOpts...)
	return cell
}
