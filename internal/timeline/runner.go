package timeline

import (
	"sync"
	"time"
)

// Runner drives interactive playback: a single goroutine owning a
// time.Ticker that calls the tick callback at a fixed interval until
// stopped. The callback receives the wall-clock interval in seconds and is
// responsible for its own locking; the runner itself holds no scene state.
//
// Start and Stop are safe for concurrent use. Callers that take a lock
// inside the tick callback must not hold it across Stop, since Stop waits
// for the tick goroutine to exit.
type Runner struct {
	interval time.Duration
	tick     func(dt float64)

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// NewRunner creates a runner ticking at the given rate in Hz (floored at 1).
func NewRunner(rateHz int, tick func(dt float64)) *Runner {
	if rateHz < 1 {
		rateHz = 1
	}
	return &Runner{
		interval: time.Second / time.Duration(rateHz),
		tick:     tick,
	}
}

// Start launches the tick loop. Starting a running runner is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quit != nil {
		return
	}
	r.quit = make(chan struct{})
	r.done = make(chan struct{})

	go func(quit, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		dt := r.interval.Seconds()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				r.tick(dt)
			}
		}
	}(r.quit, r.done)
}

// Stop cancels the tick loop and waits for the goroutine to exit, so no tick
// callback runs after Stop returns. Stopping a stopped runner is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quit == nil {
		return
	}
	close(r.quit)
	<-r.done
	r.quit = nil
	r.done = nil
}
