package timeline

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestClockAdvanceOnlyWhilePlaying(t *testing.T) {
	c := NewClock(10)

	c.Advance(1.0)
	if c.Time() != 0 {
		t.Errorf("Stopped clock advanced to %f", c.Time())
	}

	c.Play()
	c.Advance(1.0)
	if c.Time() != 1.0 {
		t.Errorf("After 1s tick: time = %f, want 1.0", c.Time())
	}

	c.Stop()
	c.Advance(1.0)
	if c.Time() != 1.0 {
		t.Errorf("Advance after stop moved time to %f", c.Time())
	}
}

func TestClockSpeedMultiplier(t *testing.T) {
	c := NewClock(10)
	c.Speed = 2.0
	c.Play()
	c.Advance(0.5)
	if c.Time() != 1.0 {
		t.Errorf("Speed 2.0 over 0.5s: time = %f, want 1.0", c.Time())
	}
}

func TestClockLoopWrap(t *testing.T) {
	c := NewClock(2)
	c.Loop = true
	c.Play()
	c.Advance(2.5)
	if c.Time() != 0 {
		t.Errorf("Looping clock at maxTime: time = %f, want 0", c.Time())
	}
	if c.State() != Playing {
		t.Errorf("Looping clock stopped at wrap")
	}
}

func TestClockStopAtMaxWithoutLoop(t *testing.T) {
	c := NewClock(2)
	c.Loop = false
	c.Play()
	c.Advance(5.0)
	if c.Time() != 2.0 {
		t.Errorf("Non-looping clock: time = %f, want 2.0", c.Time())
	}
	if c.State() != Stopped {
		t.Errorf("Non-looping clock still playing past maxTime")
	}
}

func TestClockMaxTimeFloor(t *testing.T) {
	c := NewClock(0)
	if c.MaxTime() != 1.0 {
		t.Errorf("MaxTime floor: got %f, want 1.0", c.MaxTime())
	}
	c.SetMaxTime(0.25)
	if c.MaxTime() != 1.0 {
		t.Errorf("SetMaxTime floor: got %f, want 1.0", c.MaxTime())
	}
}

func TestClockScrubClamps(t *testing.T) {
	c := NewClock(8)
	c.Play()

	c.Scrub(0.5)
	if c.Time() != 4.0 {
		t.Errorf("Scrub(0.5): time = %f, want 4.0", c.Time())
	}
	if c.State() != Playing {
		t.Errorf("Scrub changed play state")
	}

	c.Scrub(-2)
	if c.Time() != 0 {
		t.Errorf("Scrub(-2): time = %f, want 0", c.Time())
	}
	c.Scrub(7)
	if c.Time() != 8.0 {
		t.Errorf("Scrub(7): time = %f, want 8.0", c.Time())
	}
}

func TestClockSetFrame(t *testing.T) {
	c := NewClock(10)
	c.SetFrame(45, 30)
	if math.Abs(c.Time()-1.5) > 1e-12 {
		t.Errorf("SetFrame(45, 30): time = %f, want 1.5", c.Time())
	}
	c.SetFrame(-1, 30)
	if c.Time() != 1.5 {
		t.Errorf("Negative frame moved time to %f", c.Time())
	}
}

func TestRunnerTicksAndStops(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	r := NewRunner(100, func(dt float64) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	r.Start()
	time.Sleep(120 * time.Millisecond)
	r.Stop()

	mu.Lock()
	got := ticks
	mu.Unlock()
	if got == 0 {
		t.Fatal("Runner never ticked")
	}

	// No tick may land after Stop returns
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	after := ticks
	mu.Unlock()
	if after != got {
		t.Errorf("Ticks continued after Stop: %d -> %d", got, after)
	}
}

func TestRunnerConcurrentStop(t *testing.T) {
	r := NewRunner(100, func(dt float64) {})

	for i := 0; i < 50; i++ {
		r.Start()

		// Both stoppers release at once; exactly one may close the quit
		// channel, the other must see a stopped runner
		gate := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				r.Stop()
			}()
		}
		close(gate)
		wg.Wait()
	}
}

func TestRunnerStartStopRace(t *testing.T) {
	r := NewRunner(100, func(dt float64) {})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if (n+j)%2 == 0 {
					r.Start()
				} else {
					r.Stop()
				}
			}
		}(i)
	}
	wg.Wait()
	r.Stop()
}

func TestRunnerRestart(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	r := NewRunner(200, func(dt float64) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	r.Start()
	r.Start() // no-op
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	r.Stop() // no-op

	mu.Lock()
	first := ticks
	mu.Unlock()

	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	mu.Lock()
	second := ticks
	mu.Unlock()
	if second <= first {
		t.Errorf("Runner did not tick after restart: %d -> %d", first, second)
	}
}
