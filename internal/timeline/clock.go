package timeline

// State is the clock's play state.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	default:
		return "stopped"
	}
}

// Clock advances the single scalar "current time" of a scenario. It is
// driven either by periodic ticks (interactive playback) or by an explicit
// frame index (export); both paths share the same time value so the live
// view and the exporter sample identical instants.
//
// Scrubbing is a transient interaction, not a persisted state: Scrub sets
// the time directly and leaves the play state alone.
type Clock struct {
	state   State
	time    float64
	maxTime float64

	Speed float64 // playback speed multiplier
	Loop  bool    // wrap to 0 at maxTime instead of stopping
}

// NewClock creates a stopped clock spanning [0, maxTime]. maxTime is floored
// at 1.0 so slider and wrap math never divide by zero.
func NewClock(maxTime float64) *Clock {
	c := &Clock{Speed: 1.0, Loop: true}
	c.SetMaxTime(maxTime)
	return c
}

// State returns the current play state.
func (c *Clock) State() State { return c.state }

// Time returns the current scenario time in seconds. Never negative.
func (c *Clock) Time() float64 { return c.time }

// MaxTime returns the end of the scenario timeline.
func (c *Clock) MaxTime() float64 { return c.maxTime }

// SetMaxTime updates the timeline end, flooring at 1.0, and clamps the
// current time into the new range.
func (c *Clock) SetMaxTime(maxTime float64) {
	if maxTime < 1.0 {
		maxTime = 1.0
	}
	c.maxTime = maxTime
	if c.time > c.maxTime {
		c.time = c.maxTime
	}
}

// Play switches the clock to Playing. Playing again is a no-op.
func (c *Clock) Play() {
	c.state = Playing
}

// Stop halts playback, keeping the current time.
func (c *Clock) Stop() {
	c.state = Stopped
}

// Advance moves time forward by dt*Speed. Only a playing clock advances.
// Reaching maxTime wraps to 0 when looping, otherwise stops at maxTime.
func (c *Clock) Advance(dt float64) {
	if c.state != Playing {
		return
	}
	c.time += dt * c.Speed
	if c.time >= c.maxTime {
		if c.Loop {
			c.time = 0
		} else {
			c.time = c.maxTime
			c.state = Stopped
		}
	}
}

// Scrub sets the time from a normalized [0, 1] slider position. Out-of-range
// input is clamped. The play state is not affected.
func (c *Clock) Scrub(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	c.time = f * c.maxTime
}

// SetFrame positions the clock at frame i of an fps-rate export.
func (c *Clock) SetFrame(i int, fps int) {
	if fps <= 0 || i < 0 {
		return
	}
	c.time = float64(i) / float64(fps)
}

// Seek positions the clock at an absolute time, clamped to [0, maxTime].
func (c *Clock) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	if t > c.maxTime {
		t = c.maxTime
	}
	c.time = t
}

// Reset returns the time to 0 without changing the play state.
func (c *Clock) Reset() {
	c.time = 0
}
