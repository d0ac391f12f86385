package trajectory

// Waypoint represents a timed position a vehicle must occupy starting at
// Arrival and hold until Arrival+Pause.
type Waypoint struct {
	X       float64 // Canvas X position
	Y       float64 // Canvas Y position
	Arrival float64 // Time offset from scenario start (seconds)
	Pause   float64 // Hold duration at this point (seconds)
}

// EndTime returns the time at which the trajectory comes to rest: the last
// waypoint's arrival plus its pause. Empty trajectories end at 0.
func EndTime(waypoints []Waypoint) float64 {
	if len(waypoints) == 0 {
		return 0
	}
	last := waypoints[len(waypoints)-1]
	return last.Arrival + last.Pause
}

// PositionAt samples a trajectory at time t by walking its waypoint pairs.
// Waypoints must be sorted by non-decreasing Arrival. The function is pure:
// the same (waypoints, t) always yields the same position, so interactive
// scrubbing (arbitrary t) and frame export (monotonic t) agree exactly.
//
// Segment windows are closed-start/open-end: a pause holds over
// [Arrival, Arrival+Pause), travel over [Arrival+Pause, next.Arrival).
func PositionAt(waypoints []Waypoint, t float64) (x, y float64) {
	if len(waypoints) == 0 {
		return 0, 0
	}

	// Single waypoint means static placement
	if len(waypoints) == 1 {
		return waypoints[0].X, waypoints[0].Y
	}

	// Before the first waypoint, clamp to its position
	if t <= waypoints[0].Arrival {
		return waypoints[0].X, waypoints[0].Y
	}

	for i := 0; i < len(waypoints)-1; i++ {
		p, q := waypoints[i], waypoints[i+1]
		if t >= q.Arrival {
			continue
		}

		depart := p.Arrival + p.Pause
		if t < depart {
			// Holding at p
			return p.X, p.Y
		}

		span := q.Arrival - depart
		if span <= 0 {
			// Degenerate travel window: instantaneous jump at q.Arrival
			return p.X, p.Y
		}

		ratio := (t - depart) / span
		return lerp(p.X, q.X, ratio), lerp(p.Y, q.Y, ratio)
	}

	// Past the last waypoint, clamp to its position (no extrapolation)
	last := waypoints[len(waypoints)-1]
	return last.X, last.Y
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
