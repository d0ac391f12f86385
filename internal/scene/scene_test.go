package scene

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
)

func TestIDAssignmentNoReuse(t *testing.T) {
	s := NewStore()

	r0 := s.AddRoad("road_0", 0, 0)
	r1 := s.AddRoad("road_1", 0, 420)
	if r0.ID != 0 || r1.ID != 1 {
		t.Fatalf("Expected road ids 0, 1; got %d, %d", r0.ID, r1.ID)
	}

	if err := s.RemoveRoad(r1.ID); err != nil {
		t.Fatalf("RemoveRoad failed: %v", err)
	}

	// The freed id must not be reissued
	r2 := s.AddRoad("road_2", 0, 840)
	if r2.ID != 2 {
		t.Errorf("Expected id 2 after removal, got %d", r2.ID)
	}
}

func TestLockedRoadInvariance(t *testing.T) {
	s := NewStore()
	r := s.AddRoad("road_0", 200, 0)

	if err := s.SetRoadLocked(r.ID, true); err != nil {
		t.Fatalf("SetRoadLocked failed: %v", err)
	}

	if err := s.MoveRoad(r.ID, 500, 500); !errors.Is(err, ErrLockedRoad) {
		t.Errorf("MoveRoad on locked road: got %v, want ErrLockedRoad", err)
	}
	if r.X != 200 || r.Y != 0 {
		t.Errorf("Locked road moved to (%.0f, %.0f)", r.X, r.Y)
	}

	if err := s.RemoveRoad(r.ID); !errors.Is(err, ErrLockedRoad) {
		t.Errorf("RemoveRoad on locked road: got %v, want ErrLockedRoad", err)
	}
	if len(s.Roads()) != 1 {
		t.Errorf("Locked road was removed from store")
	}

	// Unlocking restores mutability
	if err := s.SetRoadLocked(r.ID, false); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := s.MoveRoad(r.ID, 500, 500); err != nil {
		t.Errorf("MoveRoad after unlock failed: %v", err)
	}
}

func TestAppendWaypointValidation(t *testing.T) {
	s := NewStore()
	v := s.AddVehicle("red", "", 0.5)

	good := trajectory.Waypoint{X: 10, Y: 20, Arrival: 0, Pause: 0}
	if err := s.AppendWaypoint(v.ID, good); err != nil {
		t.Fatalf("Valid waypoint rejected: %v", err)
	}

	bad := []trajectory.Waypoint{
		{X: 0, Y: 0, Arrival: -1, Pause: 0},
		{X: 0, Y: 0, Arrival: 0, Pause: -0.5},
		{X: 0, Y: 0, Arrival: math.NaN(), Pause: 0},
		{X: 0, Y: 0, Arrival: math.Inf(1), Pause: 0},
		{X: math.NaN(), Y: 0, Arrival: 1, Pause: 0},
	}
	for _, wp := range bad {
		if err := s.AppendWaypoint(v.ID, wp); !errors.Is(err, ErrInvalidWaypoint) {
			t.Errorf("Waypoint %+v: got %v, want ErrInvalidWaypoint", wp, err)
		}
	}

	// Rejection leaves the trajectory unchanged
	if len(v.Waypoints) != 1 {
		t.Errorf("Expected 1 waypoint after rejections, got %d", len(v.Waypoints))
	}

	// Arrival earlier than the previous waypoint breaks ordering
	if err := s.AppendWaypoint(v.ID, trajectory.Waypoint{Arrival: 5}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	out := trajectory.Waypoint{X: 1, Y: 1, Arrival: 2, Pause: 0}
	if err := s.AppendWaypoint(v.ID, out); !errors.Is(err, ErrInvalidWaypoint) {
		t.Errorf("Out-of-order arrival: got %v, want ErrInvalidWaypoint", err)
	}
}

func TestClearTrajectoryKeepsFirst(t *testing.T) {
	s := NewStore()
	v := s.AddVehicle("blue", "", 0.5)
	for i := 0; i < 3; i++ {
		wp := trajectory.Waypoint{X: float64(i * 100), Arrival: float64(i)}
		if err := s.AppendWaypoint(v.ID, wp); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if err := s.ClearTrajectory(v.ID); err != nil {
		t.Fatalf("ClearTrajectory failed: %v", err)
	}
	if len(v.Waypoints) != 1 || v.Waypoints[0].X != 0 {
		t.Errorf("Expected only the first waypoint to survive, got %+v", v.Waypoints)
	}
}

func TestShiftScene(t *testing.T) {
	s := NewStore()
	r := s.AddRoad("road_0", 200, 0)
	s.SetRoadLocked(r.ID, true)
	v := s.AddVehicle("red", "", 0.5)
	s.AppendWaypoint(v.ID, trajectory.Waypoint{X: 10, Y: 20, Arrival: 0})
	c := s.AddCamera("camera", 300, 100, 1.0)
	l := s.AddLabel("title", 400, 50, 16, "white")

	s.ShiftScene(25, -10)

	if r.X != 225 || r.Y != -10 {
		t.Errorf("Locked road not shifted: (%.0f, %.0f)", r.X, r.Y)
	}
	if v.Waypoints[0].X != 35 || v.Waypoints[0].Y != 10 {
		t.Errorf("Waypoint not shifted: %+v", v.Waypoints[0])
	}
	if c.X != 325 || c.Y != 90 {
		t.Errorf("Camera not shifted: (%.0f, %.0f)", c.X, c.Y)
	}
	if l.X != 425 || l.Y != 40 {
		t.Errorf("Label not shifted: (%.0f, %.0f)", l.X, l.Y)
	}
}

func TestVehicleDefaults(t *testing.T) {
	s := NewStore()
	v := s.AddVehicle("police", "", 0)
	if v.Sprite != "police_vehicle" {
		t.Errorf("Default sprite ref: got %q, want police_vehicle", v.Sprite)
	}
	if v.Scale != 0.5 {
		t.Errorf("Default scale: got %f, want 0.5", v.Scale)
	}
	if v.Animated() {
		t.Error("Vehicle with no waypoints reported animated")
	}

	// Unplaced vehicles compose at a slot derived from the id
	x, y := v.PositionAt(0)
	if x != 100 || y != 150 {
		t.Errorf("Default placement: got (%.0f, %.0f), want (100, 150)", x, y)
	}
}

func TestMaxTime(t *testing.T) {
	s := NewStore()
	if got := s.MaxTime(); got != 1.0 {
		t.Errorf("Empty store MaxTime = %f, want 1.0 floor", got)
	}

	v := s.AddVehicle("red", "", 0.5)
	s.AppendWaypoint(v.ID, trajectory.Waypoint{Arrival: 0})
	s.AppendWaypoint(v.ID, trajectory.Waypoint{X: 100, Arrival: 4, Pause: 1.5})
	if got := s.MaxTime(); got != 5.5 {
		t.Errorf("MaxTime = %f, want 5.5", got)
	}

	// A static vehicle with a huge arrival does not count
	w := s.AddVehicle("blue", "", 0.5)
	s.AppendWaypoint(w.ID, trajectory.Waypoint{Arrival: 100})
	if got := s.MaxTime(); got != 5.5 {
		t.Errorf("MaxTime with static vehicle = %f, want 5.5", got)
	}
}

func TestRebuildSeedsCounters(t *testing.T) {
	roads := []*Road{{ID: 3, Sprite: "road_0"}}
	vehicles := []*Vehicle{{ID: 7, Name: "red", Scale: 0.5}}
	s := Rebuild(roads, vehicles, nil, nil)

	if r := s.AddRoad("road_1", 0, 0); r.ID != 4 {
		t.Errorf("Road counter after rebuild: got id %d, want 4", r.ID)
	}
	if v := s.AddVehicle("blue", "", 0.5); v.ID != 8 {
		t.Errorf("Vehicle counter after rebuild: got id %d, want 8", v.ID)
	}
	if c := s.AddCamera("camera", 0, 0, 1); c.ID != 0 {
		t.Errorf("Empty collection counter: got id %d, want 0", c.ID)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"white", color.RGBA{255, 255, 255, 255}},
		{"#ffffff", color.RGBA{255, 255, 255, 255}},
		{"#F00", color.RGBA{255, 0, 0, 255}},
		{"#1e1e1e", color.RGBA{30, 30, 30, 255}},
		{"Tomato", color.RGBA{255, 99, 71, 255}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "#12345", "#gggggg", "nosuchcolor"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded, want error", bad)
		}
	}
}
