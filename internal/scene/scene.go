package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
)

var (
	// ErrNotFound is returned when an entity id does not exist in the store.
	ErrNotFound = errors.New("scene: entity not found")
	// ErrLockedRoad is returned when a move or remove targets a locked road.
	ErrLockedRoad = errors.New("scene: road is locked")
	// ErrInvalidWaypoint is returned when a waypoint edit carries non-finite
	// or negative timing, or would break the arrival-time ordering.
	ErrInvalidWaypoint = errors.New("scene: invalid waypoint")
)

// Road is a background tile, top-left anchored. Locked roads refuse position
// changes and removal.
type Road struct {
	ID     uint32
	Sprite string
	X, Y   float64
	Locked bool
}

// Vehicle is a movable sprite with an authored trajectory, center-anchored.
// A vehicle with fewer than two waypoints is static; with two or more it is
// animated.
type Vehicle struct {
	ID        uint32
	Sprite    string
	Name      string
	Scale     float64
	Waypoints []trajectory.Waypoint
}

// Animated reports whether the vehicle has enough waypoints to move.
func (v *Vehicle) Animated() bool {
	return len(v.Waypoints) >= 2
}

// PositionAt samples the vehicle position at time t. Vehicles without any
// waypoints sit at a default slot derived from their id, so freshly added
// vehicles do not stack on top of each other.
func (v *Vehicle) PositionAt(t float64) (x, y float64) {
	if len(v.Waypoints) == 0 {
		return 100 + 50*float64(v.ID), 150
	}
	return trajectory.PositionAt(v.Waypoints, t)
}

// Camera is a static positioned sprite, center-anchored.
type Camera struct {
	ID     uint32
	Sprite string
	X, Y   float64
	Scale  float64
}

// TextLabel is a static annotation, top-left anchored. Color is a hex string
// or an SVG color name; see ParseColor.
type TextLabel struct {
	ID       uint32
	Text     string
	X, Y     float64
	FontSize uint32
	Color    string
}

// Store owns all placed entities. Each collection keeps insertion order and
// assigns ids from its own monotonic counter; ids are never reused after
// removal, so references serialized during a session stay stable.
//
// The store is not safe for concurrent use: all mutation happens on a single
// control flow (the editor session serializes access).
type Store struct {
	roads    []*Road
	vehicles []*Vehicle
	cameras  []*Camera
	labels   []*TextLabel

	nextRoadID    uint32
	nextVehicleID uint32
	nextCameraID  uint32
	nextLabelID   uint32
}

// NewStore creates an empty store with all id counters at zero.
func NewStore() *Store {
	return &Store{}
}

// Roads returns the road collection in insertion order. The slice is shared;
// callers must not mutate it.
func (s *Store) Roads() []*Road { return s.roads }

// Vehicles returns the vehicle collection in insertion order.
func (s *Store) Vehicles() []*Vehicle { return s.vehicles }

// Cameras returns the camera collection in insertion order.
func (s *Store) Cameras() []*Camera { return s.cameras }

// Labels returns the label collection in insertion order.
func (s *Store) Labels() []*TextLabel { return s.labels }

// MaxTime returns the largest trajectory end time across animated vehicles,
// floored at 1.0 so playback math never divides by zero.
func (s *Store) MaxTime() float64 {
	maxTime := 1.0
	for _, v := range s.vehicles {
		if !v.Animated() {
			continue
		}
		if end := trajectory.EndTime(v.Waypoints); end > maxTime {
			maxTime = end
		}
	}
	return maxTime
}

func (s *Store) road(id uint32) (*Road, error) {
	for _, r := range s.roads {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("road %d: %w", id, ErrNotFound)
}

func (s *Store) vehicle(id uint32) (*Vehicle, error) {
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
}

func (s *Store) camera(id uint32) (*Camera, error) {
	for _, c := range s.cameras {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("camera %d: %w", id, ErrNotFound)
}

func (s *Store) label(id uint32) (*TextLabel, error) {
	for _, l := range s.labels {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("label %d: %w", id, ErrNotFound)
}

// AddRoad places a road tile at (x, y) and returns it.
func (s *Store) AddRoad(sprite string, x, y float64) *Road {
	r := &Road{ID: s.nextRoadID, Sprite: sprite, X: x, Y: y}
	s.nextRoadID++
	s.roads = append(s.roads, r)
	return r
}

// MoveRoad repositions a road. Locked roads refuse the move.
func (s *Store) MoveRoad(id uint32, x, y float64) error {
	r, err := s.road(id)
	if err != nil {
		return err
	}
	if r.Locked {
		return fmt.Errorf("road %d: %w", id, ErrLockedRoad)
	}
	r.X, r.Y = x, y
	return nil
}

// SetRoadLocked toggles the lock flag on a road.
func (s *Store) SetRoadLocked(id uint32, locked bool) error {
	r, err := s.road(id)
	if err != nil {
		return err
	}
	r.Locked = locked
	return nil
}

// RemoveRoad deletes a road from the store. Locked roads refuse removal.
func (s *Store) RemoveRoad(id uint32) error {
	for i, r := range s.roads {
		if r.ID != id {
			continue
		}
		if r.Locked {
			return fmt.Errorf("road %d: %w", id, ErrLockedRoad)
		}
		s.roads = append(s.roads[:i], s.roads[i+1:]...)
		return nil
	}
	return fmt.Errorf("road %d: %w", id, ErrNotFound)
}

// AddVehicle creates a vehicle with an empty trajectory. The sprite ref
// defaults to "<name>_vehicle" when empty.
func (s *Store) AddVehicle(name, sprite string, scale float64) *Vehicle {
	if sprite == "" {
		sprite = name + "_vehicle"
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 0.5
	}
	v := &Vehicle{ID: s.nextVehicleID, Sprite: sprite, Name: name, Scale: scale}
	s.nextVehicleID++
	s.vehicles = append(s.vehicles, v)
	return v
}

// SetVehicleScale changes a vehicle's uniform sprite scale.
func (s *Store) SetVehicleScale(id uint32, scale float64) error {
	v, err := s.vehicle(id)
	if err != nil {
		return err
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("scene: vehicle %d: invalid scale %v", id, scale)
	}
	v.Scale = scale
	return nil
}

// RenameVehicle changes a vehicle's display name.
func (s *Store) RenameVehicle(id uint32, name string) error {
	v, err := s.vehicle(id)
	if err != nil {
		return err
	}
	v.Name = name
	return nil
}

// RemoveVehicle deletes a vehicle and its trajectory.
func (s *Store) RemoveVehicle(id uint32) error {
	for i, v := range s.vehicles {
		if v.ID == id {
			s.vehicles = append(s.vehicles[:i], s.vehicles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
}

// AppendWaypoint adds a waypoint to the end of a vehicle's trajectory. The
// waypoint must carry finite coordinates, non-negative finite timing, and an
// arrival no earlier than the current last waypoint's arrival. Validation
// failures leave the trajectory unchanged.
func (s *Store) AppendWaypoint(id uint32, wp trajectory.Waypoint) error {
	v, err := s.vehicle(id)
	if err != nil {
		return err
	}
	if err := validateWaypoint(wp); err != nil {
		return fmt.Errorf("vehicle %d: %w", id, err)
	}
	if n := len(v.Waypoints); n > 0 && wp.Arrival < v.Waypoints[n-1].Arrival {
		return fmt.Errorf("vehicle %d: arrival %.3f before previous %.3f: %w",
			id, wp.Arrival, v.Waypoints[n-1].Arrival, ErrInvalidWaypoint)
	}
	v.Waypoints = append(v.Waypoints, wp)
	return nil
}

// UpdateWaypoint replaces the waypoint at index, keeping arrival-time order
// with its neighbors.
func (s *Store) UpdateWaypoint(id uint32, index int, wp trajectory.Waypoint) error {
	v, err := s.vehicle(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(v.Waypoints) {
		return fmt.Errorf("vehicle %d: waypoint index %d: %w", id, index, ErrNotFound)
	}
	if err := validateWaypoint(wp); err != nil {
		return fmt.Errorf("vehicle %d: %w", id, err)
	}
	if index > 0 && wp.Arrival < v.Waypoints[index-1].Arrival {
		return fmt.Errorf("vehicle %d: arrival out of order: %w", id, ErrInvalidWaypoint)
	}
	if index < len(v.Waypoints)-1 && wp.Arrival > v.Waypoints[index+1].Arrival {
		return fmt.Errorf("vehicle %d: arrival out of order: %w", id, ErrInvalidWaypoint)
	}
	v.Waypoints[index] = wp
	return nil
}

// ClearTrajectory drops all waypoints after the first, turning an animated
// vehicle back into a static one placed at its starting point.
func (s *Store) ClearTrajectory(id uint32) error {
	v, err := s.vehicle(id)
	if err != nil {
		return err
	}
	if len(v.Waypoints) > 1 {
		v.Waypoints = v.Waypoints[:1]
	}
	return nil
}

// AddCamera places a camera at (x, y).
func (s *Store) AddCamera(sprite string, x, y, scale float64) *Camera {
	if sprite == "" {
		sprite = "camera"
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1.0
	}
	c := &Camera{ID: s.nextCameraID, Sprite: sprite, X: x, Y: y, Scale: scale}
	s.nextCameraID++
	s.cameras = append(s.cameras, c)
	return c
}

// AddCameraDefault places a camera at the default slot for its id.
func (s *Store) AddCameraDefault(sprite string) *Camera {
	x := 200 + 50*float64(s.nextCameraID)
	return s.AddCamera(sprite, x, 100, 1.0)
}

// MoveCamera repositions a camera.
func (s *Store) MoveCamera(id uint32, x, y float64) error {
	c, err := s.camera(id)
	if err != nil {
		return err
	}
	c.X, c.Y = x, y
	return nil
}

// SetCameraScale changes a camera's sprite scale.
func (s *Store) SetCameraScale(id uint32, scale float64) error {
	c, err := s.camera(id)
	if err != nil {
		return err
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("scene: camera %d: invalid scale %v", id, scale)
	}
	c.Scale = scale
	return nil
}

// RemoveCamera deletes a camera.
func (s *Store) RemoveCamera(id uint32) error {
	for i, c := range s.cameras {
		if c.ID == id {
			s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("camera %d: %w", id, ErrNotFound)
}

// AddLabel places a text annotation. Empty color defaults to white, zero
// font size to 16.
func (s *Store) AddLabel(text string, x, y float64, fontSize uint32, color string) *TextLabel {
	if fontSize == 0 {
		fontSize = 16
	}
	if color == "" {
		color = "white"
	}
	l := &TextLabel{ID: s.nextLabelID, Text: text, X: x, Y: y, FontSize: fontSize, Color: color}
	s.nextLabelID++
	s.labels = append(s.labels, l)
	return l
}

// MoveLabel repositions a label.
func (s *Store) MoveLabel(id uint32, x, y float64) error {
	l, err := s.label(id)
	if err != nil {
		return err
	}
	l.X, l.Y = x, y
	return nil
}

// SetLabelText changes a label's text.
func (s *Store) SetLabelText(id uint32, text string) error {
	l, err := s.label(id)
	if err != nil {
		return err
	}
	l.Text = text
	return nil
}

// SetLabelStyle changes a label's font size and color. The color must parse.
func (s *Store) SetLabelStyle(id uint32, fontSize uint32, colorName string) error {
	l, err := s.label(id)
	if err != nil {
		return err
	}
	if _, err := ParseColor(colorName); err != nil {
		return err
	}
	if fontSize == 0 {
		fontSize = 16
	}
	l.FontSize = fontSize
	l.Color = colorName
	return nil
}

// RemoveLabel deletes a label.
func (s *Store) RemoveLabel(id uint32) error {
	for i, l := range s.labels {
		if l.ID == id {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("label %d: %w", id, ErrNotFound)
}

// ShiftScene translates every entity by (dx, dy), waypoints included. Locked
// roads move too: a shift reframes the whole canvas, it is not a per-entity
// edit.
func (s *Store) ShiftScene(dx, dy float64) {
	for _, r := range s.roads {
		r.X += dx
		r.Y += dy
	}
	for _, v := range s.vehicles {
		for i := range v.Waypoints {
			v.Waypoints[i].X += dx
			v.Waypoints[i].Y += dy
		}
	}
	for _, c := range s.cameras {
		c.X += dx
		c.Y += dy
	}
	for _, l := range s.labels {
		l.X += dx
		l.Y += dy
	}
}

func validateWaypoint(wp trajectory.Waypoint) error {
	for _, f := range []float64{wp.X, wp.Y} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite coordinate: %w", ErrInvalidWaypoint)
		}
	}
	for _, f := range []float64{wp.Arrival, wp.Pause} {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return fmt.Errorf("bad timing %v: %w", f, ErrInvalidWaypoint)
		}
	}
	return nil
}

// Rebuild constructs a store from already-identified entities, as loaded from
// a project document. Id counters are seeded to max(id)+1 per collection so
// entities created afterwards never collide with loaded ids.
func Rebuild(roads []*Road, vehicles []*Vehicle, cameras []*Camera, labels []*TextLabel) *Store {
	s := &Store{roads: roads, vehicles: vehicles, cameras: cameras, labels: labels}
	for _, r := range roads {
		if r.ID >= s.nextRoadID {
			s.nextRoadID = r.ID + 1
		}
	}
	for _, v := range vehicles {
		if v.ID >= s.nextVehicleID {
			s.nextVehicleID = v.ID + 1
		}
	}
	for _, c := range cameras {
		if c.ID >= s.nextCameraID {
			s.nextCameraID = c.ID + 1
		}
	}
	for _, l := range labels {
		if l.ID >= s.nextLabelID {
			s.nextLabelID = l.ID + 1
		}
	}
	return s
}
