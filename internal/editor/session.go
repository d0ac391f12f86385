// Package editor ties the entity store, the animation clock and the exporter
// into one interactive session. Every mutation and every composition passes
// through the session's mutex, so the store is never edited while a frame is
// mid-composition, and the export loop sees a frozen store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/compositor"
	"github.com/caiusy/traffic-scenario-builder/internal/config"
	"github.com/caiusy/traffic-scenario-builder/internal/export"
	"github.com/caiusy/traffic-scenario-builder/internal/project"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/timeline"
	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
	"github.com/caiusy/traffic-scenario-builder/internal/video"
)

var (
	// ErrModeConflict is returned when an interaction is illegal in the
	// current mode, e.g. placing a waypoint during playback.
	ErrModeConflict = errors.New("editor: mode conflict")
	// ErrBusy is returned when an edit arrives while an export is running.
	ErrBusy = errors.New("editor: export in progress")
)

// Mode is the current interaction mode. Keeping it a closed set (instead of
// loose boolean flags) makes illegal combinations unrepresentable.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlacingWaypoint
	ModeScrubbing
)

// Session owns one open project: the store, the clock driving it, and the
// viewer preferences. All methods are safe for concurrent use; internally, a
// single mutex serializes them.
type Session struct {
	cfg *config.Config
	lib assets.Library
	log zerolog.Logger

	mu        sync.Mutex
	store     *scene.Store
	clock     *timeline.Clock
	mode      Mode
	placingID uint32
	overlays  bool // trajectory overlay preference
	exporting bool

	runner   *timeline.Runner
	exporter *export.Exporter
}

// NewSession wraps store into an interactive session.
func NewSession(cfg *config.Config, lib assets.Library, store *scene.Store, log zerolog.Logger) *Session {
	s := &Session{
		cfg:      cfg,
		lib:      lib,
		log:      log.With().Str("component", "session").Logger(),
		store:    store,
		clock:    timeline.NewClock(store.MaxTime()),
		overlays: true,
		exporter: export.New(lib, log),
	}
	s.clock.Speed = cfg.Speed
	s.clock.Loop = cfg.Loop
	s.runner = timeline.NewRunner(cfg.TickRate, s.tick)
	return s
}

// tick is the runner callback driving interactive playback.
func (s *Session) tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.SetMaxTime(s.store.MaxTime())
	s.clock.Advance(dt)
}

// Play starts interactive playback. Trajectory overlays are suppressed for
// the duration regardless of the stored preference.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.mode == ModePlacingWaypoint {
		s.mu.Unlock()
		return fmt.Errorf("cannot play while placing waypoints: %w", ErrModeConflict)
	}
	alreadyPlaying := s.clock.State() == timeline.Playing
	s.clock.SetMaxTime(s.store.MaxTime())
	s.clock.Play()
	s.mu.Unlock()

	if !alreadyPlaying {
		s.runner.Start()
	}
	return nil
}

// Stop halts playback, keeping the current time.
func (s *Session) Stop() {
	s.mu.Lock()
	s.clock.Stop()
	s.mu.Unlock()

	// Outside the lock: the runner goroutine may be blocked on it
	s.runner.Stop()
}

// Scrub sets the timeline position from a normalized [0, 1] slider value.
// Scrubbing is transient: the play state is untouched.
func (s *Session) Scrub(f float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return ErrBusy
	}
	prev := s.mode
	if prev == ModePlacingWaypoint {
		return fmt.Errorf("cannot scrub while placing waypoints: %w", ErrModeConflict)
	}
	s.mode = ModeScrubbing
	s.clock.SetMaxTime(s.store.MaxTime())
	s.clock.Scrub(f)
	s.mode = prev
	return nil
}

// Time returns the current scenario time.
func (s *Session) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Time()
}

// Playing reports whether interactive playback is running.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.State() == timeline.Playing
}

// CurrentMode returns the current interaction mode.
func (s *Session) CurrentMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetShowTrajectories stores the overlay preference. It takes effect on the
// next Compose; during playback overlays stay hidden regardless.
func (s *Session) SetShowTrajectories(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays = show
}

// ShowTrajectories returns the stored overlay preference.
func (s *Session) ShowTrajectories() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays
}

// BeginWaypointPlacement enters waypoint-placement mode for a vehicle.
// Rejected during playback and when another placement is active.
func (s *Session) BeginWaypointPlacement(vehicleID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return ErrBusy
	}
	if s.clock.State() == timeline.Playing {
		return fmt.Errorf("cannot place waypoints during playback: %w", ErrModeConflict)
	}
	if s.mode != ModeIdle {
		return fmt.Errorf("already in mode %d: %w", s.mode, ErrModeConflict)
	}

	found := false
	for _, v := range s.store.Vehicles() {
		if v.ID == vehicleID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("vehicle %d: %w", vehicleID, scene.ErrNotFound)
	}

	s.mode = ModePlacingWaypoint
	s.placingID = vehicleID
	return nil
}

// PlaceWaypoint appends a waypoint at (x, y) for the vehicle under
// placement. The arrival time defaults to one second after the previous
// waypoint's arrival (or zero for the first), matching the authoring dialog.
func (s *Session) PlaceWaypoint(x, y, pause float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModePlacingWaypoint {
		return fmt.Errorf("not placing waypoints: %w", ErrModeConflict)
	}

	arrival := 0.0
	for _, v := range s.store.Vehicles() {
		if v.ID == s.placingID && len(v.Waypoints) > 0 {
			arrival = v.Waypoints[len(v.Waypoints)-1].Arrival + 1.0
		}
	}
	return s.store.AppendWaypoint(s.placingID, trajectory.Waypoint{X: x, Y: y, Arrival: arrival, Pause: pause})
}

// EndWaypointPlacement leaves placement mode.
func (s *Session) EndWaypointPlacement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModePlacingWaypoint {
		s.mode = ModeIdle
	}
}

// Edit runs a mutation against the store under the session lock. Rejected
// while an export is in progress.
func (s *Session) Edit(fn func(*scene.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return ErrBusy
	}
	return fn(s.store)
}

// Compose produces the draw-list and bounds for the current time. Overlays
// follow the stored preference except during playback, where they are
// forced off.
func (s *Session) Compose() ([]compositor.Item, compositor.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.overlays && s.clock.State() != timeline.Playing
	opts := compositor.Options{ShowTrajectories: show, Margin: s.cfg.BoundsMargin}
	return compositor.Compose(s.store, s.lib, s.clock.Time(), opts)
}

// ComposeAt samples the scene at an explicit time with overlays hidden,
// as the exporter and the frame snapshot command see it.
func (s *Session) ComposeAt(t float64) ([]compositor.Item, compositor.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := compositor.Options{ShowTrajectories: false, Margin: s.cfg.BoundsMargin}
	return compositor.Compose(s.store, s.lib, t, opts)
}

// SaveProject serializes the store.
func (s *Session) SaveProject(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project.Save(w, s.store)
}

// LoadProject replaces the store with a deserialized document. The swap is
// atomic: on any error the current store stays in place.
func (s *Session) LoadProject(r io.Reader) error {
	loaded, err := project.Load(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return ErrBusy
	}
	s.store = loaded
	s.clock = timeline.NewClock(loaded.MaxTime())
	s.clock.Speed = s.cfg.Speed
	s.clock.Loop = s.cfg.Loop
	s.mode = ModeIdle
	s.log.Info().
		Int("roads", len(loaded.Roads())).
		Int("vehicles", len(loaded.Vehicles())).
		Msg("project loaded")
	return nil
}

// Store returns the live store for read-only inspection. Mutations must go
// through Edit.
func (s *Session) Store() *scene.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Export runs a blocking video export. Playback is stopped first; edits are
// rejected with ErrBusy until the export finishes. On failure the timeline
// position is restored to its pre-export value; on success it resets to 0.
// The overlay preference is untouched either way (export composes with
// overlays off without modifying it).
func (s *Session) Export(ctx context.Context, sink video.FrameSink, params export.Params) error {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.mode == ModePlacingWaypoint {
		s.mu.Unlock()
		return fmt.Errorf("cannot export while placing waypoints: %w", ErrModeConflict)
	}
	s.exporting = true
	prevTime := s.clock.Time()
	wasPlaying := s.clock.State() == timeline.Playing
	s.clock.Stop()
	store := s.store
	if params.Margin == 0 {
		params.Margin = s.cfg.BoundsMargin
	}
	s.mu.Unlock()

	if wasPlaying {
		s.runner.Stop()
	}

	err := s.exporter.Run(ctx, store, sink, params)

	s.mu.Lock()
	s.exporting = false
	if err != nil {
		s.clock.Seek(prevTime)
	} else {
		s.clock.Reset()
	}
	s.mu.Unlock()
	return err
}
