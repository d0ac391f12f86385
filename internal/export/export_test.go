package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
)

// recordSink counts frames and can be told to fail on a given write.
type recordSink struct {
	mu      sync.Mutex
	w, h    int
	fps     int
	frames  int
	failAt  int // fail the write with this 1-based index; 0 disables
	closed  bool
	samples []color.RGBA // top-left pixel of each frame
}

func (s *recordSink) Begin(w, h, fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h, s.fps = w, h, fps
	return nil
}

func (s *recordSink) Write(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if s.failAt > 0 && s.frames >= s.failAt {
		return fmt.Errorf("disk full")
	}
	s.samples = append(s.samples, frame.RGBAAt(0, 0))
	return nil
}

func (s *recordSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func testStore() *scene.Store {
	s := scene.NewStore()
	s.AddRoad("road_0", 0, 0)
	v := s.AddVehicle("red", "red_vehicle", 0.5)
	s.AppendWaypoint(v.ID, trajectory.Waypoint{X: 0, Y: 0, Arrival: 0})
	s.AppendWaypoint(v.ID, trajectory.Waypoint{X: 100, Y: 0, Arrival: 2})
	return s
}

func testLib() assets.Table {
	return assets.Table{
		"road_0":      assets.Solid("road_0", 200, 42, color.RGBA{60, 60, 60, 255}),
		"red_vehicle": assets.Solid("red_vehicle", 12, 6, color.RGBA{220, 40, 40, 255}),
	}
}

func TestExportFrameCount(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{}

	err := e.Run(context.Background(), testStore(), sink, Params{FPS: 30, Duration: 2.0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sink.frames != 60 {
		t.Errorf("Frame count = %d, want 60", sink.frames)
	}
	if !sink.closed {
		t.Error("Sink was not closed")
	}
	if sink.fps != 30 {
		t.Errorf("Sink fps = %d, want 30", sink.fps)
	}
	// 200x42 road plus 100 margin on each side
	if sink.w != 400 || sink.h != 242 {
		t.Errorf("Frame size = %dx%d, want 400x242", sink.w, sink.h)
	}
}

func TestExportProgressOrder(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{}

	var seen []int
	params := Params{
		FPS: 15, Duration: 1.0,
		Progress: func(frame, total int) {
			if total != 15 {
				t.Errorf("Progress total = %d, want 15", total)
			}
			seen = append(seen, frame)
		},
	}
	if err := e.Run(context.Background(), testStore(), sink, params); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != 15 {
		t.Fatalf("Progress calls = %d, want 15", len(seen))
	}
	for i, f := range seen {
		if f != i+1 {
			t.Fatalf("Progress out of order at %d: got frame %d", i, f)
		}
	}
}

func TestExportFPSClamping(t *testing.T) {
	tests := []struct{ in, want int }{
		{5, 15}, {15, 15}, {30, 30}, {60, 60}, {120, 60},
	}
	for _, tt := range tests {
		if got := ClampFPS(tt.in); got != tt.want {
			t.Errorf("ClampFPS(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	// An over-range fps actually exports at the clamp
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{}
	if err := e.Run(context.Background(), testStore(), sink, Params{FPS: 1000, Duration: 1.0}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sink.frames != 60 {
		t.Errorf("Clamped export frames = %d, want 60", sink.frames)
	}
}

func TestExportSinkFailureAborts(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{failAt: 10}

	err := e.Run(context.Background(), testStore(), sink, Params{FPS: 30, Duration: 2.0})
	if !errors.Is(err, ErrSinkFailure) {
		t.Fatalf("Expected ErrSinkFailure, got %v", err)
	}
	if !sink.closed {
		t.Error("Sink must be closed even after a failed run")
	}
	if sink.frames >= 60 {
		t.Errorf("Export did not abort early: %d writes", sink.frames)
	}
}

func TestExportCancellation(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{}

	ctx, cancel := context.WithCancel(context.Background())
	canceled := false
	params := Params{
		FPS: 30, Duration: 100.0,
		Progress: func(frame, total int) {
			if frame >= 5 && !canceled {
				canceled = true
				cancel()
			}
		},
	}

	err := e.Run(ctx, testStore(), sink, params)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if sink.frames >= 3000 {
		t.Errorf("Cancellation did not stop the frame loop: %d frames", sink.frames)
	}
	if !sink.closed {
		t.Error("Sink must be closed after cancellation")
	}
}

func TestExportZeroDuration(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	if err := e.Run(context.Background(), testStore(), &recordSink{}, Params{FPS: 30}); err == nil {
		t.Error("Expected error for zero duration")
	}
}

func TestExportBackgroundFill(t *testing.T) {
	e := New(testLib(), zerolog.Nop())
	sink := &recordSink{}

	bg := color.RGBA{10, 20, 30, 255}
	err := e.Run(context.Background(), testStore(), sink, Params{FPS: 15, Duration: 0.5, Background: bg})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Top-left pixel lies in the margin, so it is pure background
	for i, c := range sink.samples {
		if c != bg {
			t.Fatalf("Frame %d corner = %v, want background %v", i, c, bg)
		}
	}
}
