package assets

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestTableResolve(t *testing.T) {
	lib := Table{"road_0": Solid("road_0", 2000, 420, color.RGBA{60, 60, 60, 255})}

	s, err := lib.Resolve("road_0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.W != 2000 || s.H != 420 {
		t.Errorf("Sprite size: got %dx%d, want 2000x420", s.W, s.H)
	}

	if _, err := lib.Resolve("missing"); !errors.Is(err, ErrUnknownRef) {
		t.Errorf("Unknown ref: got %v, want ErrUnknownRef", err)
	}
}

func TestMeasureFallsBackToPlaceholder(t *testing.T) {
	lib := Table{}
	w, h := Measure(lib, "nope")
	if w != placeholderW || h != placeholderH {
		t.Errorf("Placeholder dims: got %dx%d, want %dx%d", w, h, placeholderW, placeholderH)
	}

	s := ResolveOrPlaceholder(lib, "nope")
	if s.Ref != "nope" || s.Img == nil {
		t.Errorf("ResolveOrPlaceholder returned %+v", s)
	}
}

func TestDirResolvePNG(t *testing.T) {
	dir := t.TempDir()
	img := Solid("x", 10, 20, color.RGBA{255, 0, 0, 255}).Img

	f, err := os.Create(filepath.Join(dir, "red_vehicle.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	lib := NewDir(dir, 150)
	s, err := lib.Resolve("red_vehicle")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.W != 10 || s.H != 20 {
		t.Errorf("Decoded size: got %dx%d, want 10x20", s.W, s.H)
	}

	// Second resolve hits the cache and returns the same sprite
	again, err := lib.Resolve("red_vehicle")
	if err != nil {
		t.Fatalf("Cached resolve failed: %v", err)
	}
	if again != s {
		t.Error("Expected cached sprite instance")
	}
}

func TestDirUnknownRef(t *testing.T) {
	lib := NewDir(t.TempDir(), 150)
	if _, err := lib.Resolve("ghost"); !errors.Is(err, ErrUnknownRef) {
		t.Errorf("Missing file: got %v, want ErrUnknownRef", err)
	}
	if _, err := lib.Resolve(""); !errors.Is(err, ErrUnknownRef) {
		t.Errorf("Empty ref: got %v, want ErrUnknownRef", err)
	}
}
