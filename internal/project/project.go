// Package project converts an entity store to and from the persisted JSON
// project document. The document layout matches the files written by the
// earlier editors, which is why load also accepts their legacy field
// spellings (text_labels, font_size, pause_duration). Unknown fields are
// ignored for forward compatibility.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
)

// ErrMalformed means the document is missing or carries invalid required
// fields. Loading fails atomically: no store is returned and the caller's
// current store is untouched.
var ErrMalformed = errors.New("project: malformed document")

// Default sprite refs for documents written by editors that predate sprite
// keys.
const (
	defaultRoadSprite   = "road_0"
	defaultCameraSprite = "camera"
)

type document struct {
	Roads      []roadDoc    `json:"roads"`
	Vehicles   []vehicleDoc `json:"vehicles"`
	Cameras    []cameraDoc  `json:"cameras"`
	TextLabels []labelDoc   `json:"textLabels"`

	// Legacy spelling, load only
	TextLabelsLegacy []labelDoc `json:"text_labels,omitempty"`
}

type roadDoc struct {
	ID     int64   `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Locked bool    `json:"locked"`
	Sprite string  `json:"sprite,omitempty"`
}

type vehicleDoc struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Scale      *float64      `json:"scale,omitempty"`
	Sprite     string        `json:"sprite,omitempty"`
	Trajectory []waypointDoc `json:"trajectory"`
}

type waypointDoc struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Time  float64  `json:"time"`
	Pause *float64 `json:"pause,omitempty"`

	// Legacy spelling, load only
	PauseLegacy *float64 `json:"pause_duration,omitempty"`
}

type cameraDoc struct {
	ID     int64    `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Scale  *float64 `json:"scale,omitempty"`
	Sprite string   `json:"sprite,omitempty"`
}

type labelDoc struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize uint32  `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"`

	// Legacy spelling, load only
	FontSizeLegacy uint32 `json:"font_size,omitempty"`
}

// Save writes the store as an indented JSON document.
func Save(w io.Writer, store *scene.Store) error {
	doc := document{
		Roads:      []roadDoc{},
		Vehicles:   []vehicleDoc{},
		Cameras:    []cameraDoc{},
		TextLabels: []labelDoc{},
	}

	for _, r := range store.Roads() {
		doc.Roads = append(doc.Roads, roadDoc{
			ID: int64(r.ID), X: r.X, Y: r.Y, Locked: r.Locked, Sprite: r.Sprite,
		})
	}
	for _, v := range store.Vehicles() {
		scale := v.Scale
		wps := make([]waypointDoc, 0, len(v.Waypoints))
		for _, wp := range v.Waypoints {
			pause := wp.Pause
			wps = append(wps, waypointDoc{X: wp.X, Y: wp.Y, Time: wp.Arrival, Pause: &pause})
		}
		doc.Vehicles = append(doc.Vehicles, vehicleDoc{
			ID: int64(v.ID), Name: v.Name, Scale: &scale, Sprite: v.Sprite, Trajectory: wps,
		})
	}
	for _, c := range store.Cameras() {
		scale := c.Scale
		doc.Cameras = append(doc.Cameras, cameraDoc{
			ID: int64(c.ID), X: c.X, Y: c.Y, Scale: &scale, Sprite: c.Sprite,
		})
	}
	for _, l := range store.Labels() {
		doc.TextLabels = append(doc.TextLabels, labelDoc{
			Text: l.Text, X: l.X, Y: l.Y, FontSize: l.FontSize, Color: l.Color,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}
	return nil
}

// Load decodes and validates a project document into a fresh store. The id
// counters of the new store are seeded past the loaded ids, so entities
// created afterwards never collide.
func Load(r io.Reader) (*scene.Store, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	labels := doc.TextLabels
	if len(labels) == 0 {
		labels = doc.TextLabelsLegacy
	}

	var roads []*scene.Road
	for i, rd := range doc.Roads {
		if err := checkID(rd.ID); err != nil {
			return nil, fmt.Errorf("%w: roads[%d]: %v", ErrMalformed, i, err)
		}
		if err := checkFinite(rd.X, rd.Y); err != nil {
			return nil, fmt.Errorf("%w: roads[%d]: %v", ErrMalformed, i, err)
		}
		sprite := rd.Sprite
		if sprite == "" {
			sprite = defaultRoadSprite
		}
		roads = append(roads, &scene.Road{
			ID: uint32(rd.ID), Sprite: sprite, X: rd.X, Y: rd.Y, Locked: rd.Locked,
		})
	}

	var vehicles []*scene.Vehicle
	for i, vd := range doc.Vehicles {
		if err := checkID(vd.ID); err != nil {
			return nil, fmt.Errorf("%w: vehicles[%d]: %v", ErrMalformed, i, err)
		}
		scale := 1.0
		if vd.Scale != nil {
			scale = *vd.Scale
		}
		if scale <= 0 || !isFinite(scale) {
			return nil, fmt.Errorf("%w: vehicles[%d]: bad scale %v", ErrMalformed, i, scale)
		}
		sprite := vd.Sprite
		if sprite == "" {
			sprite = vd.Name + "_vehicle"
		}

		var wps []trajectory.Waypoint
		prev := math.Inf(-1)
		for j, wd := range vd.Trajectory {
			pause := 0.0
			if wd.Pause != nil {
				pause = *wd.Pause
			} else if wd.PauseLegacy != nil {
				pause = *wd.PauseLegacy
			}
			if err := checkFinite(wd.X, wd.Y); err != nil {
				return nil, fmt.Errorf("%w: vehicles[%d].trajectory[%d]: %v", ErrMalformed, i, j, err)
			}
			if wd.Time < 0 || !isFinite(wd.Time) || pause < 0 || !isFinite(pause) {
				return nil, fmt.Errorf("%w: vehicles[%d].trajectory[%d]: bad timing", ErrMalformed, i, j)
			}
			if wd.Time < prev {
				return nil, fmt.Errorf("%w: vehicles[%d].trajectory[%d]: arrival times not sorted", ErrMalformed, i, j)
			}
			prev = wd.Time
			wps = append(wps, trajectory.Waypoint{X: wd.X, Y: wd.Y, Arrival: wd.Time, Pause: pause})
		}

		vehicles = append(vehicles, &scene.Vehicle{
			ID: uint32(vd.ID), Sprite: sprite, Name: vd.Name, Scale: scale, Waypoints: wps,
		})
	}

	var cameras []*scene.Camera
	for i, cd := range doc.Cameras {
		if err := checkID(cd.ID); err != nil {
			return nil, fmt.Errorf("%w: cameras[%d]: %v", ErrMalformed, i, err)
		}
		if err := checkFinite(cd.X, cd.Y); err != nil {
			return nil, fmt.Errorf("%w: cameras[%d]: %v", ErrMalformed, i, err)
		}
		scale := 1.0
		if cd.Scale != nil {
			scale = *cd.Scale
		}
		if scale <= 0 || !isFinite(scale) {
			return nil, fmt.Errorf("%w: cameras[%d]: bad scale %v", ErrMalformed, i, scale)
		}
		sprite := cd.Sprite
		if sprite == "" {
			sprite = defaultCameraSprite
		}
		cameras = append(cameras, &scene.Camera{
			ID: uint32(cd.ID), Sprite: sprite, X: cd.X, Y: cd.Y, Scale: scale,
		})
	}

	var labelsOut []*scene.TextLabel
	for i, ld := range labels {
		if err := checkFinite(ld.X, ld.Y); err != nil {
			return nil, fmt.Errorf("%w: textLabels[%d]: %v", ErrMalformed, i, err)
		}
		fontSize := ld.FontSize
		if fontSize == 0 {
			fontSize = ld.FontSizeLegacy
		}
		if fontSize == 0 {
			fontSize = 16
		}
		colorName := ld.Color
		if colorName == "" {
			colorName = "white"
		}
		if _, err := scene.ParseColor(colorName); err != nil {
			return nil, fmt.Errorf("%w: textLabels[%d]: %v", ErrMalformed, i, err)
		}
		labelsOut = append(labelsOut, &scene.TextLabel{
			ID: uint32(i), Text: ld.Text, X: ld.X, Y: ld.Y, FontSize: fontSize, Color: colorName,
		})
	}

	return scene.Rebuild(roads, vehicles, cameras, labelsOut), nil
}

// SaveFile writes the store to path.
func SaveFile(path string, store *scene.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := Save(f, store); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a store from path.
func LoadFile(path string) (*scene.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func checkID(id int64) error {
	if id < 0 || id > math.MaxUint32 {
		return fmt.Errorf("bad id %d", id)
	}
	return nil
}

func checkFinite(vals ...float64) error {
	for _, v := range vals {
		if !isFinite(v) {
			return fmt.Errorf("non-finite coordinate")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
