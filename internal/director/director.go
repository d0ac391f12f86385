// Package director authors demo scenarios: a stacked strip of road lanes
// with one vehicle per lane running a seeded waypoint schedule. It exists so
// the CLI can produce a meaningful project without a GUI editor, and gives
// tests a realistic fixture.
package director

import (
	"fmt"
	"math/rand"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/config"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/trajectory"
)

// Vehicle palette, cycled per lane.
var demoVehicles = []string{"red", "blue", "green", "yellow", "police", "taxi"}

const roadSprite = "road_0"

// Vehicle speed range in canvas units per second.
const (
	minSpeed = 120.0
	speedVar = 120.0
)

// BuildDemo generates a lanes-deep demo scenario. Road tiles stack
// vertically from the configured margins; a camera watches mid-span; each
// lane gets a vehicle that enters at a staggered time, pauses briefly at the
// camera, and continues to the far end. The same seed always yields the
// same store.
func BuildDemo(lib assets.Library, cfg *config.Config, lanes int, seed int64) *scene.Store {
	if lanes < 1 {
		lanes = 1
	}

	roadW, roadH := assets.Measure(lib, roadSprite)
	store := scene.NewStore()
	rng := rand.New(rand.NewSource(seed))

	for i := 0; i < lanes; i++ {
		r := store.AddRoad(roadSprite, cfg.LeftMargin, cfg.TopMargin+float64(i*roadH))
		if i == 0 {
			// The base tile anchors the layout
			store.SetRoadLocked(r.ID, true)
		}
	}

	camX := cfg.LeftMargin + float64(roadW)/2
	store.AddCamera("camera", camX, cfg.TopMargin+float64(lanes*roadH)/2, 1.0)

	store.AddLabel(fmt.Sprintf("%d-lane demo", lanes), cfg.LeftMargin+200, cfg.TopMargin+30, 16, "white")

	startX := cfg.LeftMargin + 60
	endX := cfg.LeftMargin + float64(roadW) - 60

	for i := 0; i < lanes; i++ {
		name := demoVehicles[i%len(demoVehicles)]
		laneY := cfg.TopMargin + (float64(i)+0.5)*float64(roadH)

		v := store.AddVehicle(name, "", 0.5)

		speed := minSpeed + rng.Float64()*speedVar
		stagger := rng.Float64() * 2.0
		pause := 0.5 + rng.Float64()*1.5

		arriveCam := stagger + (camX-startX)/speed
		arriveEnd := arriveCam + pause + (endX-camX)/speed

		store.AppendWaypoint(v.ID, trajectory.Waypoint{X: startX, Y: laneY, Arrival: stagger})
		store.AppendWaypoint(v.ID, trajectory.Waypoint{X: camX, Y: laneY, Arrival: arriveCam, Pause: pause})
		store.AppendWaypoint(v.ID, trajectory.Waypoint{X: endX, Y: laneY, Arrival: arriveEnd})
	}

	return store
}
