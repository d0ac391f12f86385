package compositor

import (
	"image/color"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
)

// DefaultMargin is the padding added around the road extent when sizing the
// viewport and exported frames.
const DefaultMargin = 100.0

// Trajectory overlay style, matching the authoring view: dashed yellow path,
// red waypoint dots with a white ring.
var (
	overlayLineColor = color.RGBA{R: 255, G: 255, B: 0, A: 150}
	overlayDotFill   = color.RGBA{R: 255, G: 100, B: 100, A: 255}
	overlayDotStroke = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	overlayLineWidth = 2.0
	overlayDotRadius = 4.0
)

// Point is a canvas coordinate.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Expand grows the rectangle by m units on all sides.
func (r Rect) Expand(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Item is one positioned visual primitive in a draw-list. The concrete types
// are SpriteItem, PolylineItem, DotItem and TextItem.
type Item interface {
	item()
}

// SpriteItem draws a raster sprite. X, Y is the top-left draw position with
// anchoring already applied; W, H is the drawn size with scaling applied.
type SpriteItem struct {
	Ref        string
	X, Y, W, H float64
}

// PolylineItem draws a path through Points.
type PolylineItem struct {
	Points []Point
	Dashed bool
	Color  color.RGBA
	Width  float64
}

// DotItem draws a filled circle with a 1px stroke ring.
type DotItem struct {
	X, Y, Radius float64
	Fill, Stroke color.RGBA
}

// TextItem draws a text run, top-left anchored at X, Y.
type TextItem struct {
	Text  string
	X, Y  float64
	Size  uint32
	Color color.RGBA
}

func (SpriteItem) item()   {}
func (PolylineItem) item() {}
func (DotItem) item()      {}
func (TextItem) item()     {}

// Options selects optional overlay layers. Margin overrides the bounds
// padding; zero means DefaultMargin.
type Options struct {
	ShowTrajectories bool
	Margin           float64
}

// Compose turns the store at time t into an ordered draw-list plus the
// enclosing bounds. The z-order is fixed: roads, cameras, trajectory
// overlays, vehicles, labels, each layer in store order.
//
// Compose is a pure read of the store and never fails: unresolvable sprites
// compose at placeholder dimensions, unparseable label colors fall back to
// white. Bounds cover the road extent (off-screen roads included) plus the
// margin; vehicles, cameras and labels never extend the bounds.
func Compose(store *scene.Store, lib assets.Library, t float64, opts Options) ([]Item, Rect) {
	margin := opts.Margin
	if margin <= 0 {
		margin = DefaultMargin
	}

	items := make([]Item, 0, 16)

	// Layer 1: roads, top-left anchored
	var roadExtent Rect
	haveRoads := false
	for _, r := range store.Roads() {
		w, h := assets.Measure(lib, r.Sprite)
		rect := Rect{X: r.X, Y: r.Y, W: float64(w), H: float64(h)}
		if haveRoads {
			roadExtent = roadExtent.Union(rect)
		} else {
			roadExtent = rect
			haveRoads = true
		}
		items = append(items, SpriteItem{Ref: r.Sprite, X: rect.X, Y: rect.Y, W: rect.W, H: rect.H})
	}

	bounds := Rect{}.Expand(margin)
	if haveRoads {
		bounds = roadExtent.Expand(margin)
	}

	// Layer 2: cameras, center-anchored
	for _, c := range store.Cameras() {
		w, h := assets.Measure(lib, c.Sprite)
		sw := float64(w) * c.Scale
		sh := float64(h) * c.Scale
		items = append(items, SpriteItem{Ref: c.Sprite, X: c.X - sw/2, Y: c.Y - sh/2, W: sw, H: sh})
	}

	// Layer 3: trajectory overlays, authoring view only
	if opts.ShowTrajectories {
		for _, v := range store.Vehicles() {
			if !v.Animated() {
				continue
			}
			pts := make([]Point, len(v.Waypoints))
			for i, wp := range v.Waypoints {
				pts[i] = Point{X: wp.X, Y: wp.Y}
			}
			items = append(items, PolylineItem{
				Points: pts,
				Dashed: true,
				Color:  overlayLineColor,
				Width:  overlayLineWidth,
			})
			for _, p := range pts {
				items = append(items, DotItem{
					X: p.X, Y: p.Y,
					Radius: overlayDotRadius,
					Fill:   overlayDotFill,
					Stroke: overlayDotStroke,
				})
			}
		}
	}

	// Layer 4: vehicles, center-anchored, sampled at t
	for _, v := range store.Vehicles() {
		x, y := v.PositionAt(t)
		w, h := assets.Measure(lib, v.Sprite)
		sw := float64(w) * v.Scale
		sh := float64(h) * v.Scale
		items = append(items, SpriteItem{Ref: v.Sprite, X: x - sw/2, Y: y - sh/2, W: sw, H: sh})
	}

	// Layer 5: labels, top-left anchored
	for _, l := range store.Labels() {
		c, err := scene.ParseColor(l.Color)
		if err != nil {
			c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
		}
		items = append(items, TextItem{Text: l.Text, X: l.X, Y: l.Y, Size: l.FontSize, Color: c})
	}

	return items, bounds
}
