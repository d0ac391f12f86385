package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/compositor"
)

// Rasterizer turns a compositor draw-list into pixels. It keeps two caches:
// scaled sprites keyed by (ref, drawn size), so playback does not rescale
// every frame, and font faces keyed by point size. Safe for use from a
// single rendering goroutine at a time.
type Rasterizer struct {
	lib assets.Library
	bg  color.RGBA

	mu     sync.Mutex
	scaled map[scaleKey]*image.RGBA
	faces  map[uint32]font.Face
	fnt    *opentype.Font
}

type scaleKey struct {
	ref  string
	w, h int
}

// NewRasterizer creates a rasterizer drawing onto the given background color.
func NewRasterizer(lib assets.Library, bg color.RGBA) *Rasterizer {
	return &Rasterizer{
		lib:    lib,
		bg:     bg,
		scaled: make(map[scaleKey]*image.RGBA),
		faces:  make(map[uint32]font.Face),
	}
}

// FrameSize converts compositor bounds into pixel dimensions.
func FrameSize(bounds compositor.Rect) (w, h int) {
	w = int(math.Ceil(bounds.W))
	h = int(math.Ceil(bounds.H))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Frame rasterizes the draw-list into dst, which must be sized to the
// bounds (see FrameSize). The bounds origin becomes pixel (0, 0); the frame
// is fully opaque, background-filled where nothing draws.
func (r *Rasterizer) Frame(items []compositor.Item, bounds compositor.Rect, dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: r.bg}, image.Point{}, draw.Src)

	for _, it := range items {
		switch v := it.(type) {
		case compositor.SpriteItem:
			r.drawSprite(dst, bounds, v)
		case compositor.PolylineItem:
			r.drawPolyline(dst, bounds, v)
		case compositor.DotItem:
			r.drawDot(dst, bounds, v)
		case compositor.TextItem:
			r.drawText(dst, bounds, v)
		}
	}
}

func (r *Rasterizer) drawSprite(dst *image.RGBA, bounds compositor.Rect, it compositor.SpriteItem) {
	w, h := int(math.Round(it.W)), int(math.Round(it.H))
	if w < 1 || h < 1 {
		return
	}

	img := r.scaledSprite(it.Ref, w, h)
	x := int(math.Round(it.X - bounds.X))
	y := int(math.Round(it.Y - bounds.Y))
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(dst, rect, img, image.Point{}, draw.Over)
}

// scaledSprite returns the sprite for ref resampled to w x h, caching the
// result. Unresolvable refs scale the placeholder.
func (r *Rasterizer) scaledSprite(ref string, w, h int) *image.RGBA {
	key := scaleKey{ref: ref, w: w, h: h}

	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.scaled[key]; ok {
		return img
	}

	sprite := assets.ResolveOrPlaceholder(r.lib, ref)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if sprite.W == w && sprite.H == h {
		draw.Draw(img, img.Bounds(), sprite.Img, sprite.Img.Bounds().Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(img, img.Bounds(), sprite.Img, sprite.Img.Bounds(), xdraw.Src, nil)
	}
	r.scaled[key] = img
	return img
}

// Dash pattern for trajectory overlays: 6px on, 4px off.
const (
	dashOn     = 6.0
	dashPeriod = 10.0
)

func (r *Rasterizer) drawPolyline(dst *image.RGBA, bounds compositor.Rect, it compositor.PolylineItem) {
	if len(it.Points) < 2 {
		return
	}

	dist := 0.0 // running distance keeps the dash phase across segments
	for i := 0; i < len(it.Points)-1; i++ {
		p := it.Points[i]
		q := it.Points[i+1]
		dx := q.X - p.X
		dy := q.Y - p.Y
		segLen := math.Hypot(dx, dy)
		if segLen == 0 {
			continue
		}

		steps := int(math.Ceil(segLen))
		for s := 0; s <= steps; s++ {
			d := float64(s) * segLen / float64(steps)
			if it.Dashed && math.Mod(dist+d, dashPeriod) >= dashOn {
				continue
			}
			x := p.X + dx*d/segLen - bounds.X
			y := p.Y + dy*d/segLen - bounds.Y
			plotThick(dst, x, y, it.Width, it.Color)
		}
		dist += segLen
	}
}

func (r *Rasterizer) drawDot(dst *image.RGBA, bounds compositor.Rect, it compositor.DotItem) {
	cx := it.X - bounds.X
	cy := it.Y - bounds.Y
	outer := it.Radius + 1 // 1px stroke ring

	for y := int(math.Floor(cy - outer)); y <= int(math.Ceil(cy+outer)); y++ {
		for x := int(math.Floor(cx - outer)); x <= int(math.Ceil(cx+outer)); x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			switch {
			case d <= it.Radius:
				blendPixel(dst, x, y, it.Fill)
			case d <= outer:
				blendPixel(dst, x, y, it.Stroke)
			}
		}
	}
}

func (r *Rasterizer) drawText(dst *image.RGBA, bounds compositor.Rect, it compositor.TextItem) {
	face, err := r.face(it.Size)
	if err != nil {
		return
	}

	// Top-left anchor: shift the baseline down by the face ascent
	x := it.X - bounds.X
	y := it.Y - bounds.Y
	d := font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: it.Color},
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y*64) + face.Metrics().Ascent,
		},
	}
	d.DrawString(it.Text)
}

func (r *Rasterizer) face(size uint32) (font.Face, error) {
	if size == 0 {
		size = 16
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f, nil
	}

	if r.fnt == nil {
		fnt, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, err
		}
		r.fnt = fnt
	}

	face, err := opentype.NewFace(r.fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = face
	return face, nil
}

// plotThick fills a w x w square centered on (x, y).
func plotThick(dst *image.RGBA, x, y, w float64, c color.RGBA) {
	half := w / 2
	for py := int(math.Floor(y - half)); py < int(math.Ceil(y+half)); py++ {
		for px := int(math.Floor(x - half)); px < int(math.Ceil(x+half)); px++ {
			blendPixel(dst, px, py, c)
		}
	}
}

// blendPixel performs src-over compositing of c onto dst at (x, y).
func blendPixel(dst *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}.In(dst.Rect)) {
		return
	}
	if c.A == 255 {
		dst.SetRGBA(x, y, c)
		return
	}
	base := dst.RGBAAt(x, y)
	a := uint32(c.A)
	inv := 255 - a
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(c.R)*a + uint32(base.R)*inv) / 255),
		G: uint8((uint32(c.G)*a + uint32(base.G)*inv) / 255),
		B: uint8((uint32(c.B)*a + uint32(base.B)*inv) / 255),
		A: 255,
	})
}
