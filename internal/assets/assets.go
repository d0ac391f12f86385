package assets

import (
	"errors"
	"image"
	"image/color"
)

// ErrUnknownRef means a sprite ref could not be resolved. Callers that draw
// must fall back to Placeholder rather than fail: a missing asset never
// breaks composing or export.
var ErrUnknownRef = errors.New("assets: unknown sprite ref")

// Sprite is a resolved raster asset with known pixel dimensions.
type Sprite struct {
	Ref  string
	Img  image.Image
	W, H int
}

// Library resolves sprite refs to raster images. Implementations cache:
// dimension queries happen once per composed frame.
type Library interface {
	Resolve(ref string) (*Sprite, error)
}

// Table is a fixed in-memory library, used by tests and the demo generator.
type Table map[string]*Sprite

var _ Library = Table(nil)

func (t Table) Resolve(ref string) (*Sprite, error) {
	if s, ok := t[ref]; ok {
		return s, nil
	}
	return nil, ErrUnknownRef
}

// Solid creates a single-color sprite of the given size, handy for building
// Table fixtures.
func Solid(ref string, w, h int, c color.RGBA) *Sprite {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return &Sprite{Ref: ref, Img: img, W: w, H: h}
}

// Measure returns the pixel dimensions for ref, substituting the placeholder
// size when the ref cannot be resolved.
func Measure(lib Library, ref string) (w, h int) {
	s, err := lib.Resolve(ref)
	if err != nil {
		s = Placeholder(ref)
	}
	return s.W, s.H
}

// ResolveOrPlaceholder returns the sprite for ref, or the placeholder sprite
// when resolution fails.
func ResolveOrPlaceholder(lib Library, ref string) *Sprite {
	s, err := lib.Resolve(ref)
	if err != nil {
		return Placeholder(ref)
	}
	return s
}
