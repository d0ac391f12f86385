package assets

import (
	"image"
	"image/color"
)

const (
	placeholderW = 96
	placeholderH = 48
)

// Placeholder builds the stand-in sprite drawn for unresolvable refs: a gray
// box with a darker 1px border, 96x48.
func Placeholder(ref string) *Sprite {
	img := image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH))
	fill := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	border := color.RGBA{R: 64, G: 64, B: 64, A: 255}

	for y := 0; y < placeholderH; y++ {
		for x := 0; x < placeholderW; x++ {
			c := fill
			if x == 0 || y == 0 || x == placeholderW-1 || y == placeholderH-1 {
				c = border
			}
			img.SetRGBA(x, y, c)
		}
	}
	return &Sprite{Ref: ref, Img: img, W: placeholderW, H: placeholderH}
}
