package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor resolves a label color string: "#rgb" or "#rrggbb" hex, or an
// SVG 1.1 color name ("white", "tomato", ...). The result is fully opaque.
func ParseColor(s string) (color.RGBA, error) {
	name := strings.TrimSpace(strings.ToLower(s))
	if name == "" {
		return color.RGBA{}, fmt.Errorf("empty color")
	}

	if strings.HasPrefix(name, "#") {
		return parseHex(name[1:])
	}

	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

func parseHex(hex string) (color.RGBA, error) {
	switch len(hex) {
	case 3:
		// #rgb expands each nibble
		var c [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(hex[i:i+1], 16, 8)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("bad hex color #%s", hex)
			}
			c[i] = uint8(v*16 + v)
		}
		return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
	case 6:
		var c [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("bad hex color #%s", hex)
			}
			c[i] = uint8(v)
		}
		return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
	default:
		return color.RGBA{}, fmt.Errorf("bad hex color #%s", hex)
	}
}
