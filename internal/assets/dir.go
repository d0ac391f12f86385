package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Dir resolves sprite refs against a directory on disk. A ref "road_0" maps
// to the first of road_0.png, road_0.jpg, road_0.jpeg, road_0.pdf found;
// PDF sheets (road plans are commonly delivered that way) are rasterized at
// the configured DPI, first page only. Resolved sprites are cached, so
// dimension lookups during composing never re-decode.
type Dir struct {
	root string
	dpi  int

	mu    sync.Mutex
	cache map[string]*Sprite
}

var _ Library = (*Dir)(nil)

// NewDir creates a directory-backed library. dpi applies to PDF rasterizing
// and defaults to 150 when non-positive.
func NewDir(root string, dpi int) *Dir {
	if dpi <= 0 {
		dpi = 150
	}
	return &Dir{root: root, dpi: dpi, cache: make(map[string]*Sprite)}
}

func (d *Dir) Resolve(ref string) (*Sprite, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty ref: %w", ErrUnknownRef)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.cache[ref]; ok {
		return s, nil
	}

	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		path := filepath.Join(d.root, ref+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s, err := d.decodeImage(ref, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", ref, err, ErrUnknownRef)
		}
		d.cache[ref] = s
		return s, nil
	}

	pdfPath := filepath.Join(d.root, ref+".pdf")
	if _, err := os.Stat(pdfPath); err == nil {
		s, err := d.renderPDF(ref, pdfPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", ref, err, ErrUnknownRef)
		}
		d.cache[ref] = s
		return s, nil
	}

	return nil, fmt.Errorf("%s: %w", ref, ErrUnknownRef)
}

func (d *Dir) decodeImage(ref, path string) (*Sprite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Sprite{Ref: ref, Img: img, W: b.Dx(), H: b.Dy()}, nil
}

func (d *Dir) renderPDF(ref, path string) (*Sprite, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	img, err := doc.ImageDPI(0, float64(d.dpi))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Sprite{Ref: ref, Img: img, W: b.Dx(), H: b.Dy()}, nil
}
