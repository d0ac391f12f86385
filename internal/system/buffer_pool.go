package system

import (
	"image"
	"sync"
)

type frameSize struct {
	w, h int
}

// FramePool reuses *image.RGBA frame buffers between export frames, keeping
// the per-frame allocation (frames are many megabytes at road-plan sizes)
// off the garbage collector. Buffers are origin-anchored and pooled per
// geometry.
type FramePool struct {
	mu    sync.Mutex
	pools map[frameSize]*sync.Pool
}

var framePool = &FramePool{
	pools: make(map[frameSize]*sync.Pool),
}

// GetFrame returns a w x h frame buffer from the pool, allocating when none
// of that geometry is cached.
func GetFrame(w, h int) *image.RGBA {
	return framePool.Get(w, h)
}

// PutFrame returns a frame buffer to the pool for reuse.
func PutFrame(img *image.RGBA) {
	framePool.Put(img)
}

func (p *FramePool) Get(w, h int) *image.RGBA {
	size := frameSize{w: w, h: h}

	p.mu.Lock()
	pool, ok := p.pools[size]
	if !ok {
		pool = &sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(image.Rect(0, 0, size.w, size.h))
			},
		}
		p.pools[size] = pool
	}
	p.mu.Unlock()

	return pool.Get().(*image.RGBA)
}

func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 {
		// Sub-views are not pooled
		return
	}

	p.mu.Lock()
	pool, ok := p.pools[frameSize{w: b.Dx(), h: b.Dy()}]
	p.mu.Unlock()

	if ok {
		pool.Put(img)
	}
}
