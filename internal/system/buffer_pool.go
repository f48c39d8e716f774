package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool recycles *image.RGBA frames by size so the preview does not
// allocate a new framebuffer for every rendered frame.
type ImagePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool

	allocated atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage returns a w x h frame from the shared pool. Its contents are
// undefined.
func GetImage(w, h int) *image.RGBA {
	return globalPool.Get(w, h)
}

// PutImage hands a frame back to the shared pool.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) Get(w, h int) *image.RGBA {
	key := image.Pt(w, h)
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[key]
		if !ok {
			pool = &sync.Pool{
				New: func() any {
					p.allocated.Add(1)
					return image.NewRGBA(image.Rect(0, 0, w, h))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put ignores frames of a size never handed out and sub-images.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect.Size()]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}

// Allocated counts frames created because the pool was empty.
func (p *ImagePool) Allocated() int64 {
	return p.allocated.Load()
}
