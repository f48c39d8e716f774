package effects

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/ivlev/tabletintro/internal/projector"
	"github.com/ivlev/tabletintro/internal/source"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

var red = color.RGBA{R: 0xff, A: 0xff}

func TestContainRect(t *testing.T) {
	tests := []struct {
		name string
		src  image.Point
		box  image.Rectangle
		want image.Rectangle
	}{
		{"wide into square", image.Pt(200, 100), image.Rect(0, 0, 100, 100), image.Rect(0, 25, 100, 75)},
		{"tall into square", image.Pt(100, 200), image.Rect(10, 10, 110, 110), image.Rect(35, 10, 85, 110)},
		{"same aspect", image.Pt(4, 3), image.Rect(0, 0, 8, 6), image.Rect(0, 0, 8, 6)},
		{"empty src", image.Pt(0, 3), image.Rect(0, 0, 8, 6), image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainRect(tt.src, tt.box))
		})
	}
}

func TestCompositorProjected(t *testing.T) {
	dst := solid(200, 100, color.RGBA{A: 0xff})
	c := NewCompositor(solid(10, 10, red))
	c.Padding = 0

	f := Frame{
		Geometry: projector.OverlayGeometry{Mode: projector.ModeProjected, Left: 100, Top: 50, Width: 40, Height: 20},
		Viewport: projector.Rect{Width: 200, Height: 100},
		Scale:    1,
	}

	c.Apply(dst, f)
	assert.Equal(t, color.RGBA{A: 0xff}, dst.RGBAAt(100, 50), "hidden before reveal")

	f.Revealed = true
	c.Apply(dst, f)
	assert.Equal(t, red, dst.RGBAAt(100, 50))
	// letterbox bars keep the background
	assert.Equal(t, c.Background, dst.RGBAAt(82, 50))
	assert.Equal(t, color.RGBA{A: 0xff}, dst.RGBAAt(10, 10))
}

func TestCompositorFullscreenScaled(t *testing.T) {
	dst := solid(200, 100, color.RGBA{A: 0xff})
	c := NewCompositor(nil)
	c.Apply(dst, Frame{
		Revealed: true,
		Geometry: projector.Fullscreen(),
		Viewport: projector.Rect{Width: 100, Height: 50},
		Scale:    2,
	})
	assert.Equal(t, c.Background, dst.RGBAAt(0, 0))
	assert.Equal(t, c.Background, dst.RGBAAt(199, 99))
}

func TestContactCard(t *testing.T) {
	img, err := ContactCard("https://example.com/contact", 128)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = ContactCard("", 128)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestContentCompositor(t *testing.T) {
	cache := source.NewCache()
	cache.Put("cv.pdf", solid(3, 3, red))

	c, err := ContentCompositor(cache, []string{"missing", "cv.pdf"}, "")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), c.Content.Bounds())

	c, err = ContentCompositor(nil, nil, DefaultContactURL)
	require.NoError(t, err)
	assert.Equal(t, draw.NearestNeighbor, c.Scaler)

	_, err = ContentCompositor(cache, []string{"missing"}, "")
	assert.ErrorIs(t, err, ErrNoContent)
}
