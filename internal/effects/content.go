package effects

import (
	"errors"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/tabletintro/internal/scene"
	"github.com/ivlev/tabletintro/internal/source"
)

// DefaultContactURL is shown as a QR code when no overlay asset was loaded.
const DefaultContactURL = "https://github.com/ivlev"

var ErrNoContent = errors.New("no overlay content")

// ContactCard encodes url as a QR code in the room colors.
func ContactCard(url string, size int) (image.Image, error) {
	if url == "" {
		return nil, ErrNoContent
	}
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = scene.RoomColor
	q.BackgroundColor = color.White
	return q.Image(size), nil
}

// ContentCompositor builds the compositor for a preview: the first cached
// asset found under keys, otherwise a QR code for contactURL.
func ContentCompositor(cache *source.Cache, keys []string, contactURL string) (*Compositor, error) {
	if cache != nil {
		for _, k := range keys {
			if img, ok := cache.Get(k); ok {
				return NewCompositor(img), nil
			}
		}
	}

	card, err := ContactCard(contactURL, 256)
	if err != nil {
		return nil, err
	}
	c := NewCompositor(card)
	// keep QR modules crisp
	c.Scaler = draw.NearestNeighbor
	return c, nil
}
