package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// DefaultPDFDPI renders document thumbnails at a screen-friendly size.
const DefaultPDFDPI = 72

// PDFAsset renders one page of a PDF, such as a résumé, into the cache.
type PDFAsset struct {
	Key  string
	Path string
	Page int
	DPI  int
}

func (a PDFAsset) Name() string {
	if a.Key != "" {
		return a.Key
	}
	return filepath.Base(a.Path)
}

func (a PDFAsset) Load(ctx context.Context, cache *Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := fitz.New(a.Path)
	if err != nil {
		return err
	}
	defer doc.Close()

	if a.Page < 0 || a.Page >= doc.NumPage() {
		return fmt.Errorf("page %d out of range (%d pages)", a.Page, doc.NumPage())
	}
	dpi := a.DPI
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}
	img, err := doc.ImageDPI(a.Page, float64(dpi))
	if err != nil {
		return fmt.Errorf("render page %d: %w", a.Page, err)
	}
	cache.Put(a.Name(), img)
	return nil
}
