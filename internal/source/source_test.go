package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 0x12, G: 0x6c, B: 0xfc, A: 0xff})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

type funcLoader struct {
	name string
	fn   func(ctx context.Context, cache *Cache) error
}

func (l funcLoader) Name() string                                 { return l.name }
func (l funcLoader) Load(ctx context.Context, cache *Cache) error { return l.fn(ctx, cache) }

func TestGateLoadsEverything(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 3)
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	loaders, err := ImageAssets(dir)
	require.NoError(t, err)
	require.Len(t, loaders, 2)
	assert.Equal(t, "a.png", loaders[0].Name())

	var ready atomic.Int32
	loaders = append(loaders, DocumentReady{Ready: func(context.Context) error {
		ready.Add(1)
		return nil
	}})

	g := NewGate(nil, loaders...)
	require.NoError(t, g.Wait(context.Background()))
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(1), ready.Load(), "loaders run once")

	img, ok := g.Cache.Get("b.png")
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, 2, g.Cache.Len())
}

func TestGateFirstErrorCancelsRest(t *testing.T) {
	broken := errors.New("broken")
	var cancelled atomic.Bool

	g := NewGate(nil,
		funcLoader{"fails", func(context.Context, *Cache) error { return broken }},
		funcLoader{"waits", func(ctx context.Context, _ *Cache) error {
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		}},
	)
	err := g.Wait(context.Background())
	assert.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "fails")
	assert.True(t, cancelled.Load())
}

func TestGateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGate(nil, ImageAsset{Path: "does-not-matter.png"})
	assert.ErrorIs(t, g.Wait(ctx), context.Canceled)
}

func TestImageAssetHTTP(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "logo.png"), 8, 8)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	cache := NewCache()
	require.NoError(t, ImageAsset{Key: "logo", Path: srv.URL + "/logo.png"}.Load(context.Background(), cache))
	img, ok := cache.Get("logo")
	require.True(t, ok)
	assert.Equal(t, 8, img.Bounds().Dx())

	err := ImageAsset{Path: srv.URL + "/missing.png"}.Load(context.Background(), cache)
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

func TestImageAssetBadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))
	assert.Error(t, ImageAsset{Path: path}.Load(context.Background(), NewCache()))
}

func TestPDFAssetMissingFile(t *testing.T) {
	loaders, err := ImageAssets(filepath.Join(t.TempDir(), "cv.pdf"))
	assert.Error(t, err)
	assert.Nil(t, loaders)

	assert.Error(t, PDFAsset{Path: filepath.Join(t.TempDir(), "cv.pdf")}.Load(context.Background(), NewCache()))
}

func TestImageAssetsDirectoryIncludesPDFs(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_cv.PDF"), []byte("%PDF-1.4"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	loaders, err := ImageAssets(dir)
	require.NoError(t, err)
	require.Len(t, loaders, 2)

	pdf, ok := loaders[0].(PDFAsset)
	require.True(t, ok, "%T", loaders[0])
	assert.Equal(t, filepath.Join(dir, "a_cv.PDF"), pdf.Path)
	assert.IsType(t, ImageAsset{}, loaders[1])
}
