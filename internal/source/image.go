package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageExtensions are the formats ImageAsset can decode.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}

var ErrHTTPStatus = errors.New("unexpected http status")

// ImageAsset decodes one image from a local path or an http(s) URL.
type ImageAsset struct {
	Key    string // cache key; defaults to the base name of Path
	Path   string
	Client *http.Client
}

func (a ImageAsset) Name() string {
	if a.Key != "" {
		return a.Key
	}
	return filepath.Base(a.Path)
}

func (a ImageAsset) Load(ctx context.Context, cache *Cache) error {
	rc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	cache.Put(a.Name(), img)
	return nil
}

func (a ImageAsset) open(ctx context.Context) (io.ReadCloser, error) {
	if !isURL(a.Path) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.Open(a.Path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Path, nil)
	if err != nil {
		return nil, err
	}
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return resp.Body, nil
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// ImageAssets expands path into loaders: a directory yields one loader per
// image or PDF file in name order, anything else a single loader.
func ImageAssets(path string) ([]Loader, error) {
	if isURL(path) {
		return []Loader{ImageAsset{Path: path}}, nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []Loader{fileAsset(path)}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && (isImage(entry.Name()) || isPDF(entry.Name())) {
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)

	loaders := make([]Loader, 0, len(paths))
	for _, p := range paths {
		loaders = append(loaders, fileAsset(p))
	}
	return loaders, nil
}

func fileAsset(path string) Loader {
	if isPDF(path) {
		return PDFAsset{Path: path}
	}
	return ImageAsset{Path: path}
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
