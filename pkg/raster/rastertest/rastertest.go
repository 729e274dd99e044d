// Package rastertest provides a Renderer that needs no native libraries.
package rastertest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/yourorg/pdf-service/pkg/raster"
)

// Renderer produces noisy images of a fixed size for every page. The page
// count is read from the PDF itself so callers see realistic documents.
type Renderer struct {
	Width  int
	Height int
	// Err, when set, is returned by Render for every page.
	Err error
	// Opened counts calls to Open.
	Opened int
}

// New returns a Renderer that draws 60x80 point pages.
func New() *Renderer {
	return &Renderer{Width: 60, Height: 80}
}

// Open implements raster.Renderer.
func (r *Renderer) Open(data []byte, fn func(doc raster.Document) error) error {
	r.Opened++
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("failed to open document for rendering: %w", err)
	}
	return fn(&document{r: r, pages: n})
}

type document struct {
	r     *Renderer
	pages int
}

func (d *document) NumPage() int { return d.pages }

func (d *document) Render(page int, zoom float64) (image.Image, error) {
	if d.r.Err != nil {
		return nil, d.r.Err
	}
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	w := int(float64(d.r.Width) * zoom)
	h := int(float64(d.r.Height) * zoom)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(int64(page + 1)))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img, nil
}
