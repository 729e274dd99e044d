// Package mupdf renders PDF pages with MuPDF through go-fitz.
package mupdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/yourorg/pdf-service/pkg/raster"
	"github.com/yourorg/pdf-service/pkg/utils"
)

const baseDPI = 72.0

// Renderer opens documents from memory, or from a temporary file when they
// exceed the spill threshold.
type Renderer struct {
	spillThreshold int64
	tempDir        string
}

// NewRenderer creates a Renderer. A spillThreshold of zero keeps every document in memory.
func NewRenderer(spillThreshold int64, tempDir string) *Renderer {
	return &Renderer{spillThreshold: spillThreshold, tempDir: tempDir}
}

// Open implements raster.Renderer.
func (r *Renderer) Open(data []byte, fn func(doc raster.Document) error) error {
	if r.spillThreshold > 0 && int64(len(data)) > r.spillThreshold {
		return utils.WithTempFile(r.tempDir, "render-*.pdf", data, func(path string) error {
			doc, err := fitz.New(path)
			if err != nil {
				return fmt.Errorf("failed to open document for rendering: %w", err)
			}
			defer doc.Close()
			return fn(&document{doc: doc})
		})
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return fmt.Errorf("failed to open document for rendering: %w", err)
	}
	defer doc.Close()
	return fn(&document{doc: doc})
}

type document struct {
	doc *fitz.Document
}

func (d *document) NumPage() int { return d.doc.NumPage() }

func (d *document) Render(page int, zoom float64) (image.Image, error) {
	if zoom <= 0 {
		zoom = raster.NativeZoom
	}
	img, err := d.doc.ImageDPI(page, baseDPI*zoom)
	if err != nil {
		return nil, err
	}
	return img, nil
}
