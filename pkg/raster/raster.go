// Package raster renders PDF pages to images and re-encodes them as JPEG.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

const (
	// NativeZoom renders one pixel per PDF point (72 dpi).
	NativeZoom = 1.0
	// OCRZoom is the zoom used before handing a page to the recognizer.
	OCRZoom = 2.0
)

// Document is an opened PDF that can render its pages.
type Document interface {
	NumPage() int
	// Render rasterizes the 0-based page at zoom, where 1.0 is 72 dpi.
	Render(page int, zoom float64) (image.Image, error)
}

// Renderer opens PDF bytes for rendering for the duration of fn.
// Resources held for the document are released when fn returns.
type Renderer interface {
	Open(data []byte, fn func(doc Document) error) error
}

// ToJPEG encodes img as a baseline JPEG. quality is clamped to [1,100].
func ToJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ToPNG encodes img losslessly. Recognizers get PNG so compression artifacts
// do not reach the OCR engine.
func ToPNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderedPage is a rendered page with its JPEG encoding.
type RenderedPage struct {
	Index  int
	Width  int
	Height int
	JPEG   []byte
}

// RenderAllJPEG renders every page of data at zoom and encodes each as JPEG.
func RenderAllJPEG(r Renderer, data []byte, zoom float64, quality int) ([]RenderedPage, error) {
	var pages []RenderedPage
	err := r.Open(data, func(doc Document) error {
		pages = make([]RenderedPage, 0, doc.NumPage())
		for i := 0; i < doc.NumPage(); i++ {
			img, err := doc.Render(i, zoom)
			if err != nil {
				return fmt.Errorf("failed to render page %d: %w", i+1, err)
			}
			encoded, err := ToJPEG(img, quality)
			if err != nil {
				return fmt.Errorf("failed to encode page %d: %w", i+1, err)
			}
			b := img.Bounds()
			pages = append(pages, RenderedPage{Index: i, Width: b.Dx(), Height: b.Dy(), JPEG: encoded})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}
