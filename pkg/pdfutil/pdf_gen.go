// Package pdfutil generates PDF documents from rasterized pages and plain text.
package pdfutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// A4 page size in points.
var A4 = PageSize{Width: 595.28, Height: 841.89}

// PageSize is a page size in points.
type PageSize struct {
	Width  float64
	Height float64
}

// ImagePage is a JPEG image that becomes the sole content of a page of the same size.
type ImagePage struct {
	JPEG []byte
	Size PageSize
}

// PDFGenerator provides utilities for generating PDF documents.
type PDFGenerator struct {
	pdf    *gofpdf.Fpdf
	images int
}

// NewPDFGenerator creates a generator whose unit is the point and whose
// default page size is size. No page is added yet.
func NewPDFGenerator(size PageSize) *PDFGenerator {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &PDFGenerator{pdf: pdf}
}

// AddImagePage adds a page sized to page.Size and draws the image over all of it.
func (g *PDFGenerator) AddImagePage(page ImagePage) error {
	size := gofpdf.SizeType{Wd: page.Size.Width, Ht: page.Size.Height}
	g.pdf.AddPageFormat("P", size)

	g.images++
	name := fmt.Sprintf("page-%d", g.images)
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	g.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(page.JPEG))
	g.pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	return g.pdf.Error()
}

// AddText flows text onto A4 pages with a 50pt margin, adding pages as needed.
// Text that the core fonts cannot represent is translated to cp1252.
func (g *PDFGenerator) AddText(text string, fontSize float64) error {
	const margin = 50.0
	g.pdf.SetMargins(margin, margin, margin)
	g.pdf.SetAutoPageBreak(true, margin)
	defer func() {
		g.pdf.SetMargins(0, 0, 0)
		g.pdf.SetAutoPageBreak(false, 0)
	}()

	g.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: A4.Width, Ht: A4.Height})
	g.pdf.SetFont("Arial", "", fontSize)
	tr := g.pdf.UnicodeTranslatorFromDescriptor("")
	lineHeight := fontSize * 1.4

	for _, paragraph := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(paragraph) == "" {
			g.pdf.Ln(lineHeight)
			continue
		}
		g.pdf.MultiCell(0, lineHeight, tr(paragraph), "", "L", false)
	}
	return g.pdf.Error()
}

// PageCount returns the number of pages added so far.
func (g *PDFGenerator) PageCount() int {
	return g.pdf.PageCount()
}

// WriteToWriter writes the PDF to an io.Writer.
func (g *PDFGenerator) WriteToWriter(w io.Writer) error {
	return g.pdf.Output(w)
}

// GetBytes returns the PDF as a byte slice.
func (g *PDFGenerator) GetBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildImagePDF assembles one page per image.
func BuildImagePDF(pages []ImagePage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to assemble")
	}
	g := NewPDFGenerator(pages[0].Size)
	for i, p := range pages {
		if err := g.AddImagePage(p); err != nil {
			return nil, fmt.Errorf("failed to add page %d: %w", i+1, err)
		}
	}
	return g.GetBytes()
}

// BuildTextPDF renders text onto as many A4 pages as it needs.
func BuildTextPDF(text string) ([]byte, error) {
	g := NewPDFGenerator(A4)
	if err := g.AddText(text, 11); err != nil {
		return nil, err
	}
	return g.GetBytes()
}

// BuildPagesPDF renders each entry of pages onto its own A4 page.
func BuildPagesPDF(pages []string) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to render")
	}
	g := NewPDFGenerator(A4)
	for _, text := range pages {
		if err := g.AddText(text, 12); err != nil {
			return nil, err
		}
	}
	return g.GetBytes()
}
