package pdfcodec

import "fmt"

// Document is an immutable sequence of pages decoded from one input stream.
type Document struct {
	raw   []byte
	name  string
	pages []*Page
}

// Page is a single page of a Document. Index is 0-based and stable within its document.
type Page struct {
	Index int
	// Text is the embedded text layer, empty when the page has none or it could not be read.
	Text string

	doc *Document
}

// Document returns the document the page belongs to.
func (p *Page) Document() *Document { return p.doc }

// Number returns the 1-based page number.
func (p *Page) Number() int { return p.Index + 1 }

// Name returns the name the document was uploaded with, if known.
func (d *Document) Name() string { return d.name }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Pages returns the pages in document order.
func (d *Document) Pages() []*Page {
	return append([]*Page(nil), d.pages...)
}

// Page returns the page at 0-based index i.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

// Select returns the pages at the given 0-based indices, in that order.
func (d *Document) Select(indices []int) ([]*Page, error) {
	out := make([]*Page, 0, len(indices))
	for _, i := range indices {
		p, err := d.Page(i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Bytes returns the encoded document the pages were decoded from.
func (d *Document) Bytes() []byte { return d.raw }

// Size returns the encoded size in bytes.
func (d *Document) Size() int64 { return int64(len(d.raw)) }
