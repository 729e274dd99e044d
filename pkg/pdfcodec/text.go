package pdfcodec

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractText reads the embedded text layer of every page, keyed by 0-based index.
// The parser panics on some malformed streams, so panics are turned into errors.
func extractText(data []byte) (texts map[int]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			texts, err = nil, fmt.Errorf("text extraction panicked: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	texts = make(map[int]string, r.NumPage())
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}
