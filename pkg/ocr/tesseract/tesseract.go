// Package tesseract recognizes text with Tesseract through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/yourorg/pdf-service/pkg/ocr"
)

// Recognizer implements ocr.Recognizer. A new client is created per image
// because gosseract clients are not safe for concurrent use.
type Recognizer struct {
	tessdataPrefix string
	clientFactory  func() *gosseract.Client
}

// NewRecognizer creates a Recognizer. An empty tessdataPrefix uses Tesseract's default lookup.
func NewRecognizer(tessdataPrefix string) *Recognizer {
	return &Recognizer{tessdataPrefix: tessdataPrefix, clientFactory: gosseract.NewClient}
}

// Recognize implements ocr.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, language string) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}

	c := r.clientFactory()
	defer c.Close()

	if r.tessdataPrefix != "" {
		if err := c.SetTessdataPrefix(r.tessdataPrefix); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if langs := Languages(language); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("recognize text: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("word boxes: %w", err)
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{Text: b.Word, Confidence: b.Confidence})
	}

	return ocr.Recognition{Text: text, Words: words}, nil
}

// Languages splits a Tesseract language spec such as "eng+deu".
func Languages(spec string) []string {
	var out []string
	for _, l := range strings.FieldsFunc(spec, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
