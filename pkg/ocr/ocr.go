// Package ocr extracts text from PDF pages, reading the embedded text layer
// where one exists and falling back to optical recognition otherwise.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/raster"
)

// MinEmbeddedTextRunes is the trimmed length a page's embedded text must
// exceed for the page to skip recognition.
const MinEmbeddedTextRunes = 20

// Method records how a page's text was obtained.
type Method string

const (
	MethodExistingText Method = "existing_text"
	MethodOCR          Method = "ocr"
)

// Report status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Word is a recognized token with its confidence in [0,100].
type Word struct {
	Text       string
	Confidence float64
}

// Recognition is the raw output of a Recognizer for one image.
type Recognition struct {
	Text  string
	Words []Word
}

// Recognizer performs optical character recognition on an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (Recognition, error)
}

// Decoder turns uploaded bytes into a document.
type Decoder interface {
	Decode(name string, data []byte) (*pdfcodec.Document, error)
}

// PageResult is the outcome for one page. Confidence is nil for pages whose
// embedded text was used.
type PageResult struct {
	Page       int      `json:"page"`
	Method     Method   `json:"method"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error,omitempty"`
}

// Report summarizes text extraction for a whole document.
type Report struct {
	Status            string       `json:"status"`
	Message           string       `json:"message,omitempty"`
	TotalPages        int          `json:"total_pages"`
	ExistingTextPages int          `json:"existing_text_pages"`
	OCRPages          int          `json:"ocr_pages"`
	Pages             []PageResult `json:"pages"`

	// Err holds the decode failure behind an error status.
	Err error `json:"-"`
}

// Text joins the text of every page, separated by blank lines.
func (r *Report) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Engine decides per page between embedded text and recognition.
type Engine struct {
	renderer   raster.Renderer
	recognizer Recognizer
	logger     logging.Logger
}

// NewEngine creates an Engine.
func NewEngine(renderer raster.Renderer, recognizer Recognizer, logger logging.Logger) *Engine {
	return &Engine{renderer: renderer, recognizer: recognizer, logger: logger.Named("ocr")}
}

// HasEmbeddedText reports whether text is long enough to be used as is.
func HasEmbeddedText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > MinEmbeddedTextRunes
}

// Extract decodes data and processes it. A decode failure yields a report
// with an error status rather than an error.
func (e *Engine) Extract(ctx context.Context, dec Decoder, name string, data []byte, language string) (*Report, error) {
	doc, err := dec.Decode(name, data)
	if err != nil {
		return &Report{Status: StatusError, Message: err.Error(), Err: err}, nil
	}
	return e.Process(ctx, doc, language)
}

// Process extracts text from every page of doc. Failures on a single page are
// recorded on that page and never abort the document. Only cancellation of
// ctx returns an error.
func (e *Engine) Process(ctx context.Context, doc *pdfcodec.Document, language string) (*Report, error) {
	report := &Report{
		Status:     StatusSuccess,
		TotalPages: doc.PageCount(),
		Pages:      make([]PageResult, doc.PageCount()),
	}

	var pending []int
	for _, p := range doc.Pages() {
		if HasEmbeddedText(p.Text) {
			report.Pages[p.Index] = PageResult{Page: p.Number(), Method: MethodExistingText, Text: p.Text}
			report.ExistingTextPages++
			continue
		}
		pending = append(pending, p.Index)
	}
	report.OCRPages = len(pending)
	if len(pending) == 0 {
		return report, nil
	}

	err := e.renderer.Open(doc.Bytes(), func(rd raster.Document) error {
		for _, idx := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Pages[idx] = e.recognizePage(ctx, rd, idx, language)
		}
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		e.logger.Warn("Failed to open document for recognition",
			logging.NewField("document", doc.Name()),
			logging.NewField("error", err),
		)
		for _, idx := range pending {
			report.Pages[idx] = failedPage(idx, err)
		}
	}
	return report, nil
}

func (e *Engine) recognizePage(ctx context.Context, rd raster.Document, idx int, language string) PageResult {
	img, err := rd.Render(idx, raster.OCRZoom)
	if err != nil {
		return e.pageFailure(idx, fmt.Errorf("render: %w", err))
	}
	encoded, err := raster.ToPNG(img)
	if err != nil {
		return e.pageFailure(idx, err)
	}
	rec, err := e.recognizer.Recognize(ctx, encoded, language)
	if err != nil {
		return e.pageFailure(idx, fmt.Errorf("recognize: %w", err))
	}

	confidence := meanConfidence(rec.Words)
	return PageResult{
		Page:       idx + 1,
		Method:     MethodOCR,
		Text:       strings.TrimSpace(rec.Text),
		Confidence: &confidence,
	}
}

func (e *Engine) pageFailure(idx int, err error) PageResult {
	e.logger.Warn("Page recognition failed",
		logging.NewField("page", idx+1),
		logging.NewField("error", err),
	)
	return failedPage(idx, err)
}

func failedPage(idx int, err error) PageResult {
	zero := 0.0
	return PageResult{
		Page:       idx + 1,
		Method:     MethodOCR,
		Confidence: &zero,
		Error:      err.Error(),
	}
}

// meanConfidence averages the confidence of words above zero.
func meanConfidence(words []Word) float64 {
	var (
		sum   float64
		count int
	)
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
