package pdfops

import (
	"bytes"
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/convert"
	"github.com/yourorg/pdf-service/pkg/csvutil"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/ocr"
)

// previewRunes is the length of the text preview returned with OCR results.
const previewRunes = 500

// OCR extracts the text of every page, using the embedded text layer where
// it is long enough and optical recognition elsewhere, and stores it as a
// text or CSV report.
func (s *Service) OCR(ctx context.Context, req OCRRequest) (*OCRResult, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	if req.Language == "" {
		req.Language = s.lang
	}
	if req.OutputFormat == "" {
		req.OutputFormat = OCRFormatTXT
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *OCRResult
	err := s.run(ctx, OpOCR, owner, func(ctx context.Context) error {
		report, err := s.ocr.Extract(ctx, s.codec, req.Input.Name, req.Input.Data, req.Language)
		if err != nil {
			return err
		}
		if report.Status == ocr.StatusError {
			return report.Err
		}

		text := report.Text()
		item := artifact.Item{
			Filename:    baseName(req.Input.Name) + "_ocr.txt",
			ContentType: contentTypeTXT,
			Data:        []byte(text),
			PageCount:   report.TotalPages,
		}
		if req.OutputFormat == OCRFormatCSV {
			data, err := ocrCSV(report)
			if err != nil {
				return errors.NewProcessingError("Failed to write OCR report", err)
			}
			item.Filename = baseName(req.Input.Name) + "_ocr.csv"
			item.ContentType = contentTypeCSV
			item.Data = data
		}

		a, err := s.saveOne(ctx, owner, OpOCR, item)
		if err != nil {
			return err
		}
		res = &OCRResult{
			Result:            Result{Artifact: a, PageCount: report.TotalPages},
			TotalPages:        report.TotalPages,
			ExistingTextPages: report.ExistingTextPages,
			OCRPages:          report.OCRPages,
			TextPreview:       preview(text, previewRunes),
			Pages:             report.Pages,
		}
		return nil
	})
	return res, err
}

func ocrCSV(report *ocr.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csvutil.NewWriter(&buf)
	if err := w.WriteHeader([]string{"page", "method", "confidence", "text"}); err != nil {
		return nil, err
	}
	for _, p := range report.Pages {
		confidence := ""
		if p.Confidence != nil {
			confidence = strconv.FormatFloat(*p.Confidence, 'f', 2, 64)
		}
		if err := w.WriteRow([]string{strconv.Itoa(p.Page), string(p.Method), confidence, p.Text}); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// preview cuts text to n runes, marking the cut with "...".
func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

// Convert turns PDF, DOCX and TXT uploads into PDFs. Files that fail are
// listed in the result; the call fails only when none converts.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *ConvertResult
	err := s.run(ctx, OpConvert, owner, func(ctx context.Context) error {
		inputs := make([]convert.Input, len(req.Files))
		for i, f := range req.Files {
			inputs[i] = convert.Input{Name: f.Name, Data: f.Data}
		}
		batch, err := s.converter.ConvertBatch(ctx, inputs)
		if err != nil {
			return err
		}

		items := make([]artifact.Item, len(batch.Converted))
		for i, out := range batch.Converted {
			items[i] = artifact.Item{
				Filename:    baseName(out.SourceName) + ".pdf",
				ContentType: contentTypePDF,
				Data:        out.Data,
			}
		}
		saved, err := s.save(ctx, owner, OpConvert, items...)
		if err != nil {
			return err
		}
		res = &ConvertResult{Converted: saved, Failed: batch.Failed}
		if res.Failed == nil {
			res.Failed = []convert.Failure{}
		}
		return nil
	})
	return res, err
}
