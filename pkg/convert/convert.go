// Package convert turns PDF, DOCX and TXT uploads into PDF documents.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
)

// Decoder validates PDF input.
type Decoder interface {
	Decode(name string, data []byte) (*pdfcodec.Document, error)
}

// Input is one uploaded file.
type Input struct {
	Name string
	Data []byte
}

// Output is a converted PDF.
type Output struct {
	SourceName string
	Name       string
	Format     Format
	Data       []byte
}

// Failure describes a file that could not be converted.
type Failure struct {
	Name  string           `json:"filename"`
	Code  errors.ErrorCode `json:"code"`
	Error string           `json:"error"`
}

// Result of a batch. Converted keeps input order.
type Result struct {
	Converted []Output
	Failed    []Failure
}

// Converter converts single files and batches on a bounded pool.
type Converter struct {
	decoder Decoder
	workers int64
	logger  logging.Logger
}

// New creates a Converter running at most workers conversions at once.
func New(decoder Decoder, workers int, logger logging.Logger) *Converter {
	if workers < 1 {
		workers = 1
	}
	return &Converter{decoder: decoder, workers: int64(workers), logger: logger.Named("convert")}
}

// Convert converts one file according to its sniffed format.
func (c *Converter) Convert(in Input) (Output, error) {
	format, err := Detect(in.Name, in.Data)
	if err != nil {
		return Output{}, err
	}

	var data []byte
	switch format {
	case FormatPDF:
		data, err = c.fromPDF(in)
	case FormatDOCX:
		data, err = fromDOCX(in)
	case FormatTXT:
		data, err = fromTXT(in)
	}
	if err != nil {
		return Output{}, err
	}

	return Output{
		SourceName: in.Name,
		Name:       strings.TrimSuffix(in.Name, filepath.Ext(in.Name)) + ".pdf",
		Format:     format,
		Data:       data,
	}, nil
}

func (c *Converter) fromPDF(in Input) ([]byte, error) {
	if _, err := c.decoder.Decode(in.Name, in.Data); err != nil {
		return nil, err
	}
	return in.Data, nil
}

func fromDOCX(in Input) ([]byte, error) {
	text, err := docxText(in.Data)
	if err != nil {
		return nil, errors.NewCorruptError(fmt.Sprintf("%s is not a readable Word document", in.Name), err)
	}
	return renderText(in.Name, text)
}

func fromTXT(in Input) ([]byte, error) {
	return renderText(in.Name, strings.ToValidUTF8(string(in.Data), "�"))
}

func renderText(name, text string) ([]byte, error) {
	out, err := pdfutil.BuildTextPDF(text)
	if err != nil {
		return nil, errors.NewProcessingError(fmt.Sprintf("Failed to render %s", name), err)
	}
	return out, nil
}

// ConvertBatch converts every input, at most c.workers at a time. Files that
// fail are reported in Result.Failed; an error is returned only when every
// file fails or ctx ends.
func (c *Converter) ConvertBatch(ctx context.Context, inputs []Input) (*Result, error) {
	if len(inputs) == 0 {
		return nil, errors.NewValidationError("At least one file is required")
	}

	sem := semaphore.NewWeighted(c.workers)
	outputs := make([]*Output, len(inputs))
	failures := make([]*Failure, len(inputs))
	var wg sync.WaitGroup

	for i, in := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("acquire slot: %w", err)
		}
		wg.Add(1)
		go func(i int, in Input) {
			defer wg.Done()
			defer sem.Release(1)

			out, err := c.Convert(in)
			if err != nil {
				c.logger.Warn("File conversion failed",
					logging.NewField("filename", in.Name),
					logging.NewField("error", err),
				)
				failures[i] = &Failure{Name: in.Name, Code: errors.ErrorCodePartialFailure, Error: failureMessage(err)}
				return
			}
			outputs[i] = &out
		}(i, in)
	}
	wg.Wait()

	res := &Result{}
	for i := range inputs {
		if outputs[i] != nil {
			res.Converted = append(res.Converted, *outputs[i])
		}
		if failures[i] != nil {
			res.Failed = append(res.Failed, *failures[i])
		}
	}
	if len(res.Converted) == 0 {
		return nil, errors.NewValidationError("None of the files could be converted").
			WithDetails(map[string]interface{}{"failures": res.Failed})
	}
	return res, nil
}

func failureMessage(err error) string {
	if appErr := errors.FromError(err); appErr.Code != errors.ErrorCodeInternal {
		return appErr.Message
	}
	return err.Error()
}
