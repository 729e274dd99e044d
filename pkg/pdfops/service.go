// Package pdfops implements the public PDF operations. Each operation
// validates its request, decodes the input, transforms it with the codec,
// rasterizer or OCR engine, and hands the produced buffers to the artifact store.
package pdfops

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/convert"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/ocr"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/raster"
)

// AnonymousOwner owns artifacts of requests without an identity.
const AnonymousOwner = "anonymous"

// Operation names, used in artifact records, logs and telemetry.
const (
	OpProtect    = "protect"
	OpMerge      = "merge"
	OpCompress   = "compress"
	OpSplit      = "split"
	OpOrganize   = "organize"
	OpUnlock     = "unlock"
	OpPDFToImage = "pdf_to_image"
	OpOCR        = "ocr_extract"
	OpConvert    = "convert_to_pdf"
)

const (
	contentTypePDF = "application/pdf"
	contentTypeZip = "application/zip"
	contentTypeTXT = "text/plain; charset=utf-8"
	contentTypeCSV = "text/csv; charset=utf-8"
)

// ArtifactStore persists produced buffers.
type ArtifactStore interface {
	Save(ctx context.Context, owner, operation string, items ...artifact.Item) ([]*artifact.Artifact, error)
}

// EventRecorder receives one custom event per finished operation.
type EventRecorder interface {
	RecordCustomEvent(eventType string, attributes map[string]interface{})
}

// Options tunes the Service.
type Options struct {
	// MaxConcurrentJobs bounds operations running at once across all requests.
	MaxConcurrentJobs int
	// OperationTimeout bounds a single operation. Zero disables it.
	OperationTimeout time.Duration
	// OCRLanguage is used when a request names none.
	OCRLanguage string
	// ImageJPEGQuality is used for page images produced by PDF-to-image.
	ImageJPEGQuality int
}

// Service runs the PDF operations.
type Service struct {
	codec     *pdfcodec.Codec
	renderer  raster.Renderer
	ocr       *ocr.Engine
	converter *convert.Converter
	store     ArtifactStore
	events    EventRecorder
	logger    logging.Logger

	jobs    *semaphore.Weighted
	timeout time.Duration
	lang    string
	quality int
}

// New creates a Service. events may be nil.
func New(codec *pdfcodec.Codec, renderer raster.Renderer, engine *ocr.Engine, converter *convert.Converter,
	store ArtifactStore, events EventRecorder, opts Options, logger logging.Logger) *Service {
	if opts.MaxConcurrentJobs < 1 {
		opts.MaxConcurrentJobs = 1
	}
	if opts.OCRLanguage == "" {
		opts.OCRLanguage = "eng"
	}
	if opts.ImageJPEGQuality < 1 {
		opts.ImageJPEGQuality = 85
	}
	return &Service{
		codec:     codec,
		renderer:  renderer,
		ocr:       engine,
		converter: converter,
		store:     store,
		events:    events,
		logger:    logger,
		jobs:      semaphore.NewWeighted(int64(opts.MaxConcurrentJobs)),
		timeout:   opts.OperationTimeout,
		lang:      opts.OCRLanguage,
		quality:   opts.ImageJPEGQuality,
	}
}

// run executes fn under a job slot and the operation timeout, logs the
// outcome and maps unexpected failures to PROCESSING_ERROR.
func (s *Service) run(ctx context.Context, op, owner string, fn func(ctx context.Context) error) error {
	logger := logging.FromContextOr(ctx, s.logger).With(
		logging.NewField("operation", op),
		logging.NewField("owner", owner),
	)

	if err := s.acquireSlot(ctx); err != nil {
		logger.Warn("No job slot available", logging.NewField("error", err))
		return errors.NewServiceUnavailableError("The service is busy, try again later")
	}
	defer s.jobs.Release(1)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("Operation started")
	err := fn(ctx)
	latency := time.Since(start)

	if err != nil {
		err = s.classify(ctx, op, err)
		appErr := errors.FromError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error("Operation failed",
				logging.NewField("latency", latency),
				logging.NewField("error", err),
			)
		} else {
			logger.Warn("Operation rejected",
				logging.NewField("latency", latency),
				logging.NewField("code", string(appErr.Code)),
				logging.NewField("error", err),
			)
		}
		s.record(op, owner, latency, string(appErr.Code))
		return err
	}

	logger.Info("Operation completed", logging.NewField("latency", latency))
	s.record(op, owner, latency, "")
	return nil
}

func (s *Service) acquireSlot(ctx context.Context) error {
	if err := s.jobs.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	return nil
}

func (s *Service) classify(ctx context.Context, op string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(fmt.Sprintf("%s did not finish in time", op))
	}
	return errors.NewProcessingError(fmt.Sprintf("Failed to %s document", strings.ReplaceAll(op, "_", " ")), err)
}

func (s *Service) record(op, owner string, latency time.Duration, code string) {
	if s.events == nil {
		return
	}
	attrs := map[string]interface{}{
		"operation":   op,
		"owner":       owner,
		"duration_ms": latency.Milliseconds(),
		"success":     code == "",
	}
	if code != "" {
		attrs["error_code"] = code
	}
	s.events.RecordCustomEvent("PDFOperation", attrs)
}

func (s *Service) save(ctx context.Context, owner, op string, items ...artifact.Item) ([]*artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.Save(ctx, owner, op, items...)
}

func (s *Service) saveOne(ctx context.Context, owner, op string, item artifact.Item) (*artifact.Artifact, error) {
	saved, err := s.save(ctx, owner, op, item)
	if err != nil {
		return nil, err
	}
	return saved[0], nil
}

func ownerOrAnonymous(owner string) string {
	if owner = strings.TrimSpace(owner); owner == "" {
		return AnonymousOwner
	}
	return owner
}

// baseName strips directories and the extension from an uploaded filename.
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." {
		return "document"
	}
	return name
}
