package pdfops

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
	"github.com/yourorg/pdf-service/pkg/raster"
)

// Compress re-renders every page as a JPEG at the profile's quality and
// rebuilds the document from those images. Text and vector content become
// pixels, so the result is always lossy.
func (s *Service) Compress(ctx context.Context, req CompressRequest) (*CompressResult, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	if req.Profile == "" {
		req.Profile = CompressionRecommended
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *CompressResult
	err := s.run(ctx, OpCompress, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decode(req.Input.Name, req.Input.Data)
		if err != nil {
			return err
		}
		rendered, err := raster.RenderAllJPEG(s.renderer, doc.Bytes(), raster.NativeZoom, req.Profile.Quality())
		if err != nil {
			return errors.NewProcessingError("Failed to render pages", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		pages := make([]pdfutil.ImagePage, len(rendered))
		for i, p := range rendered {
			pages[i] = pdfutil.ImagePage{
				JPEG: p.JPEG,
				Size: pdfutil.PageSize{
					Width:  float64(p.Width) / raster.NativeZoom,
					Height: float64(p.Height) / raster.NativeZoom,
				},
			}
		}
		out, err := pdfutil.BuildImagePDF(pages)
		if err != nil {
			return errors.NewProcessingError("Failed to assemble compressed document", err)
		}
		s.logger.Debug("Document compressed",
			logging.NewField("profile", string(req.Profile)),
			logging.NewField("original_size", doc.Size()),
			logging.NewField("compressed_size", int64(len(out))),
		)

		a, err := s.saveOne(ctx, owner, OpCompress, artifact.Item{
			Filename:    baseName(req.Input.Name) + "_compressed.pdf",
			ContentType: contentTypePDF,
			Data:        out,
			PageCount:   len(pages),
		})
		if err != nil {
			return err
		}
		res = &CompressResult{
			Result:         Result{Artifact: a, PageCount: len(pages)},
			Profile:        req.Profile,
			OriginalSize:   doc.Size(),
			CompressedSize: int64(len(out)),
			Lossy:          true,
		}
		return nil
	})
	return res, err
}

// ToImage renders every page at native resolution and packs the JPEGs into a
// zip with entries page_N.jpeg, N starting at 1.
func (s *Service) ToImage(ctx context.Context, req ToImageRequest) (*ImageResult, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *ImageResult
	err := s.run(ctx, OpPDFToImage, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decode(req.Input.Name, req.Input.Data)
		if err != nil {
			return err
		}
		rendered, err := raster.RenderAllJPEG(s.renderer, doc.Bytes(), raster.NativeZoom, s.quality)
		if err != nil {
			return errors.NewProcessingError("Failed to render pages", err)
		}
		archive, err := zipPages(rendered)
		if err != nil {
			return errors.NewProcessingError("Failed to build image archive", err)
		}

		a, err := s.saveOne(ctx, owner, OpPDFToImage, artifact.Item{
			Filename:    baseName(req.Input.Name) + "_images.zip",
			ContentType: contentTypeZip,
			Data:        archive,
			PageCount:   len(rendered),
		})
		if err != nil {
			return err
		}
		format := req.OutputFormat
		if format == "" {
			format = "jpeg"
		}
		res = &ImageResult{
			Result: Result{Artifact: a, PageCount: len(rendered)},
			Format: format,
			Images: len(rendered),
		}
		return nil
	})
	return res, err
}

// zipPages stores each JPEG uncompressed as page_N.jpeg.
func zipPages(pages []raster.RenderedPage) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range pages {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   fmt.Sprintf("page_%d.jpeg", p.Index+1),
			Method: zip.Store,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.JPEG); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
