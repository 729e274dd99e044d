package pdfops

import (
	"context"
	"fmt"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/pagerange"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
)

// Merge concatenates the files in upload order.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*Result, error) {
	if len(req.Files) < 2 {
		return nil, errors.NewInsufficientInputsError("At least two PDF files are required to merge")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *Result
	err := s.run(ctx, OpMerge, owner, func(ctx context.Context) error {
		docs := make([]*pdfcodec.Document, 0, len(req.Files))
		total := 0
		for _, f := range req.Files {
			doc, err := s.codec.Decode(f.Name, f.Data)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			total += doc.PageCount()
		}
		merged, err := s.codec.Merge(docs)
		if err != nil {
			return err
		}

		a, err := s.saveOne(ctx, owner, OpMerge, artifact.Item{
			Filename:    "merged.pdf",
			ContentType: contentTypePDF,
			Data:        merged,
			PageCount:   total,
		})
		if err != nil {
			return err
		}
		res = &Result{Artifact: a, PageCount: total}
		return nil
	})
	return res, err
}

// Split writes one document per page group. Range mode produces a single
// group and defaults to the whole document.
func (s *Service) Split(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *SplitResult
	err := s.run(ctx, OpSplit, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decode(req.Input.Name, req.Input.Data)
		if err != nil {
			return err
		}
		mode, params := splitSelection(req, doc.PageCount())
		params.Measure = func(pages []int) (int64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			return s.codec.EncodedSize(doc, pages)
		}
		sel, err := pagerange.Resolve(mode, params, doc.PageCount())
		if err != nil {
			return err
		}

		base := baseName(req.Input.Name)
		items := make([]artifact.Item, 0, len(sel.Groups))
		res = &SplitResult{}
		for _, g := range sel.Groups {
			out, err := s.encode(doc, g.Pages)
			if err != nil {
				return err
			}
			items = append(items, artifact.Item{
				Filename:    fmt.Sprintf("%s_pages_%s.pdf", base, g.Label()),
				ContentType: contentTypePDF,
				Data:        out,
				PageCount:   len(g.Pages),
			})
			res.Pages = append(res.Pages, oneBased(g.Pages))
		}

		res.Files, err = s.save(ctx, owner, OpSplit, items...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func splitSelection(req SplitRequest, total int) (pagerange.Mode, pagerange.Params) {
	switch req.SplitType {
	case SplitPages:
		return pagerange.ModeFixedCount, pagerange.Params{PagesPerSplit: req.PagesPerSplit}
	case SplitSize:
		return pagerange.ModeSizeBounded, pagerange.Params{MaxSizeMB: req.MaxSizeMB}
	default:
		start, end := 1, total
		if req.StartPage != nil {
			start = *req.StartPage
		}
		if req.EndPage != nil {
			end = *req.EndPage
		}
		return pagerange.ModeRange, pagerange.Params{Start: start, End: end}
	}
}

// Organize reorders the pages by UserOrder or drops DeletePages.
func (s *Service) Organize(ctx context.Context, req OrganizeRequest) (*Result, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	hasOrder, hasDelete := len(req.UserOrder) > 0, len(req.DeletePages) > 0
	if hasOrder == hasDelete {
		return nil, errors.NewValidationError("Provide exactly one of user_order or delete_pages")
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *Result
	err := s.run(ctx, OpOrganize, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decode(req.Input.Name, req.Input.Data)
		if err != nil {
			return err
		}
		mode, params := pagerange.ModePermutation, pagerange.Params{Order: req.UserOrder}
		if hasDelete {
			mode, params = pagerange.ModeDeletion, pagerange.Params{Delete: req.DeletePages}
		}
		sel, err := pagerange.Resolve(mode, params, doc.PageCount())
		if err != nil {
			return err
		}

		pages := sel.Pages()
		out, err := s.encode(doc, pages)
		if err != nil {
			return err
		}
		a, err := s.saveOne(ctx, owner, OpOrganize, artifact.Item{
			Filename:    baseName(req.Input.Name) + "_organized.pdf",
			ContentType: contentTypePDF,
			Data:        out,
			PageCount:   len(pages),
		})
		if err != nil {
			return err
		}
		res = &Result{Artifact: a, PageCount: len(pages)}
		return nil
	})
	return res, err
}

func (s *Service) encode(doc *pdfcodec.Document, indices []int) ([]byte, error) {
	pages, err := doc.Select(indices)
	if err != nil {
		return nil, errors.NewProcessingError("Failed to select pages", err)
	}
	return s.codec.Encode(pages)
}

func oneBased(indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = idx + 1
	}
	return out
}
