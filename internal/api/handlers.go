// Package api exposes the PDF operations over HTTP as multipart form endpoints.
package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/httpservice"
	"github.com/yourorg/pdf-service/pkg/jwt"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/pdfops"
)

// Operations runs the PDF operations.
type Operations interface {
	Protect(ctx context.Context, req pdfops.ProtectRequest) (*pdfops.Result, error)
	Merge(ctx context.Context, req pdfops.MergeRequest) (*pdfops.Result, error)
	Compress(ctx context.Context, req pdfops.CompressRequest) (*pdfops.CompressResult, error)
	Split(ctx context.Context, req pdfops.SplitRequest) (*pdfops.SplitResult, error)
	Organize(ctx context.Context, req pdfops.OrganizeRequest) (*pdfops.Result, error)
	Unlock(ctx context.Context, req pdfops.UnlockRequest) (*pdfops.Result, error)
	ToImage(ctx context.Context, req pdfops.ToImageRequest) (*pdfops.ImageResult, error)
	OCR(ctx context.Context, req pdfops.OCRRequest) (*pdfops.OCRResult, error)
	Convert(ctx context.Context, req pdfops.ConvertRequest) (*pdfops.ConvertResult, error)
}

// Artifacts opens stored outputs for download.
type Artifacts interface {
	Open(ctx context.Context, id string) (*artifact.Artifact, io.ReadCloser, error)
}

// Handler registers the /api/v1/pdf routes.
type Handler struct {
	ops       Operations
	artifacts Artifacts
	auth      gin.HandlerFunc
}

// New creates a Handler. auth, when set, runs before every route and is
// expected to store the caller identity read by jwt.OwnerID.
func New(ops Operations, artifacts Artifacts, auth gin.HandlerFunc) *Handler {
	return &Handler{ops: ops, artifacts: artifacts, auth: auth}
}

// Register implements the httpservice.Handler interface.
func (h *Handler) Register(router *gin.Engine) {
	api := router.Group("/api/v1/pdf")
	if h.auth != nil {
		api.Use(h.auth)
	}
	{
		api.POST("/protect", httpservice.Wrap("protect", h.handleProtect))
		api.POST("/merge", httpservice.Wrap("merge", h.handleMerge))
		api.POST("/compress", httpservice.Wrap("compress", h.handleCompress))
		api.POST("/split", httpservice.Wrap("split", h.handleSplit))
		api.POST("/organize", httpservice.Wrap("organize", h.handleOrganize))
		api.POST("/unlock", httpservice.Wrap("unlock", h.handleUnlock))
		api.POST("/to-image", httpservice.Wrap("pdf_to_image", h.handleToImage))
		api.POST("/ocr", httpservice.Wrap("ocr_extract", h.handleOCR))
		api.POST("/convert", httpservice.Wrap("convert", h.handleConvert))
		api.GET("/artifacts/:id", httpservice.Wrap("download", h.handleDownload))
	}
}

func owner(c *gin.Context) string {
	return jwt.OwnerID(c, pdfops.AnonymousOwner)
}

// inputPDF reads the input_pdf upload. A missing upload becomes an empty
// file, which the operation reports as required.
func inputPDF(c *gin.Context) (pdfops.File, error) {
	f, err := httpservice.FormFile(c, "input_pdf")
	if err != nil || f == nil {
		return pdfops.File{}, err
	}
	return pdfops.File{Name: f.Name, Data: f.Data}, nil
}

func inputFiles(c *gin.Context, field string) ([]pdfops.File, error) {
	uploads, err := httpservice.FormFiles(c, field)
	if err != nil {
		return nil, err
	}
	files := make([]pdfops.File, len(uploads))
	for i, u := range uploads {
		files[i] = pdfops.File{Name: u.Name, Data: u.Data}
	}
	return files, nil
}

func (h *Handler) handleProtect(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}
	perms, err := permissions(c)
	if err != nil {
		return err
	}

	res, err := h.ops.Protect(c.Request.Context(), pdfops.ProtectRequest{
		Owner:         owner(c),
		Input:         in,
		Password:      c.PostForm("pdf_password"),
		OwnerPassword: c.PostForm("owner_password"),
		Permissions:   perms,
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, "PDF protected successfully", "protected_pdf", res)
	return nil
}

// permissions reads the allow_* flags. Unset flags take the default set:
// printing, copying, comments and form filling on, editing and assembly off.
func permissions(c *gin.Context) (pdfcodec.PermissionSet, error) {
	perms := pdfcodec.DefaultPermissions()
	flags := []struct {
		field string
		dst   *bool
	}{
		{"allow_printing", &perms.Printing},
		{"allow_copying", &perms.Copying},
		{"allow_editing", &perms.Editing},
		{"allow_comments", &perms.Comments},
		{"allow_form_filling", &perms.FormFilling},
		{"allow_document_assembly", &perms.DocumentAssembly},
	}
	for _, f := range flags {
		v, err := httpservice.FormBool(c, f.field, *f.dst)
		if err != nil {
			return perms, err
		}
		*f.dst = v
	}
	return perms, nil
}

func (h *Handler) handleMerge(c *gin.Context) error {
	files, err := inputFiles(c, "pdf_files")
	if err != nil {
		return err
	}

	res, err := h.ops.Merge(c.Request.Context(), pdfops.MergeRequest{Owner: owner(c), Files: files})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, fmt.Sprintf("%d PDF files merged successfully", len(files)), "merged_pdf", res)
	return nil
}

func (h *Handler) handleCompress(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}

	res, err := h.ops.Compress(c.Request.Context(), pdfops.CompressRequest{
		Owner:   owner(c),
		Input:   in,
		Profile: pdfops.CompressionProfile(httpservice.FormString(c, "compression_quality")),
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, "PDF compressed successfully", "compressed_pdf", res)
	return nil
}

func (h *Handler) handleSplit(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}
	req := pdfops.SplitRequest{
		Owner:     owner(c),
		Input:     in,
		SplitType: httpservice.FormString(c, "split_type"),
	}
	if req.StartPage, err = httpservice.FormOptionalInt(c, "start_page"); err != nil {
		return err
	}
	if req.EndPage, err = httpservice.FormOptionalInt(c, "end_page"); err != nil {
		return err
	}
	if req.PagesPerSplit, err = httpservice.FormInt(c, "pages_per_split"); err != nil {
		return err
	}
	if req.MaxSizeMB, err = httpservice.FormFloat(c, "max_size_mb"); err != nil {
		return err
	}

	res, err := h.ops.Split(c.Request.Context(), req)
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, fmt.Sprintf("PDF split into %d files", len(res.Files)), "split_pdfs", res)
	return nil
}

func (h *Handler) handleOrganize(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}
	order, err := httpservice.FormIntList(c, "user_order")
	if err != nil {
		return err
	}
	deletions, err := httpservice.FormIntList(c, "delete_pages")
	if err != nil {
		return err
	}

	res, err := h.ops.Organize(c.Request.Context(), pdfops.OrganizeRequest{
		Owner:       owner(c),
		Input:       in,
		UserOrder:   order,
		DeletePages: deletions,
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, "PDF organized successfully", "organized_pdf", res)
	return nil
}

func (h *Handler) handleUnlock(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}

	res, err := h.ops.Unlock(c.Request.Context(), pdfops.UnlockRequest{
		Owner:    owner(c),
		Input:    in,
		Password: c.PostForm("password"),
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, "PDF unlocked successfully", "unlocked_pdf", res)
	return nil
}

func (h *Handler) handleToImage(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}

	res, err := h.ops.ToImage(c.Request.Context(), pdfops.ToImageRequest{
		Owner:        owner(c),
		Input:        in,
		OutputFormat: httpservice.FormString(c, "output_format"),
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, fmt.Sprintf("%d pages converted to images", res.Images), "images", res)
	return nil
}

func (h *Handler) handleOCR(c *gin.Context) error {
	in, err := inputPDF(c)
	if err != nil {
		return err
	}

	res, err := h.ops.OCR(c.Request.Context(), pdfops.OCRRequest{
		Owner:        owner(c),
		Input:        in,
		Language:     httpservice.FormString(c, "language"),
		OutputFormat: httpservice.FormString(c, "output_format"),
	})
	if err != nil {
		return err
	}
	httpservice.RespondSuccess(c, "Text extracted successfully", "ocr_result", res)
	return nil
}

func (h *Handler) handleConvert(c *gin.Context) error {
	files, err := inputFiles(c, "files")
	if err != nil {
		return err
	}

	res, err := h.ops.Convert(c.Request.Context(), pdfops.ConvertRequest{Owner: owner(c), Files: files})
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%d of %d files converted", len(res.Converted), len(files))
	httpservice.RespondSuccess(c, msg, "conversion", res)
	return nil
}

// handleDownload streams an artifact. Artifacts owned by an identified user
// are only visible to that user; anonymous artifacts are visible to anyone
// holding the id.
func (h *Handler) handleDownload(c *gin.Context) error {
	id := c.Param("id")
	a, rc, err := h.artifacts.Open(c.Request.Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()

	if a.Owner != pdfops.AnonymousOwner && a.Owner != owner(c) {
		return errors.NewNotFoundError(fmt.Sprintf("artifact %s not found", id))
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})
	c.DataFromReader(http.StatusOK, a.Size, a.ContentType, rc, map[string]string{
		"Content-Disposition": disposition,
		"X-Artifact-Id":       a.ID,
		"X-Page-Count":        strconv.Itoa(a.PageCount),
	})
	httpservice.GetLogger(c).Info("Artifact downloaded",
		logging.NewField("artifact_id", a.ID),
		logging.NewField("operation", a.Operation),
		logging.NewField("size", a.Size),
	)
	return nil
}
