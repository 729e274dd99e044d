package pdfops

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/convert"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/ocr"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
)

// File is an uploaded file.
type File struct {
	Name string `json:"filename"`
	Data []byte `json:"content" validate:"required"`
}

// CompressionProfile selects the JPEG quality used when compressing.
type CompressionProfile string

const (
	CompressionExtreme     CompressionProfile = "extreme"
	CompressionRecommended CompressionProfile = "recommended"
	CompressionLess        CompressionProfile = "less"
)

// Quality returns the JPEG quality of the profile.
func (p CompressionProfile) Quality() int {
	switch p {
	case CompressionExtreme:
		return 10
	case CompressionLess:
		return 100
	default:
		return 50
	}
}

// Split types accepted by Split.
const (
	SplitRange = "range"
	SplitPages = "pages"
	SplitSize  = "size"
)

// OCR output formats.
const (
	OCRFormatTXT = "txt"
	OCRFormatCSV = "csv"
)

type ProtectRequest struct {
	Owner         string                 `json:"-"`
	Input         File                   `json:"input_pdf"`
	Password      string                 `json:"pdf_password" validate:"required"`
	OwnerPassword string                 `json:"owner_password" validate:"omitempty,nefield=Password"`
	Permissions   pdfcodec.PermissionSet `json:"permissions"`
}

type MergeRequest struct {
	Owner string `json:"-"`
	Files []File `json:"pdf_files" validate:"dive"`
}

type CompressRequest struct {
	Owner   string             `json:"-"`
	Input   File               `json:"input_pdf"`
	Profile CompressionProfile `json:"compression_quality" validate:"omitempty,oneof=extreme recommended less"`
}

type SplitRequest struct {
	Owner         string  `json:"-"`
	Input         File    `json:"input_pdf"`
	SplitType     string  `json:"split_type" validate:"omitempty,oneof=range pages size"`
	StartPage     *int    `json:"start_page"`
	EndPage       *int    `json:"end_page"`
	PagesPerSplit int     `json:"pages_per_split"`
	MaxSizeMB     float64 `json:"max_size_mb"`
}

// OrganizeRequest takes exactly one of UserOrder and DeletePages, both 1-based.
type OrganizeRequest struct {
	Owner       string `json:"-"`
	Input       File   `json:"input_pdf"`
	UserOrder   []int  `json:"user_order"`
	DeletePages []int  `json:"delete_pages"`
}

type UnlockRequest struct {
	Owner    string `json:"-"`
	Input    File   `json:"input_pdf"`
	Password string `json:"password" validate:"required"`
}

// ToImageRequest converts every page to a JPEG. OutputFormat is accepted for
// compatibility and only recorded.
type ToImageRequest struct {
	Owner        string `json:"-"`
	Input        File   `json:"input_pdf"`
	OutputFormat string `json:"output_format"`
}

type OCRRequest struct {
	Owner        string `json:"-"`
	Input        File   `json:"input_pdf"`
	Language     string `json:"language" validate:"omitempty,max=64"`
	OutputFormat string `json:"output_format" validate:"omitempty,oneof=txt csv"`
}

// ConvertRequest converts each file on its own; an empty or unsupported file
// is reported as a failure of that file only.
type ConvertRequest struct {
	Owner string `json:"-"`
	Files []File `json:"files" validate:"required"`
}

// Result describes a single stored output.
type Result struct {
	Artifact  *artifact.Artifact `json:"artifact"`
	PageCount int                `json:"page_count"`
}

// CompressResult adds the size change. Compression rasterizes every page, so
// the output is always lossy.
type CompressResult struct {
	Result
	Profile        CompressionProfile `json:"compression_quality"`
	OriginalSize   int64              `json:"original_size"`
	CompressedSize int64              `json:"compressed_size"`
	Lossy          bool               `json:"lossy"`
}

// SplitResult lists one artifact per page group, in group order.
type SplitResult struct {
	Files []*artifact.Artifact `json:"files"`
	Pages [][]int              `json:"pages"`
}

type ImageResult struct {
	Result
	Format string `json:"format"`
	Images int    `json:"images"`
}

type OCRResult struct {
	Result
	TotalPages        int              `json:"total_pages"`
	ExistingTextPages int              `json:"existing_text_pages"`
	OCRPages          int              `json:"ocr_pages"`
	TextPreview       string           `json:"text_preview"`
	Pages             []ocr.PageResult `json:"pages"`
}

type ConvertResult struct {
	Converted []*artifact.Artifact `json:"converted"`
	Failed    []convert.Failure    `json:"failed"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest turns validator failures into a single VALIDATION_ERROR
// naming the first offending request field.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewValidationError(err.Error())
	}
	fe := verrs[0]
	field := requestField(fe.Namespace())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "nefield":
		msg = fmt.Sprintf("%s must differ from pdf_password", field)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return errors.NewValidationError(msg)
}

// requestField drops the struct name and any nested file field from a
// validator namespace, e.g. "MergeRequest.pdf_files[1].content" becomes "pdf_files[1]".
func requestField(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return namespace
	}
	return parts[1]
}

// checkInput validates the request and its single input file.
func checkInput(req interface{}, in File) error {
	if len(in.Data) == 0 {
		return errors.NewValidationError("input_pdf is required")
	}
	return validateRequest(req)
}
