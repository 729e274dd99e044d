package httpservice

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/errors"
)

// UploadedFile is one file part of a multipart request, read into memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// multipartForm parses the request body once. Read failures caused by the
// body size limit become PAYLOAD_TOO_LARGE.
func multipartForm(c *gin.Context) (*multipart.Form, error) {
	form, err := c.MultipartForm()
	if err == nil {
		return form, nil
	}
	if stderrors.Is(err, http.ErrNotMultipart) || stderrors.Is(err, http.ErrMissingBoundary) {
		return nil, errors.NewValidationError("Request must be multipart/form-data")
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return nil, errors.NewPayloadTooLargeError(tooLarge.Limit)
	}
	if strings.Contains(err.Error(), "request body too large") {
		return nil, errors.NewAppErrorWithErr(errors.ErrorCodePayloadTooLarge,
			"Request body exceeds the size limit", http.StatusRequestEntityTooLarge, err)
	}
	return nil, errors.NewAppErrorWithErr(errors.ErrorCodeValidation,
		"Invalid multipart form", http.StatusBadRequest, err)
}

// FormFile reads the single file uploaded under field. A missing field
// yields a nil file and no error so callers can report it in their own terms.
func FormFile(c *gin.Context, field string) (*UploadedFile, error) {
	files, err := FormFiles(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	if len(files) > 1 {
		return nil, errors.NewValidationError(fmt.Sprintf("%s accepts a single file", field))
	}
	return &files[0], nil
}

// FormFiles reads every file uploaded under field, in upload order.
func FormFiles(c *gin.Context, field string) ([]UploadedFile, error) {
	form, err := multipartForm(c)
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	files := make([]UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, errors.NewAppErrorWithErr(errors.ErrorCodeValidation,
				fmt.Sprintf("Could not read %s", fh.Filename), http.StatusBadRequest, err)
		}
		files = append(files, UploadedFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// FormString returns the trimmed value of field, or "" when absent.
func FormString(c *gin.Context, field string) string {
	return strings.TrimSpace(c.PostForm(field))
}

// FormBool parses field as a boolean, returning def when it is absent.
func FormBool(c *gin.Context, field string, def bool) (bool, error) {
	raw := FormString(c, field)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewValidationError(fmt.Sprintf("%s must be true or false", field))
	}
	return v, nil
}

// FormInt parses field as an integer, returning 0 when it is absent.
func FormInt(c *gin.Context, field string) (int, error) {
	raw := FormString(c, field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("%s must be an integer", field))
	}
	return v, nil
}

// FormOptionalInt parses field as an integer, returning nil when it is absent
// so that an explicit zero stays distinguishable.
func FormOptionalInt(c *gin.Context, field string) (*int, error) {
	if FormString(c, field) == "" {
		return nil, nil
	}
	v, err := FormInt(c, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FormFloat parses field as a number, returning 0 when it is absent.
func FormFloat(c *gin.Context, field string) (float64, error) {
	raw := FormString(c, field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("%s must be a number", field))
	}
	return v, nil
}

// FormIntList parses field as a list of integers. The value may be a JSON
// array ("[3,1,2]"), a comma separated list ("3,1,2"), or the field may be
// repeated. An absent field yields nil.
func FormIntList(c *gin.Context, field string) ([]int, error) {
	values := c.PostFormArray(field)
	invalid := errors.NewValidationError(fmt.Sprintf("%s must be a list of integers", field))

	var out []int
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "[") {
			var items []int
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return nil, invalid
			}
			out = append(out, items...)
			continue
		}
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			v, err := strconv.Atoi(item)
			if err != nil {
				return nil, invalid
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// HandleError renders err as {"error","code"} with its HTTP status and
// aborts the chain. Errors that are not AppErrors become 500 without
// exposing their text.
func HandleError(c *gin.Context, err error) {
	abortWithError(c, errors.FromError(err))
}

func abortWithError(c *gin.Context, appErr *errors.AppError) {
	if appErr.HandledByService {
		c.Header("X-Service-Handled", "true")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
}
