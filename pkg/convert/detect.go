package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yourorg/pdf-service/pkg/errors"
)

// Format is one of the input kinds the converter understands.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip  = "application/zip"
	mimeText = "text/plain"
)

// Detect sniffs the content of data, using the file extension only to
// disambiguate generic containers such as zip.
func Detect(name string, data []byte) (Format, error) {
	mt := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case mt.Is(mimePDF):
		return FormatPDF, nil
	case mt.Is(mimeDOCX):
		return FormatDOCX, nil
	case mt.Is(mimeZip) && ext == ".docx":
		return FormatDOCX, nil
	case isText(mt):
		return FormatTXT, nil
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("Unsupported file type %s for %s; expected PDF, DOCX or TXT", mt.String(), name))
}

// isText reports whether mt is plain text or a text format derived from it.
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return true
		}
	}
	return false
}
