package convert

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly report</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Revenue </w:t></w:r><w:r><w:tab/><w:t>grew</w:t></w:r></w:p>
    <w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"word/document.xml", body},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestConverter(workers int) (*Converter, *pdfcodec.Codec) {
	codec := pdfcodec.New("_owner", logging.NewNopLogger())
	return New(codec, workers, logging.NewNopLogger()), codec
}

func TestDetect(t *testing.T) {
	pdf, err := pdfutil.BuildTextPDF("hello")
	require.NoError(t, err)

	tests := []struct {
		name string
		file string
		data []byte
		want Format
	}{
		{"pdf", "a.pdf", pdf, FormatPDF},
		{"pdf with wrong extension", "a.txt", pdf, FormatPDF},
		{"docx", "report.docx", buildDOCX(t, documentXML), FormatDOCX},
		{"plain text", "notes.txt", []byte("just some notes\nand more"), FormatTXT},
		{"csv counts as text", "data.csv", []byte("a,b\n1,2\n"), FormatTXT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.file, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_RejectsUnsupported(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err := Detect("image.png", png)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestDocxText(t *testing.T) {
	text, err := docxText(buildDOCX(t, documentXML))
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\nRevenue \tgrew\nline one\nline two", text)

	_, err = docxText([]byte("not a zip"))
	assert.Error(t, err)
}

func TestConvert_EachFormat(t *testing.T) {
	conv, codec := newTestConverter(2)
	source, err := pdfutil.BuildPagesPDF([]string{"one", "two"})
	require.NoError(t, err)

	tests := []struct {
		in     Input
		format Format
		pages  int
		word   string
	}{
		{Input{Name: "scan.pdf", Data: source}, FormatPDF, 2, "one"},
		{Input{Name: "report.docx", Data: buildDOCX(t, documentXML)}, FormatDOCX, 1, "Quarterly"},
		{Input{Name: "notes.txt", Data: []byte("Meeting notes for Monday")}, FormatTXT, 1, "Meeting"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			out, err := conv.Convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.format, out.Format)
			assert.True(t, strings.HasSuffix(out.Name, ".pdf"))

			doc, err := codec.Decode(out.Name, out.Data)
			require.NoError(t, err)
			assert.Equal(t, tt.pages, doc.PageCount())
			assert.Contains(t, doc.Pages()[0].Text, tt.word)
		})
	}
}

func TestConvertBatch_ReportsPartialFailures(t *testing.T) {
	conv, _ := newTestConverter(2)
	inputs := []Input{
		{Name: "a.txt", Data: []byte("first file")},
		{Name: "broken.pdf", Data: []byte("%PDF-1.4 truncated garbage")},
		{Name: "b.txt", Data: []byte("second file")},
		{Name: "c.docx", Data: buildDOCX(t, "<w:document")},
	}

	res, err := conv.ConvertBatch(context.Background(), inputs)
	require.NoError(t, err)

	require.Len(t, res.Converted, 2)
	assert.Equal(t, "a.pdf", res.Converted[0].Name)
	assert.Equal(t, "b.pdf", res.Converted[1].Name)

	require.Len(t, res.Failed, 2)
	for _, f := range res.Failed {
		assert.Equal(t, errors.ErrorCodePartialFailure, f.Code)
		assert.NotEmpty(t, f.Error)
	}
	assert.Equal(t, "broken.pdf", res.Failed[0].Name)
	assert.Equal(t, "c.docx", res.Failed[1].Name)
}

func TestConvertBatch_AllFailing(t *testing.T) {
	conv, _ := newTestConverter(1)
	_, err := conv.ConvertBatch(context.Background(), []Input{{Name: "x.pdf", Data: []byte("%PDF-garbage")}})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = conv.ConvertBatch(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestConvertBatch_CancelledContext(t *testing.T) {
	conv, _ := newTestConverter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conv.ConvertBatch(ctx, []Input{{Name: "a.txt", Data: []byte("text")}})
	assert.ErrorIs(t, err, context.Canceled)
}
