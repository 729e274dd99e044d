package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/blobclient"
	"github.com/yourorg/pdf-service/pkg/convert"
	"github.com/yourorg/pdf-service/pkg/httpservice"
	"github.com/yourorg/pdf-service/pkg/jwt"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/ocr"
	"github.com/yourorg/pdf-service/pkg/pdfcodec"
	"github.com/yourorg/pdf-service/pkg/pdfops"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
	"github.com/yourorg/pdf-service/pkg/raster/rastertest"
	"github.com/yourorg/pdf-service/pkg/servicebusclient"
)

const testSecret = "a-test-secret-that-is-long-enough-for-hs256"

type stubRecognizer struct{}

func (stubRecognizer) Recognize(ctx context.Context, image []byte, language string) (ocr.Recognition, error) {
	return ocr.Recognition{Text: "recognized text", Words: []ocr.Word{{Text: "recognized", Confidence: 90}}}, nil
}

type testEnv struct {
	router *gin.Engine
	bus    *servicebusclient.MemoryServiceBusClient
	tokens *jwt.JWTService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.NewNopLogger()

	bus := servicebusclient.NewMemoryServiceBusClient()
	store := artifact.NewStore(blobclient.NewMemoryBlobClient(), "pdf", artifact.NewMemoryRepository(), logger,
		artifact.WithPublisher(artifact.NewPublisher(bus, "artifacts")))
	codec := pdfcodec.New("_owner", logger)
	renderer := rastertest.New()
	svc := pdfops.New(codec, renderer, ocr.NewEngine(renderer, stubRecognizer{}, logger), convert.New(codec, 2, logger),
		store, nil, pdfops.Options{MaxConcurrentJobs: 2, OperationTimeout: time.Minute}, logger)

	tokens, err := jwt.NewJWTService(testSecret, "pdf-service", time.Minute, logger)
	require.NoError(t, err)

	srv, err := httpservice.NewServer(httpservice.ServerConfig{
		ServiceName: "pdf-service",
		Logger:      logger,
		MaxBodySize: 8 << 20,
	}, New(svc, store, jwt.OptionalJWTMiddleware(tokens, logger)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{router: srv.Router(), bus: bus, tokens: tokens}
}

type part struct {
	field string
	name  string
	data  []byte
}

func fileOf(t *testing.T, field, name string, pages ...string) part {
	t.Helper()
	data, err := pdfutil.BuildPagesPDF(pages)
	require.NoError(t, err)
	return part{field: field, name: name, data: data}
}

func form(t *testing.T, files []part, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		p, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = p.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, path, token string, files []part, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := form(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pdf"+path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) download(t *testing.T, id, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pdf/artifacts/"+id, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	assert.NotEmpty(t, body.Error)
	return body.Code
}

func TestMergeThenDownload(t *testing.T) {
	env := newEnv(t)

	w := env.post(t, "/merge", "", []part{
		fileOf(t, "pdf_files", "a.pdf", "first", "second"),
		fileOf(t, "pdf_files", "b.pdf", "third"),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.JSONEq(t, `"2 PDF files merged successfully"`, string(body["message"]))
	var merged pdfops.Result
	require.NoError(t, json.Unmarshal(body["merged_pdf"], &merged))
	assert.Equal(t, 3, merged.PageCount)
	require.NotNil(t, merged.Artifact)
	assert.Equal(t, pdfops.AnonymousOwner, merged.Artifact.Owner)
	assert.Equal(t, "merged.pdf", merged.Artifact.Filename)

	dl := env.download(t, merged.Artifact.ID, "")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/pdf", dl.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=merged.pdf`, dl.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", dl.Header().Get("X-Page-Count"))
	assert.True(t, bytes.HasPrefix(dl.Body.Bytes(), []byte("%PDF")))

	assert.Len(t, env.bus.Messages("artifacts"), 1)
}

func TestMerge_NeedsTwoFiles(t *testing.T) {
	env := newEnv(t)

	w := env.post(t, "/merge", "", []part{fileOf(t, "pdf_files", "a.pdf", "only")}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INSUFFICIENT_INPUTS", errorCode(t, w))
}

func TestProtect(t *testing.T) {
	env := newEnv(t)
	in := fileOf(t, "input_pdf", "report.pdf", "secret")

	t.Run("missing input", func(t *testing.T) {
		w := env.post(t, "/protect", "", nil, map[string]string{"pdf_password": "pw"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("missing password", func(t *testing.T) {
		w := env.post(t, "/protect", "", []part{in}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "pdf_password is required")
	})

	t.Run("invalid permission flag", func(t *testing.T) {
		w := env.post(t, "/protect", "", []part{in}, map[string]string{"pdf_password": "pw", "allow_printing": "sometimes"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("protect then unlock", func(t *testing.T) {
		w := env.post(t, "/protect", "", []part{in}, map[string]string{"pdf_password": "pw", "allow_editing": "true"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var protected pdfops.Result
		require.NoError(t, json.Unmarshal(decode(t, w)["protected_pdf"], &protected))

		dl := env.download(t, protected.Artifact.ID, "")
		require.Equal(t, http.StatusOK, dl.Code)
		locked := part{field: "input_pdf", name: "report.pdf", data: dl.Body.Bytes()}

		w = env.post(t, "/unlock", "", []part{locked}, map[string]string{"password": "wrong"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "WRONG_PASSWORD", errorCode(t, w))

		w = env.post(t, "/unlock", "", []part{locked}, map[string]string{"password": "pw"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var unlocked pdfops.Result
		require.NoError(t, json.Unmarshal(decode(t, w)["unlocked_pdf"], &unlocked))
		assert.Equal(t, 1, unlocked.PageCount)
	})
}

func TestSplit(t *testing.T) {
	env := newEnv(t)
	in := fileOf(t, "input_pdf", "book.pdf", "1", "2", "3", "4", "5")

	w := env.post(t, "/split", "", []part{in}, map[string]string{"split_type": "pages", "pages_per_split": "2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.JSONEq(t, `"PDF split into 3 files"`, string(body["message"]))
	var res pdfops.SplitResult
	require.NoError(t, json.Unmarshal(body["split_pdfs"], &res))
	assert.Len(t, res.Files, 3)

	w = env.post(t, "/split", "", []part{in}, map[string]string{"split_type": "range", "start_page": "4", "end_page": "9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RANGE", errorCode(t, w))

	w = env.post(t, "/split", "", []part{in}, map[string]string{"start_page": "0", "end_page": "2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RANGE", errorCode(t, w))

	w = env.post(t, "/split", "", []part{in}, map[string]string{"start_page": "two"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestOrganize(t *testing.T) {
	env := newEnv(t)
	in := fileOf(t, "input_pdf", "deck.pdf", "a", "b", "c")

	w := env.post(t, "/organize", "", []part{in}, map[string]string{"user_order": "[3,1,2]"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res pdfops.Result
	require.NoError(t, json.Unmarshal(decode(t, w)["organized_pdf"], &res))
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, "deck_organized.pdf", res.Artifact.Filename)

	w = env.post(t, "/organize", "", []part{in}, map[string]string{"delete_pages": "2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, w)["organized_pdf"], &res))
	assert.Equal(t, 2, res.PageCount)

	w = env.post(t, "/organize", "", []part{in}, map[string]string{"user_order": "1,1,2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ORDER", errorCode(t, w))

	w = env.post(t, "/organize", "", []part{in}, map[string]string{"delete_pages": "7"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PAGE_INDEX", errorCode(t, w))
}

func TestCompress(t *testing.T) {
	env := newEnv(t)
	in := fileOf(t, "input_pdf", "big.pdf", "x", "y")

	w := env.post(t, "/compress", "", []part{in}, map[string]string{"compression_quality": "less"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res pdfops.CompressResult
	require.NoError(t, json.Unmarshal(decode(t, w)["compressed_pdf"], &res))
	assert.Equal(t, pdfops.CompressionLess, res.Profile)
	assert.Positive(t, res.OriginalSize)

	w = env.post(t, "/compress", "", []part{in}, map[string]string{"compression_quality": "tiny"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "compression_quality must be one of")
}

func TestToImageAndOCR(t *testing.T) {
	env := newEnv(t)
	in := fileOf(t, "input_pdf", "scan.pdf", "", "")

	w := env.post(t, "/to-image", "", []part{in}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.JSONEq(t, `"2 pages converted to images"`, string(body["message"]))

	w = env.post(t, "/ocr", "", []part{in}, map[string]string{"language": "eng"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res pdfops.OCRResult
	require.NoError(t, json.Unmarshal(decode(t, w)["ocr_result"], &res))
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 2, res.OCRPages)
	assert.Contains(t, res.TextPreview, "recognized text")

	w = env.post(t, "/ocr", "", []part{in}, map[string]string{"output_format": "docx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvert_ReportsPerFileFailures(t *testing.T) {
	env := newEnv(t)

	w := env.post(t, "/convert", "", []part{
		{field: "files", name: "notes.txt", data: []byte("plain text notes")},
		{field: "files", name: "photo.png", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.JSONEq(t, `"1 of 2 files converted"`, string(body["message"]))
	var res pdfops.ConvertResult
	require.NoError(t, json.Unmarshal(body["conversion"], &res))
	require.Len(t, res.Converted, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "photo.png", res.Failed[0].Name)
}

func TestOwnership(t *testing.T) {
	env := newEnv(t)
	alice, err := env.tokens.GenerateAccessToken("alice")
	require.NoError(t, err)
	bob, err := env.tokens.GenerateAccessToken("bob")
	require.NoError(t, err)

	w := env.post(t, "/merge", alice, []part{
		fileOf(t, "pdf_files", "a.pdf", "1"),
		fileOf(t, "pdf_files", "b.pdf", "2"),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var merged pdfops.Result
	require.NoError(t, json.Unmarshal(decode(t, w)["merged_pdf"], &merged))
	assert.Equal(t, "alice", merged.Artifact.Owner)

	assert.Equal(t, http.StatusOK, env.download(t, merged.Artifact.ID, alice).Code)
	assert.Equal(t, http.StatusNotFound, env.download(t, merged.Artifact.ID, bob).Code)
	assert.Equal(t, http.StatusNotFound, env.download(t, merged.Artifact.ID, "").Code)
}

func TestRejectsBadToken(t *testing.T) {
	env := newEnv(t)

	w := env.post(t, "/merge", "not.a.token", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestDownload_Unknown(t *testing.T) {
	env := newEnv(t)

	for _, id := range []string{"00000000-0000-4000-8000-000000000000", "not-a-uuid"} {
		w := env.download(t, id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	}
}

func TestRequiresMultipart(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pdf/merge", strings.NewReader(`{"pdf_files":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}
