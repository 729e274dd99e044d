package mupdf

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
	"github.com/yourorg/pdf-service/pkg/raster"
)

func TestRenderer_NativeZoomIsOnePixelPerPoint(t *testing.T) {
	data, err := pdfutil.BuildPagesPDF([]string{"hello", "world"})
	require.NoError(t, err)

	err = NewRenderer(0, "").Open(data, func(doc raster.Document) error {
		assert.Equal(t, 2, doc.NumPage())

		native, err := doc.Render(0, raster.NativeZoom)
		require.NoError(t, err)
		assert.InDelta(t, pdfutil.A4.Width, native.Bounds().Dx(), 1)
		assert.InDelta(t, pdfutil.A4.Height, native.Bounds().Dy(), 1)

		double, err := doc.Render(1, raster.OCRZoom)
		require.NoError(t, err)
		assert.InDelta(t, 2*pdfutil.A4.Width, double.Bounds().Dx(), 2)
		return nil
	})
	require.NoError(t, err)
}

func TestRenderer_SpillsLargeDocumentsToTempFile(t *testing.T) {
	data, err := pdfutil.BuildPagesPDF([]string{"spill me"})
	require.NoError(t, err)
	dir := t.TempDir()

	err = NewRenderer(1, dir).Open(data, func(doc raster.Document) error {
		entries, readErr := os.ReadDir(dir)
		require.NoError(t, readErr)
		assert.Len(t, entries, 1, "document should be on disk while rendering")
		assert.Equal(t, 1, doc.NumPage())
		return nil
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed after rendering")
}

func TestRenderer_RejectsGarbage(t *testing.T) {
	err := NewRenderer(0, "").Open([]byte("garbage"), func(doc raster.Document) error {
		t.Fatal("callback must not run for unreadable input")
		return nil
	})
	assert.Error(t, err)
}
