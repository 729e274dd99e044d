package raster_test

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
	"github.com/yourorg/pdf-service/pkg/raster"
	"github.com/yourorg/pdf-service/pkg/raster/rastertest"
)

func renderOne(t *testing.T) image.Image {
	t.Helper()
	data, err := pdfutil.BuildPagesPDF([]string{"one"})
	require.NoError(t, err)

	var img image.Image
	err = rastertest.New().Open(data, func(doc raster.Document) error {
		var renderErr error
		img, renderErr = doc.Render(0, raster.NativeZoom)
		return renderErr
	})
	require.NoError(t, err)
	return img
}

func TestToJPEG_QualityOrdersSize(t *testing.T) {
	img := renderOne(t)

	low, err := raster.ToJPEG(img, 10)
	require.NoError(t, err)
	mid, err := raster.ToJPEG(img, 50)
	require.NoError(t, err)
	high, err := raster.ToJPEG(img, 100)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(low), len(mid))
	assert.LessOrEqual(t, len(mid), len(high))

	decoded, err := jpeg.Decode(bytes.NewReader(low))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())
}

func TestToJPEG_ClampsQuality(t *testing.T) {
	img := renderOne(t)

	_, err := raster.ToJPEG(img, 0)
	assert.NoError(t, err)
	_, err = raster.ToJPEG(img, 250)
	assert.NoError(t, err)
}

func TestRenderAllJPEG(t *testing.T) {
	data, err := pdfutil.BuildPagesPDF([]string{"one", "two", "three"})
	require.NoError(t, err)

	pages, err := raster.RenderAllJPEG(rastertest.New(), data, raster.OCRZoom, 80)
	require.NoError(t, err)

	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, 120, p.Width)
		assert.Equal(t, 160, p.Height)
		assert.NotEmpty(t, p.JPEG)
	}
}

func TestRenderAllJPEG_PropagatesRenderError(t *testing.T) {
	data, err := pdfutil.BuildPagesPDF([]string{"one"})
	require.NoError(t, err)

	r := rastertest.New()
	r.Err = errors.New("renderer crashed")

	_, err = raster.RenderAllJPEG(r, data, raster.NativeZoom, 80)
	assert.ErrorIs(t, err, r.Err)
}
