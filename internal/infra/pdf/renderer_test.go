package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func jpegURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func pngURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func analyzedRecord(t *testing.T) *domain.Record {
	rec := domain.NewPendingRecord("r1", "acme", "photo.jpeg", 20480, "image/jpeg", jpegURI(t, 64, 48), time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	a := &domain.Analysis{
		Label:         "JUNIWARD",
		IQAScore:      0.82,
		Probabilities: map[string]float64{"JUNIWARD": 0.7, "JMiPOD": 0.2, "clean": 0.1},
	}
	require.NoError(t, rec.MarkAnalyzed(a, "## Summary\nPayload likely.\n\n1. Quarantine the file.\n- Risk of exfiltration", domain.ReportSourceLLM, rec.CreatedAt.Add(time.Minute)))
	return rec
}

func TestRender_NoFilteredImages(t *testing.T) {
	rec := analyzedRecord(t)
	require.Empty(t, rec.Analysis.FilteredImages)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).Render(&buf, rec))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
}

func TestRender_PendingRecord(t *testing.T) {
	rec := domain.NewPendingRecord("r2", "acme", "x.jpg", 10, "image/jpeg", "", time.Now())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).Render(&buf, rec))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
}

func TestRender_WithFilteredImages(t *testing.T) {
	rec := analyzedRecord(t)
	rec.Analysis.FilteredImages = []domain.FilteredImage{
		{Name: "dct-residual", DataURI: pngURI(t, 40, 40)},
		{Name: "srm", DataURI: jpegURI(t, 900, 300)},
	}

	doc, err := NewRenderer(nil).build(rec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, doc.PageCount(), 1)
}

func TestRender_SkipsBrokenImages(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := analyzedRecord(t)
	rec.Preview = "data:image/jpeg;base64,AAAAAAAA"
	rec.Analysis.FilteredImages = []domain.FilteredImage{
		{Name: "garbage", DataURI: "data:image/jpeg;base64,%%%"},
		{Name: "tiff", DataURI: "data:image/tiff;base64,AAAA"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(zap.New(core)).Render(&buf, rec))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Equal(t, 3, logs.FilterMessage("pdf image skipped").Len())
}

func TestRender_LongReportPaginates(t *testing.T) {
	rec := analyzedRecord(t)
	var b strings.Builder
	b.WriteString("# Detailed Findings\n")
	for i := 1; i <= 60; i++ {
		b.WriteString("**Finding**\n")
		b.WriteString("1. A fairly long recommendation line that needs to wrap across the usable width of the page at least once.\n")
	}
	rec.Report = b.String()

	doc, err := NewRenderer(nil).build(rec)
	require.NoError(t, err)
	assert.Greater(t, doc.PageCount(), 2)
}

func TestRender_UnicodeText(t *testing.T) {
	rec := analyzedRecord(t)
	rec.FileName = "café–naïve.jpeg"
	rec.Report = "“Quoted” text – with dashes… and ünïcödé"

	var buf bytes.Buffer
	assert.NoError(t, NewRenderer(nil).Render(&buf, rec))
}

func TestFitImage(t *testing.T) {
	cases := []struct {
		w, h, wantW, wantH float64
	}{
		{100, 50, 100, 50},
		{340, 100, 170, 50},
		{100, 240, 50, 120},
		{400, 400, 120, 120},
	}
	for _, tc := range cases {
		w, h := fitImage(tc.w, tc.h)
		assert.InDelta(t, tc.wantW, w, 1e-9)
		assert.InDelta(t, tc.wantH, h, 1e-9)
	}
}

func TestDecodeDataURI(t *testing.T) {
	_, typ, err := decodeDataURI("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "PNG", typ)

	_, typ, err = decodeDataURI("AAAA")
	require.NoError(t, err)
	assert.Equal(t, "JPG", typ)

	_, _, err = decodeDataURI("data:image/png,raw")
	assert.Error(t, err)
}
