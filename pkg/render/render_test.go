package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
	"pageflow/pkg/export"
	"pageflow/pkg/page"
	"pageflow/pkg/text"
	"pageflow/pkg/visualtest"
)

func newRasterizer() *Rasterizer {
	return New(text.NewGGMeasurer(text.FontConfig{}))
}

func a5(pages ...string) *document.Document {
	doc := document.FromPages("T", pages)
	doc.Settings.PaperSize = page.A5
	return doc
}

func rgb(img image.Image, x, y float64) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(int(x), int(y)).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func assertColor(t *testing.T, img image.Image, x, y float64, want color.RGBA) {
	t.Helper()
	r, g, b := rgb(img, x, y)
	assert.Equal(t, [3]uint8{want.R, want.G, want.B}, [3]uint8{r, g, b}, "pixel %v,%v", x, y)
}

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func render(t *testing.T, doc *document.Document, scale float64) image.Image {
	t.Helper()
	img, err := newRasterizer().RenderRegionToImage(context.Background(), export.Regions(doc)[0], scale)
	require.NoError(t, err)
	return img
}

func TestPageSize(t *testing.T) {
	doc := a5("")
	g := doc.Settings.Geometry()
	for _, scale := range []float64{1, 2} {
		img := render(t, doc, scale)
		assert.Equal(t, int(math.Ceil(g.Width*scale)), img.Bounds().Dx())
		assert.Equal(t, int(math.Ceil(g.Height*scale)), img.Bounds().Dy())
		assertColor(t, img, 1, 1, white)
	}
}

func TestRuleIsPaintedInsideMargins(t *testing.T) {
	img := render(t, a5(`<hr style="width: 100%; height: 10px; background-color: #ff0000; border: none; margin: 10px 0">`), 1)
	m := page.MMToPx(20)
	assertColor(t, img, m+50, m+15, red)
	assertColor(t, img, m-5, m+15, white)
	assertColor(t, img, m+50, m+25, white)
}

func TestTextIsDrawn(t *testing.T) {
	img := render(t, a5("<p>Hello World</p>"), 1)
	m := page.MMToPx(20)
	dark := 0
	for y := m + 16; y < m+16+19.2; y++ {
		for x := m; x < m+100; x++ {
			if r, _, _ := rgb(img, x, y); r < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 20)
}

func TestBodyClipsOverflow(t *testing.T) {
	doc := a5(`<div style="height: 2000px; background-color: #0000ff"></div>`)
	img := render(t, doc, 1)
	g := doc.Settings.Geometry()
	bottom := g.Height - g.Margin.Bottom
	assertColor(t, img, g.Width/2, bottom-10, blue)
	assertColor(t, img, g.Width/2, bottom+10, white)
}

func pngDataURI(t *testing.T, c color.Color) string {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestAnnotationsAndImages(t *testing.T) {
	doc := a5(`<img src="` + pngDataURI(t, blue) + `" style="width: 40px; height: 40px">`)
	a, err := doc.AddAnnotation(doc.Pages[0].ID, pngDataURI(t, red))
	require.NoError(t, err)
	img := render(t, doc, 1)

	assertColor(t, img, a.X+a.Width/2, a.Y+a.Height/2, red)
	m := page.MMToPx(20)
	assertColor(t, img, m+20, m+20, blue)
}

func TestBrokenImagePlaceholder(t *testing.T) {
	img := render(t, a5(`<img src="missing.png" style="width: 100px; height: 80px">`), 1)
	m := page.MMToPx(20)
	r, g, b := rgb(img, m+80, m+10)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
	assert.Less(t, r, uint8(255))
}

func TestInvalidRegions(t *testing.T) {
	r := newRasterizer()
	region := export.Regions(a5(""))[0]
	_, err := r.RenderRegionToImage(context.Background(), region, 0)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderRegionToImage(ctx, region, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportPDF(t *testing.T) {
	var out bytes.Buffer
	err := export.New(newRasterizer(), export.WithScale(0.5)).PDF(context.Background(), a5("<p>one</p>", "<p>two</p>"), &out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
}

func TestPaintMatchesExpectedBoxes(t *testing.T) {
	r := newRasterizer()
	img, err := r.Paint(`<div style="position: absolute; left: 10px; top: 5px; width: 20px; height: 10px; background-color: #ff0000"></div>`+
		`<div style="position: absolute; left: 40px; top: 20px; width: 10px; height: 10px; background-color: #0000ff"></div>`, 60, 40, 2)
	require.NoError(t, err)

	want := visualtest.Canvas(120, 80, color.White)
	visualtest.FillRect(want, image.Rect(20, 10, 60, 30), color.RGBA{R: 255, A: 255})
	visualtest.FillRect(want, image.Rect(80, 40, 100, 60), color.RGBA{B: 255, A: 255})
	visualtest.AssertMatch(t, img, want, visualtest.Options{Tolerance: 2, FuzzyRadius: 1})
}

func TestRenderingIsDeterministic(t *testing.T) {
	doc := a5("<h1>Invoice</h1><p>Line <b>one</b> and <i>two</i></p><hr><p>Total: 40</p>")
	region := export.Regions(doc)[0]
	first, err := newRasterizer().RenderRegionToImage(context.Background(), region, 1)
	require.NoError(t, err)
	second, err := newRasterizer().RenderRegionToImage(context.Background(), region, 1)
	require.NoError(t, err)
	visualtest.AssertMatch(t, second, first, visualtest.Options{})
}

func TestConcurrentRendersShareRasterizer(t *testing.T) {
	r := newRasterizer()
	doc := a5("<h1>Invoice</h1><p>Line <b>one</b> and <i>two</i></p><p>Total: 40</p>")
	region := export.Regions(doc)[0]
	want, err := r.RenderRegionToImage(context.Background(), region, 1)
	require.NoError(t, err)

	const workers = 4
	got := make([]image.Image, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = r.RenderRegionToImage(context.Background(), region, 1)
		}()
	}
	wg.Wait()
	for i := range workers {
		require.NoError(t, errs[i])
		visualtest.AssertMatch(t, got[i], want, visualtest.Options{})
	}
}
