// Package export rasterizes the static page views of a document and
// assembles them into a PDF at the page-settings geometry.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/view"
)

// Region is one static page: its markup and its size in CSS pixels.
type Region struct {
	Index  int
	PageID string
	HTML   string
	Width  float64
	Height float64
}

// Rasterizer renders a region to an image, scale pixels per CSS pixel.
type Rasterizer interface {
	RenderRegionToImage(ctx context.Context, r Region, scale float64) (image.Image, error)
}

// DefaultScale is the raster resolution used when none is configured.
const DefaultScale = 2.0

// Regions returns the static projection of every page, in order.
func Regions(doc *document.Document) []Region {
	g := doc.Settings.Geometry()
	regions := make([]Region, len(doc.Pages))
	for i, p := range doc.Pages {
		regions[i] = Region{
			Index:  i,
			PageID: p.ID,
			HTML:   view.Static(p.HTML, doc.Settings, doc.AnnotationsFor(p.ID)),
			Width:  g.Width,
			Height: g.Height,
		}
	}
	return regions
}

type Exporter struct {
	raster Rasterizer
	scale  float64
	log    zerolog.Logger
}

type Option func(*Exporter)

func WithScale(scale float64) Option {
	return func(e *Exporter) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

func New(r Rasterizer, opts ...Option) *Exporter {
	e := &Exporter{raster: r, scale: DefaultScale, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Images rasterizes every page. It stops at the first failure.
func (e *Exporter) Images(ctx context.Context, doc *document.Document) ([]image.Image, error) {
	regions := Regions(doc)
	out := make([]image.Image, 0, len(regions))
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := e.raster.RenderRegionToImage(ctx, r, e.scale)
		if err != nil {
			return nil, fmt.Errorf("rasterizing page %d: %w", r.Index+1, err)
		}
		out = append(out, img)
		e.log.Debug().Int("page", r.Index+1).Msg("page rasterized")
	}
	return out, nil
}

// PDF writes doc to w as one full-bleed image per page. Nothing is written
// unless every page rasterizes.
func (e *Exporter) PDF(ctx context.Context, doc *document.Document, w io.Writer) error {
	imgs, err := e.Images(ctx, doc)
	if err != nil {
		return err
	}
	wMM, hMM := doc.Settings.SizeMM()
	size := gofpdf.SizeType{Wd: wMM, Ht: hMM}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{OrientationStr: "P", UnitStr: "mm", Size: size})
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("pageflow", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range imgs {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.AddPageFormat("P", size)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, wMM, hMM, false, opts, 0, "")
	}
	if pdf.Err() {
		return fmt.Errorf("assembling pdf: %w", pdf.Error())
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	e.log.Info().Str("document", doc.ID).Int("pages", len(imgs)).Msg("pdf exported")
	return nil
}

// FileName is the download name for doc's PDF.
func FileName(doc *document.Document) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '-'
		}
		return r
	}, doc.Title)
	return "Invoice-" + name + ".pdf"
}
