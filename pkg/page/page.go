// Package page holds paper geometry for fixed-size pages.
package page

import (
	"fmt"
	"strings"

	"pageflow/pkg/css"
)

type PaperSize string

const (
	A4     PaperSize = "A4"
	A5     PaperSize = "A5"
	Letter PaperSize = "Letter"
	Legal  PaperSize = "Legal"
)

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// paperMM is portrait width x height in millimetres.
var paperMM = map[PaperSize][2]float64{
	A4:     {210, 297},
	A5:     {148, 210},
	Letter: {215.9, 279.4},
	Legal:  {215.9, 355.6},
}

// Margins in millimetres.
type Margins struct {
	Top    float64 `json:"top" toml:"top"`
	Bottom float64 `json:"bottom" toml:"bottom"`
	Left   float64 `json:"left" toml:"left"`
	Right  float64 `json:"right" toml:"right"`
}

type Settings struct {
	PaperSize   PaperSize   `json:"paperSize" toml:"paper_size"`
	Orientation Orientation `json:"orientation" toml:"orientation"`
	Margins     Margins     `json:"margins" toml:"margins"`
}

// DefaultSettings is A4 portrait with 20mm margins.
func DefaultSettings() Settings {
	return Settings{
		PaperSize:   A4,
		Orientation: Portrait,
		Margins:     Margins{Top: 20, Bottom: 20, Left: 20, Right: 20},
	}
}

// ParsePaperSize accepts any casing of the known sizes.
func ParsePaperSize(s string) (PaperSize, error) {
	for p := range paperMM {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown paper size %q", s)
}

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(s) {
	case "portrait", "":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// Validate reports unknown paper sizes and margins that leave no content box.
func (s Settings) Validate() error {
	if _, ok := paperMM[s.PaperSize]; !ok {
		return fmt.Errorf("unknown paper size %q", s.PaperSize)
	}
	if s.Orientation != Portrait && s.Orientation != Landscape {
		return fmt.Errorf("unknown orientation %q", s.Orientation)
	}
	w, h := s.SizeMM()
	m := s.Margins
	if m.Top < 0 || m.Bottom < 0 || m.Left < 0 || m.Right < 0 {
		return fmt.Errorf("negative margin")
	}
	if m.Left+m.Right >= w || m.Top+m.Bottom >= h {
		return fmt.Errorf("margins leave no content area on %s", s.PaperSize)
	}
	return nil
}

// SizeMM returns the oriented page size in millimetres. Unknown sizes fall
// back to A4.
func (s Settings) SizeMM() (w, h float64) {
	dims, ok := paperMM[s.PaperSize]
	if !ok {
		dims = paperMM[A4]
	}
	w, h = dims[0], dims[1]
	if s.Orientation == Landscape {
		w, h = h, w
	}
	return w, h
}

// MMToPx converts at 96 px per inch.
func MMToPx(mm float64) float64 { return mm * css.PxPerMM }

// Geometry is a page in CSS pixels.
type Geometry struct {
	Width, Height float64
	Margin        css.BoxEdge
	ContentWidth  float64
	ContentHeight float64
}

// Geometry returns the page box and its usable content box in pixels.
func (s Settings) Geometry() Geometry {
	w, h := s.SizeMM()
	g := Geometry{
		Width:  MMToPx(w),
		Height: MMToPx(h),
		Margin: css.BoxEdge{
			Top:    MMToPx(s.Margins.Top),
			Right:  MMToPx(s.Margins.Right),
			Bottom: MMToPx(s.Margins.Bottom),
			Left:   MMToPx(s.Margins.Left),
		},
	}
	g.ContentWidth = g.Width - g.Margin.Horizontal()
	g.ContentHeight = g.Height - g.Margin.Vertical()
	return g
}
