package text

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultSize is the base font size in CSS pixels.
const DefaultSize = 16.0

// LineHeightFactor approximates line-height: normal.
const LineHeightFactor = 1.2

// Face describes the font a run of text is set in.
type Face struct {
	Size   float64
	Bold   bool
	Italic bool
	Mono   bool
}

// DefaultFace is 16px regular.
func DefaultFace() Face { return Face{Size: DefaultSize} }

// Measurer reports text advances. Layout and the rasterizer must share one
// so that what is measured is what is drawn.
type Measurer interface {
	Advance(s string, f Face) float64
	LineHeight(f Face) float64
}

// FontConfig holds paths to font files that replace the bundled Go fonts.
// Empty fields fall back to the bundled face of the same style.
type FontConfig struct {
	Regular    string
	Bold       string
	Italic     string
	BoldItalic string
	Monospace  string
	MonoBold   string
}

// FontPath returns the font path for the given style combination.
func (fc FontConfig) FontPath(f Face) string {
	if f.Mono {
		if f.Bold && fc.MonoBold != "" {
			return fc.MonoBold
		}
		return fc.Monospace
	}
	switch {
	case f.Bold && f.Italic:
		return fc.BoldItalic
	case f.Bold:
		return fc.Bold
	case f.Italic:
		return fc.Italic
	}
	return fc.Regular
}

func bundledTTF(f Face) []byte {
	if f.Mono {
		if f.Bold {
			return gomonobold.TTF
		}
		return gomono.TTF
	}
	switch {
	case f.Bold && f.Italic:
		return gobolditalic.TTF
	case f.Bold:
		return gobold.TTF
	case f.Italic:
		return goitalic.TTF
	}
	return goregular.TTF
}

// GGMeasurer measures with gg on real font faces. Faces are cached per
// style and size. Safe for concurrent use.
type GGMeasurer struct {
	config FontConfig

	mu    sync.Mutex
	fonts map[Face]*truetype.Font
	faces map[Face]font.Face
	dc    *gg.Context
}

func NewGGMeasurer(config FontConfig) *GGMeasurer {
	return &GGMeasurer{
		config: config,
		fonts:  make(map[Face]*truetype.Font),
		faces:  make(map[Face]font.Face),
		dc:     gg.NewContext(1, 1),
	}
}

func styleKey(f Face) Face {
	return Face{Bold: f.Bold, Italic: f.Italic, Mono: f.Mono}
}

func (m *GGMeasurer) loadFont(f Face) (*truetype.Font, error) {
	key := styleKey(f)
	if ft, ok := m.fonts[key]; ok {
		return ft, nil
	}
	var ft *truetype.Font
	if path := m.config.FontPath(f); path != "" {
		ttf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading font %s: %w", path, err)
		}
		if ft, err = truetype.Parse(ttf); err != nil {
			return nil, fmt.Errorf("parsing font %s: %w", path, err)
		}
	} else {
		var err error
		if ft, err = truetype.Parse(bundledTTF(f)); err != nil {
			return nil, fmt.Errorf("parsing bundled font: %w", err)
		}
	}
	m.fonts[key] = ft
	return ft, nil
}

// FontFace returns a new face for f, for drawing with gg. Faces keep glyph
// buffers, so the caller owns the returned face and must not share it
// between goroutines.
func (m *GGMeasurer) FontFace(f Face) (font.Face, error) {
	if f.Size <= 0 {
		f.Size = DefaultSize
	}
	m.mu.Lock()
	ft, err := m.loadFont(f)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return newFace(ft, f.Size), nil
}

func newFace(ft *truetype.Font, size float64) font.Face {
	return truetype.NewFace(ft, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

func (m *GGMeasurer) face(f Face) (font.Face, error) {
	if f.Size <= 0 {
		f.Size = DefaultSize
	}
	if fc, ok := m.faces[f]; ok {
		return fc, nil
	}
	ft, err := m.loadFont(f)
	if err != nil {
		return nil, err
	}
	fc := newFace(ft, f.Size)
	m.faces[f] = fc
	return fc, nil
}

func (m *GGMeasurer) Advance(s string, f Face) float64 {
	if s == "" {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fc, err := m.face(f)
	if err != nil {
		// If font loading fails, return rough estimate
		return float64(utf8.RuneCountInString(s)) * f.Size * 0.6
	}
	m.dc.SetFontFace(fc)
	w, _ := m.dc.MeasureString(s)
	return w
}

func (m *GGMeasurer) LineHeight(f Face) float64 {
	if f.Size <= 0 {
		return DefaultSize * LineHeightFactor
	}
	return f.Size * LineHeightFactor
}

// FixedMeasurer gives every rune the same advance, a fraction of the font
// size, like the Ahem test font. Layout results are exact and font-free.
type FixedMeasurer struct {
	// Ratio is the advance per rune in ems. Zero means 0.5.
	Ratio float64
}

func (m FixedMeasurer) ratio() float64 {
	if m.Ratio <= 0 {
		return 0.5
	}
	return m.Ratio
}

func (m FixedMeasurer) Advance(s string, f Face) float64 {
	size := f.Size
	if size <= 0 {
		size = DefaultSize
	}
	return float64(utf8.RuneCountInString(s)) * size * m.ratio()
}

func (m FixedMeasurer) LineHeight(f Face) float64 {
	if f.Size <= 0 {
		return DefaultSize * LineHeightFactor
	}
	return f.Size * LineHeightFactor
}

// BreakLines breaks text into lines where the first line fits within
// firstLineMax and subsequent lines fit within remainingMax. Whitespace runs
// collapse to one space. A word wider than a whole line is broken between
// runes.
func BreakLines(m Measurer, text string, f Face, firstLineMax, remainingMax float64) []string {
	words := SplitWords(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0)
	currentLine := ""
	maxWidth := firstLineMax

	flush := func() {
		lines = append(lines, currentLine)
		currentLine = ""
		maxWidth = remainingMax
	}

	for _, word := range words {
		testLine := word
		if currentLine != "" {
			testLine = currentLine + " " + word
		}
		if m.Advance(testLine, f) <= maxWidth {
			currentLine = testLine
			continue
		}
		if currentLine != "" {
			flush()
		}
		for m.Advance(word, f) > maxWidth {
			head, tail := SplitToFit(m, word, f, maxWidth)
			currentLine = head
			flush()
			word = tail
		}
		currentLine = word
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}

// SplitToFit cuts word at the longest rune prefix no wider than max. The
// prefix always holds at least one rune.
func SplitToFit(m Measurer, word string, f Face, max float64) (string, string) {
	runes := []rune(word)
	lo, hi := 1, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.Advance(string(runes[:mid]), f) <= max {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo]), string(runes[lo:])
}

// IsSpace reports collapsible whitespace. No-break space is content.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// SplitWords splits text on collapsible whitespace.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, IsSpace)
}

// WordBoundaries returns the rune offsets where a word starts, excluding 0.
// Cutting text at any of them never splits a word.
func WordBoundaries(text string) []int {
	var out []int
	prevSpace := false
	i := 0
	for _, r := range text {
		space := IsSpace(r)
		if i > 0 && prevSpace && !space {
			out = append(out, i)
		}
		prevSpace = space
		i++
	}
	return out
}
