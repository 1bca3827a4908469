package css

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Style is a parsed inline style attribute. Declaration order is kept so a
// style written back to a fragment stays byte-stable across round trips.
type Style struct {
	Properties map[string]string
	order      []string
}

func NewStyle() *Style {
	return &Style{Properties: make(map[string]string)}
}

func (s *Style) Get(property string) (string, bool) {
	val, ok := s.Properties[property]
	return val, ok
}

func (s *Style) Set(property, value string) {
	if _, ok := s.Properties[property]; !ok {
		s.order = append(s.order, property)
	}
	s.Properties[property] = value
}

func (s *Style) Delete(property string) {
	if _, ok := s.Properties[property]; !ok {
		return
	}
	delete(s.Properties, property)
	for i, p := range s.order {
		if p == property {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of declarations.
func (s *Style) Len() int { return len(s.order) }

// String serializes the declarations in insertion order.
func (s *Style) String() string {
	parts := make([]string, 0, len(s.order))
	for _, p := range s.order {
		parts = append(parts, p+": "+s.Properties[p])
	}
	return strings.Join(parts, "; ")
}

// ParseInlineStyle parses a style attribute. Shorthands are stored as
// written; the getters below expand them on read.
func ParseInlineStyle(styleAttr string) *Style {
	style := NewStyle()
	for _, decl := range strings.Split(styleAttr, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		property := strings.TrimSpace(strings.ToLower(parts[0]))
		value := strings.TrimSpace(parts[1])
		if property == "" {
			continue
		}
		style.Set(property, value)
	}
	return style
}

// Length units relative to CSS pixels (96 per inch).
const (
	PxPerInch = 96.0
	PxPerMM   = PxPerInch / 25.4
	PxPerPt   = PxPerInch / 72.0
)

// ParseLength parses a length value (e.g., "100px", "20mm" or "100"). Relative
// units resolve against em (font size) and pct (the percentage base).
func ParseLength(val string) (float64, bool) {
	return ParseLengthRelative(val, 16, 0)
}

func ParseLengthRelative(val string, em, pct float64) (float64, bool) {
	val = strings.ToLower(strings.TrimSpace(val))
	if val == "" || val == "auto" {
		return 0, false
	}
	scale := 1.0
	switch {
	case strings.HasSuffix(val, "px"):
		val = strings.TrimSuffix(val, "px")
	case strings.HasSuffix(val, "mm"):
		val, scale = strings.TrimSuffix(val, "mm"), PxPerMM
	case strings.HasSuffix(val, "cm"):
		val, scale = strings.TrimSuffix(val, "cm"), PxPerMM*10
	case strings.HasSuffix(val, "pt"):
		val, scale = strings.TrimSuffix(val, "pt"), PxPerPt
	case strings.HasSuffix(val, "in"):
		val, scale = strings.TrimSuffix(val, "in"), PxPerInch
	case strings.HasSuffix(val, "rem"):
		val, scale = strings.TrimSuffix(val, "rem"), 16
	case strings.HasSuffix(val, "em"):
		val, scale = strings.TrimSuffix(val, "em"), em
	case strings.HasSuffix(val, "%"):
		if pct <= 0 {
			return 0, false
		}
		val, scale = strings.TrimSuffix(val, "%"), pct/100
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, false
	}
	return num * scale, true
}

// FormatPx renders a pixel length the way gestures write it back.
func FormatPx(v float64) string {
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func (s *Style) GetLength(property string) (float64, bool) {
	val, ok := s.Get(property)
	if !ok {
		return 0, false
	}
	return ParseLength(val)
}

// BoxEdge represents the four sides of a box (top, right, bottom, left)
type BoxEdge struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Vertical is Top+Bottom.
func (e BoxEdge) Vertical() float64 { return e.Top + e.Bottom }

// Horizontal is Left+Right.
func (e BoxEdge) Horizontal() float64 { return e.Left + e.Right }

// GetMargin returns the margin values for all four sides
func (s *Style) GetMargin() BoxEdge {
	return s.boxProperty("margin")
}

// GetPadding returns the padding values for all four sides
func (s *Style) GetPadding() BoxEdge {
	return s.boxProperty("padding")
}

// GetBorderWidth returns the border width for all four sides. Per-side
// shorthands override "border" and "border-width".
func (s *Style) GetBorderWidth() BoxEdge {
	w := 0.0
	if v, ok := s.Get("border"); ok {
		w = borderWidth(v)
	}
	if v, ok := s.Get("border-width"); ok {
		if l, ok := ParseLength(v); ok {
			w = l
		}
	}
	e := BoxEdge{Top: w, Right: w, Bottom: w, Left: w}
	for side, dst := range map[string]*float64{"top": &e.Top, "right": &e.Right, "bottom": &e.Bottom, "left": &e.Left} {
		if v, ok := s.Get("border-" + side); ok {
			*dst = borderWidth(v)
		}
	}
	return e
}

func borderWidth(value string) float64 {
	fields := strings.Fields(value)
	if len(fields) > 0 && fields[0] == "none" {
		return 0
	}
	for _, part := range fields {
		if l, ok := ParseLength(part); ok {
			return l
		}
	}
	if len(fields) > 0 {
		return 1
	}
	return 0
}

// boxProperty expands margin/padding shorthand and lets longhands override.
// Supports: "10px" (all), "10px 20px" (vertical horizontal),
// "10px 20px 30px" (top h bottom), "10px 20px 30px 40px" (t r b l)
func (s *Style) boxProperty(prefix string) BoxEdge {
	var e BoxEdge
	if v, ok := s.Get(prefix); ok {
		parts := strings.Fields(v)
		vals := make([]float64, len(parts))
		for i, p := range parts {
			vals[i], _ = ParseLength(p)
		}
		switch len(vals) {
		case 1:
			e = BoxEdge{vals[0], vals[0], vals[0], vals[0]}
		case 2:
			e = BoxEdge{vals[0], vals[1], vals[0], vals[1]}
		case 3:
			e = BoxEdge{vals[0], vals[1], vals[2], vals[1]}
		case 4:
			e = BoxEdge{vals[0], vals[1], vals[2], vals[3]}
		}
	}
	if v, ok := s.GetLength(prefix + "-top"); ok {
		e.Top = v
	}
	if v, ok := s.GetLength(prefix + "-right"); ok {
		e.Right = v
	}
	if v, ok := s.GetLength(prefix + "-bottom"); ok {
		e.Bottom = v
	}
	if v, ok := s.GetLength(prefix + "-left"); ok {
		e.Left = v
	}
	return e
}

type PositionType int

const (
	PositionStatic PositionType = iota
	PositionRelative
	PositionAbsolute
)

func (s *Style) GetPosition() PositionType {
	switch v, _ := s.Get("position"); v {
	case "absolute", "fixed":
		return PositionAbsolute
	case "relative":
		return PositionRelative
	}
	return PositionStatic
}

// GetZIndex returns the z-index value (default: 0)
func (s *Style) GetZIndex() int {
	if zindex, ok := s.Get("z-index"); ok {
		var z int
		if _, err := fmt.Sscanf(zindex, "%d", &z); err == nil {
			return z
		}
	}
	return 0
}

type FloatType int

const (
	FloatNone FloatType = iota
	FloatLeft
	FloatRight
)

func (s *Style) GetFloat() FloatType {
	switch v, _ := s.Get("float"); v {
	case "left":
		return FloatLeft
	case "right":
		return FloatRight
	}
	return FloatNone
}

type TextAlign int

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
	TextAlignJustify
)

func (s *Style) GetTextAlign() TextAlign {
	switch v, _ := s.Get("text-align"); v {
	case "center":
		return TextAlignCenter
	case "right":
		return TextAlignRight
	case "justify":
		return TextAlignJustify
	}
	return TextAlignLeft
}

// fontSizeKeywords maps the legacy <font size> / execCommand 1..7 scale and
// CSS keywords to pixels.
var fontSizeKeywords = map[string]float64{
	"1": 10, "2": 13, "3": 16, "4": 18, "5": 24, "6": 32, "7": 48,
	"x-small": 10, "small": 13, "medium": 16, "large": 18,
	"x-large": 24, "xx-large": 32, "xxx-large": 48,
}

// FontSizeKeyword resolves a 1..7 size or CSS keyword to pixels.
func FontSizeKeyword(v string) (float64, bool) {
	px, ok := fontSizeKeywords[strings.TrimSpace(v)]
	return px, ok
}

// GetFontSize returns the font-size in pixels relative to the inherited size.
func (s *Style) GetFontSize(inherited float64) (float64, bool) {
	v, ok := s.Get("font-size")
	if !ok {
		return 0, false
	}
	if px, ok := FontSizeKeyword(v); ok {
		return px, true
	}
	return ParseLengthRelative(v, inherited, inherited)
}

// IsBold reports font-weight bold/700+.
func (s *Style) IsBold() (bold, set bool) {
	v, ok := s.Get("font-weight")
	if !ok {
		return false, false
	}
	if v == "bold" || v == "bolder" {
		return true, true
	}
	n, err := strconv.Atoi(v)
	return err == nil && n >= 600, true
}

// IsItalic reports font-style italic/oblique.
func (s *Style) IsItalic() (italic, set bool) {
	v, ok := s.Get("font-style")
	if !ok {
		return false, false
	}
	return v == "italic" || v == "oblique", true
}

type Color struct {
	R, G, B uint8
	A       float64
}

var namedColors = map[string]Color{
	"red":         {255, 0, 0, 1},
	"green":       {0, 128, 0, 1},
	"blue":        {0, 0, 255, 1},
	"yellow":      {255, 255, 0, 1},
	"cyan":        {0, 255, 255, 1},
	"magenta":     {255, 0, 255, 1},
	"white":       {255, 255, 255, 1},
	"black":       {0, 0, 0, 1},
	"gray":        {128, 128, 128, 1},
	"grey":        {128, 128, 128, 1},
	"orange":      {255, 165, 0, 1},
	"purple":      {128, 0, 128, 1},
	"pink":        {255, 192, 203, 1},
	"brown":       {165, 42, 42, 1},
	"lime":        {0, 255, 0, 1},
	"navy":        {0, 0, 128, 1},
	"teal":        {0, 128, 128, 1},
	"silver":      {192, 192, 192, 1},
	"transparent": {0, 0, 0, 0},
}

// ParseColor understands named colors, #rgb, #rrggbb and rgb()/rgba().
func ParseColor(colorStr string) (Color, bool) {
	colorStr = strings.ToLower(strings.TrimSpace(colorStr))
	if c, ok := namedColors[colorStr]; ok {
		return c, true
	}
	if strings.HasPrefix(colorStr, "#") {
		hex := colorStr[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return Color{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, false
		}
		return Color{uint8(v >> 16), uint8(v >> 8), uint8(v), 1}, true
	}
	if strings.HasPrefix(colorStr, "rgb") {
		open, end := strings.Index(colorStr, "("), strings.LastIndex(colorStr, ")")
		if open < 0 || end < open {
			return Color{}, false
		}
		parts := strings.Split(colorStr[open+1:end], ",")
		if len(parts) < 3 {
			return Color{}, false
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil {
				return Color{}, false
			}
			rgb[i] = uint8(min(max(n, 0), 255))
		}
		a := 1.0
		if len(parts) == 4 {
			if f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
				a = f
			}
		}
		return Color{rgb[0], rgb[1], rgb[2], a}, true
	}
	return Color{}, false
}
