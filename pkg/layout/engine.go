// Package layout flows a page fragment into boxes at a fixed width. It
// supports what editing surfaces produce: blocks, inline runs with font
// changes, line breaks, images, rules, tables and absolutely positioned
// elements.
package layout

import (
	"strings"

	"github.com/rs/zerolog"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
	"pageflow/pkg/images"
	"pageflow/pkg/text"
)

// ImageSizer reports the intrinsic size of an image source.
type ImageSizer func(src string) (width, height int, err error)

// Default size of an image whose size cannot be determined.
const (
	DefaultImageWidth  = 100
	DefaultImageHeight = 100
)

type Engine struct {
	measurer text.Measurer
	base     text.Face
	sizer    ImageSizer
	log      zerolog.Logger
}

type Option func(*Engine)

// WithImageSizer replaces the image decoder used for intrinsic sizes.
func WithImageSizer(s ImageSizer) Option {
	return func(e *Engine) { e.sizer = s }
}

// WithBaseFace sets the root font.
func WithBaseFace(f text.Face) Option {
	return func(e *Engine) { e.base = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(m text.Measurer, opts ...Option) *Engine {
	e := &Engine{
		measurer: m,
		base:     text.DefaultFace(),
		sizer:    images.GetImageDimensions,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Measurer() text.Measurer { return e.measurer }

// Layout flows root's children into a box of the given content width. The
// returned root box has the content height as its Height.
func (e *Engine) Layout(root *html.Node, width float64) *Box {
	ctx := context{face: e.base, color: css.Color{A: 1}}
	box := &Box{Kind: KindBlock, Node: root, Width: width}
	children, h := e.layoutChildren(root, ctx, 0, 0, width)
	box.Children = children
	box.Height = h
	return box
}

// ContentHeight is the flowed height of root's in-flow content.
func (e *Engine) ContentHeight(root *html.Node, width float64) float64 {
	return e.Layout(root, width).Height
}

// context carries inherited properties down the tree.
type context struct {
	face      text.Face
	color     css.Color
	align     css.TextAlign
	underline bool
	strike    bool
	highlight *css.Color
}

var headingScale = map[string]float64{
	"h1": 2, "h2": 1.5, "h3": 1.17, "h4": 1, "h5": 0.83, "h6": 0.67,
}

// inherit applies element defaults and the inline style to ctx.
func (e *Engine) inherit(ctx context, n *html.Node, style *css.Style) context {
	ctx.highlight = nil
	switch n.TagName {
	case "b", "strong", "th":
		ctx.face.Bold = true
	case "i", "em", "cite", "var":
		ctx.face.Italic = true
	case "u", "ins":
		ctx.underline = true
	case "s", "strike", "del":
		ctx.strike = true
	case "code", "tt", "pre", "kbd", "samp":
		ctx.face.Mono = true
	case "sup", "sub", "small":
		ctx.face.Size *= 0.83
	case "mark":
		ctx.highlight = &css.Color{R: 255, G: 255, A: 1}
	case "font":
		if v, ok := n.GetAttribute("size"); ok {
			if px, ok := css.FontSizeKeyword(v); ok {
				ctx.face.Size = px
			}
		}
		if v, ok := n.GetAttribute("color"); ok {
			if c, ok := css.ParseColor(v); ok {
				ctx.color = c
			}
		}
		if v, ok := n.GetAttribute("face"); ok {
			ctx.face.Mono = isMonoFamily(v)
		}
	default:
		if scale, ok := headingScale[n.TagName]; ok {
			ctx.face.Size = e.base.Size * scale
			ctx.face.Bold = true
		}
	}

	if px, ok := style.GetFontSize(ctx.face.Size); ok {
		ctx.face.Size = px
	}
	if bold, ok := style.IsBold(); ok {
		ctx.face.Bold = bold
	}
	if italic, ok := style.IsItalic(); ok {
		ctx.face.Italic = italic
	}
	if v, ok := style.Get("font-family"); ok {
		ctx.face.Mono = isMonoFamily(v)
	}
	if v, ok := style.Get("color"); ok {
		if c, ok := css.ParseColor(v); ok {
			ctx.color = c
		}
	}
	if v, ok := style.Get("background-color"); ok {
		if c, ok := css.ParseColor(v); ok && c.A > 0 {
			ctx.highlight = &c
		}
	}
	if v, ok := style.Get("text-decoration"); ok {
		ctx.underline = strings.Contains(v, "underline")
		ctx.strike = strings.Contains(v, "line-through")
	}
	if _, ok := style.Get("text-align"); ok {
		ctx.align = style.GetTextAlign()
	}
	return ctx
}

func isMonoFamily(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "mono") || strings.Contains(v, "courier") || strings.Contains(v, "consolas")
}

func styleOf(n *html.Node) *css.Style {
	if v, ok := n.GetAttribute("style"); ok {
		return css.ParseInlineStyle(v)
	}
	return css.NewStyle()
}

func display(n *html.Node, style *css.Style) string {
	if v, ok := style.Get("display"); ok {
		return v
	}
	if n.TagName == "img" {
		return "inline"
	}
	if html.IsBlockElement(n.TagName) {
		return "block"
	}
	return "inline"
}
