// Package render paints laid-out pages with gg. It implements
// export.Rasterizer for the static page views.
package render

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"

	"pageflow/pkg/css"
	"pageflow/pkg/export"
	"pageflow/pkg/html"
	"pageflow/pkg/images"
	"pageflow/pkg/layout"
	"pageflow/pkg/text"
)

// Rasterizer lays out markup and paints it. The layout engine and the
// painter share one measurer so drawn text matches measured text. Each
// paint draws with its own font faces, so one Rasterizer serves concurrent
// exports.
type Rasterizer struct {
	measurer *text.GGMeasurer
	engine   *layout.Engine
	images   *images.Cache
	log      zerolog.Logger
}

var _ export.Rasterizer = (*Rasterizer)(nil)

type Option func(*Rasterizer)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Rasterizer) { r.log = l }
}

// WithImageCache shares a decoded image cache.
func WithImageCache(c *images.Cache) Option {
	return func(r *Rasterizer) { r.images = c }
}

func New(m *text.GGMeasurer, opts ...Option) *Rasterizer {
	r := &Rasterizer{measurer: m, images: images.NewCache(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.engine = layout.NewEngine(m, layout.WithLogger(r.log))
	return r
}

// Engine is the layout engine the rasterizer paints from.
func (r *Rasterizer) Engine() *layout.Engine { return r.engine }

func (r *Rasterizer) RenderRegionToImage(ctx context.Context, region export.Region, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 || region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("invalid region %vx%v at scale %v", region.Width, region.Height, scale)
	}
	root, err := html.ParseFragment(region.HTML)
	if err != nil {
		return nil, fmt.Errorf("parsing page %d: %w", region.Index+1, err)
	}
	box := r.engine.Layout(root, region.Width)

	w := int(math.Ceil(region.Width * scale))
	h := int(math.Ceil(region.Height * scale))
	p := &painter{dc: gg.NewContext(w, h), r: r, faces: make(map[text.Face]font.Face)}
	p.dc.SetRGB(1, 1, 1)
	p.dc.Clear()
	p.dc.Scale(scale, scale)
	p.paint(box)
	return p.dc.Image(), nil
}

// Paint lays out a fragment at the given width and paints it at the origin
// of a new image, for previews of a single page body.
func (r *Rasterizer) Paint(fragment string, width, height, scale float64) (image.Image, error) {
	return r.RenderRegionToImage(context.Background(), export.Region{HTML: fragment, Width: width, Height: height}, scale)
}

type painter struct {
	dc    *gg.Context
	r     *Rasterizer
	clips []layout.Rect
	faces map[text.Face]font.Face
}

func (p *painter) face(f text.Face) (font.Face, error) {
	if fc, ok := p.faces[f]; ok {
		return fc, nil
	}
	fc, err := p.r.measurer.FontFace(f)
	if err != nil {
		return nil, err
	}
	p.faces[f] = fc
	return fc, nil
}

// paint draws b, then its positioned children at or below z-index 0, its
// in-flow children, and its positioned children above 0, each group in
// z order.
func (p *painter) paint(b *layout.Box) {
	p.drawBox(b)

	clip := clips(b)
	if clip {
		p.pushClip(b.Rect())
	}
	var below, inFlow, above []*layout.Box
	for _, c := range b.Children {
		switch {
		case !c.Positioned:
			inFlow = append(inFlow, c)
		case c.ZIndex <= 0:
			below = append(below, c)
		default:
			above = append(above, c)
		}
	}
	byZ := func(bs []*layout.Box) {
		sort.SliceStable(bs, func(i, j int) bool { return bs[i].ZIndex < bs[j].ZIndex })
	}
	byZ(below)
	byZ(above)
	for _, group := range [][]*layout.Box{below, inFlow, above} {
		for _, c := range group {
			p.paint(c)
		}
	}
	if clip {
		p.popClip()
	}
}

// gg's Pop does not restore the clip mask, so clips are kept as a stack of
// rects and re-applied.
func (p *painter) pushClip(r layout.Rect) {
	p.clips = append(p.clips, r)
	p.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	p.dc.Clip()
}

func (p *painter) popClip() {
	p.clips = p.clips[:len(p.clips)-1]
	p.dc.ResetClip()
	for _, r := range p.clips {
		p.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		p.dc.Clip()
	}
}

func clips(b *layout.Box) bool {
	if b.Node == nil || b.Kind != layout.KindBlock {
		return false
	}
	v, ok := b.Node.GetAttribute("style")
	if !ok {
		return false
	}
	o, ok := css.ParseInlineStyle(v).Get("overflow")
	return ok && o == "hidden"
}

func (p *painter) setColor(c css.Color) {
	p.dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, c.A)
}

func (p *painter) drawBox(b *layout.Box) {
	switch b.Kind {
	case layout.KindText:
		p.drawText(b)
		return
	case layout.KindLine:
		return
	case layout.KindImage:
		p.drawImage(b)
		p.drawBorder(b)
		return
	}
	if b.Background != nil && b.Background.A > 0 && b.Width > 0 && b.Height > 0 {
		p.setColor(*b.Background)
		p.dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		p.dc.Fill()
	}
	p.drawBorder(b)
}

// drawBorder draws each side as a trapezoid so corners miter.
func (p *painter) drawBorder(b *layout.Box) {
	bw := b.Border
	if bw.Top <= 0 && bw.Right <= 0 && bw.Bottom <= 0 && bw.Left <= 0 {
		return
	}
	if b.BorderColor.A <= 0 {
		return
	}
	p.setColor(b.BorderColor)
	dash := dashOf(b.Node)

	outerL, outerT := b.X, b.Y
	outerR, outerB := b.X+b.Width, b.Y+b.Height
	innerL, innerT := outerL+bw.Left, outerT+bw.Top
	innerR, innerB := outerR-bw.Right, outerB-bw.Bottom

	if dash != nil {
		p.dashedSide(bw.Top, outerL, outerT+bw.Top/2, outerR, outerT+bw.Top/2, dash)
		p.dashedSide(bw.Bottom, outerL, outerB-bw.Bottom/2, outerR, outerB-bw.Bottom/2, dash)
		p.dashedSide(bw.Left, outerL+bw.Left/2, outerT, outerL+bw.Left/2, outerB, dash)
		p.dashedSide(bw.Right, outerR-bw.Right/2, outerT, outerR-bw.Right/2, outerB, dash)
		return
	}
	side := func(w float64, pts ...float64) {
		if w <= 0 {
			return
		}
		p.dc.MoveTo(pts[0], pts[1])
		for i := 2; i+1 < len(pts); i += 2 {
			p.dc.LineTo(pts[i], pts[i+1])
		}
		p.dc.ClosePath()
		p.dc.Fill()
	}
	side(bw.Top, outerL, outerT, outerR, outerT, innerR, innerT, innerL, innerT)
	side(bw.Right, outerR, outerT, outerR, outerB, innerR, innerB, innerR, innerT)
	side(bw.Bottom, outerL, outerB, outerR, outerB, innerR, innerB, innerL, innerB)
	side(bw.Left, outerL, outerT, outerL, outerB, innerL, innerB, innerL, innerT)
}

func (p *painter) dashedSide(w, x1, y1, x2, y2 float64, dash []float64) {
	if w <= 0 {
		return
	}
	p.dc.SetLineWidth(w)
	p.dc.SetDash(dash...)
	p.dc.DrawLine(x1, y1, x2, y2)
	p.dc.Stroke()
	p.dc.SetDash()
}

// dashOf reads a dashed or dotted border style from the element's style.
func dashOf(n *html.Node) []float64 {
	if n == nil {
		return nil
	}
	v, ok := n.GetAttribute("style")
	if !ok {
		return nil
	}
	s := css.ParseInlineStyle(v)
	for _, prop := range []string{"border", "border-top", "border-style", "border-top-style"} {
		val, ok := s.Get(prop)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(val, "dashed"):
			return []float64{10, 5}
		case strings.Contains(val, "dotted"):
			return []float64{2, 4}
		}
	}
	return nil
}

func (p *painter) drawText(b *layout.Box) {
	if strings.TrimSpace(b.Text) == "" && b.Background == nil {
		return
	}
	if b.Background != nil {
		p.setColor(*b.Background)
		p.dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		p.dc.Fill()
	}
	face, err := p.face(b.Face)
	if err != nil {
		p.r.log.Debug().Err(err).Msg("font unavailable, text skipped")
		return
	}
	p.dc.SetFontFace(face)
	p.setColor(b.Color)

	m := face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	baseline := b.Y + (b.Height-ascent-descent)/2 + ascent
	p.dc.DrawString(b.Text, b.X, baseline)

	size := b.Face.Size
	if size <= 0 {
		size = text.DefaultSize
	}
	thickness := max(size/12, 1)
	p.dc.SetLineWidth(thickness)
	if b.Underline {
		y := baseline + size*0.1
		p.dc.DrawLine(b.X, y, b.X+b.Width, y)
		p.dc.Stroke()
	}
	if b.Strike {
		y := baseline - ascent*0.35
		p.dc.DrawLine(b.X, y, b.X+b.Width, y)
		p.dc.Stroke()
	}
}

// drawImage scales the decoded image to the box. Undecodable sources get
// a crossed-out placeholder.
func (p *painter) drawImage(b *layout.Box) {
	if b.Width <= 0 || b.Height <= 0 {
		return
	}
	img, err := p.r.images.Load(b.Src)
	if err != nil || b.Src == "" {
		p.r.log.Debug().Err(err).Str("src", truncate(b.Src, 48)).Msg("image placeholder drawn")
		p.dc.SetRGB(0.9, 0.9, 0.9)
		p.dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		p.dc.Fill()
		p.dc.SetRGB(0.5, 0.5, 0.5)
		p.dc.SetLineWidth(2)
		p.dc.DrawLine(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		p.dc.DrawLine(b.X+b.Width, b.Y, b.X, b.Y+b.Height)
		p.dc.Stroke()
		return
	}
	bounds := img.Bounds()
	p.dc.Push()
	p.dc.Translate(b.X, b.Y)
	p.dc.Scale(b.Width/float64(bounds.Dx()), b.Height/float64(bounds.Dy()))
	p.dc.DrawImage(img, 0, 0)
	p.dc.Pop()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
