// Package visualtest compares rendered pages against expected images.
package visualtest

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// Result describes how two images differ.
type Result struct {
	Match           bool
	DifferentPixels int
	TotalPixels     int
	MaxDifference   int // largest channel difference, 0-255

	// Diff marks differing pixels red over a gray copy of the actual image.
	Diff *image.RGBA
}

// DifferentPercent is the share of pixels that differ.
func (r Result) DifferentPercent() float64 {
	if r.TotalPixels == 0 {
		return 0
	}
	return float64(r.DifferentPixels) / float64(r.TotalPixels) * 100
}

type Options struct {
	// Tolerance is the largest per-channel difference still counted equal.
	Tolerance int

	// FuzzyRadius lets a pixel match any expected pixel within this many
	// pixels, for text that shifts by a pixel between font rasterizers.
	FuzzyRadius int

	// MaxDifferentPercent passes images whose differing share is at most
	// this.
	MaxDifferentPercent float64

	// KeepDiff fills Result.Diff.
	KeepDiff bool
}

func DefaultOptions() Options {
	return Options{Tolerance: 2}
}

// Compare compares two images pixel by pixel. Images of different sizes
// never match.
func Compare(actual, expected image.Image, opts Options) (Result, error) {
	ab, eb := actual.Bounds(), expected.Bounds()
	if ab.Size() != eb.Size() {
		return Result{}, fmt.Errorf("image sizes differ: actual %v, expected %v", ab.Size(), eb.Size())
	}
	res := Result{Match: true, TotalPixels: ab.Dx() * ab.Dy()}
	if opts.KeepDiff {
		res.Diff = image.NewRGBA(image.Rect(0, 0, ab.Dx(), ab.Dy()))
	}

	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			a := actual.At(ab.Min.X+x, ab.Min.Y+y)
			diff := channelDiff(a, expected.At(eb.Min.X+x, eb.Min.Y+y))
			res.MaxDifference = max(res.MaxDifference, diff)

			differs := diff > opts.Tolerance &&
				!(opts.FuzzyRadius > 0 && fuzzyMatch(a, expected, eb, x, y, opts))
			if differs {
				res.Match = false
				res.DifferentPixels++
			}
			if res.Diff != nil {
				if differs {
					res.Diff.Set(x, y, color.RGBA{R: 255, A: 255})
				} else {
					g := color.GrayModel.Convert(a).(color.Gray)
					res.Diff.Set(x, y, color.RGBA{R: g.Y, G: g.Y, B: g.Y, A: 255})
				}
			}
		}
	}
	if !res.Match && opts.MaxDifferentPercent > 0 && res.DifferentPercent() <= opts.MaxDifferentPercent {
		res.Match = true
	}
	return res, nil
}

// fuzzyMatch reports whether a matches any expected pixel within the radius
// of (x, y), in coordinates relative to eb.Min.
func fuzzyMatch(a color.Color, expected image.Image, eb image.Rectangle, x, y int, opts Options) bool {
	r := opts.FuzzyRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= eb.Dx() || ny >= eb.Dy() {
				continue
			}
			if channelDiff(a, expected.At(eb.Min.X+nx, eb.Min.Y+ny)) <= opts.Tolerance {
				return true
			}
		}
	}
	return false
}

// channelDiff is the largest 8-bit channel difference between two colors.
func channelDiff(a, b color.Color) int {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return max(
		absDiff(ar, br),
		absDiff(ag, bg),
		absDiff(ab, bb),
		absDiff(aa, ba),
	)
}

func absDiff(a, b uint32) int {
	d := int(a>>8) - int(b>>8)
	if d < 0 {
		return -d
	}
	return d
}

// SavePNG writes img to path, for inspecting a failed comparison.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
