package visualtest

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
)

// Canvas returns a w x h image filled with bg.
func Canvas(w, h int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// FillRect paints r on img.
func FillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// AssertMatch fails t when actual differs from expected beyond opts. With
// VISUALTEST_DIFF_DIR set, the diff image of a failure is written there.
func AssertMatch(t testing.TB, actual, expected image.Image, opts Options) Result {
	t.Helper()
	dir := os.Getenv("VISUALTEST_DIFF_DIR")
	opts.KeepDiff = opts.KeepDiff || dir != ""
	res, err := Compare(actual, expected, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Match {
		return res
	}
	if dir != "" && res.Diff != nil {
		path := filepath.Join(dir, sanitize(t.Name())+".diff.png")
		if err := SavePNG(res.Diff, path); err != nil {
			t.Logf("saving diff: %v", err)
		} else {
			t.Logf("diff written to %s", path)
		}
	}
	t.Errorf("images differ: %d of %d pixels (%.2f%%), max channel difference %d",
		res.DifferentPixels, res.TotalPixels, res.DifferentPercent(), res.MaxDifference)
	return res
}

func sanitize(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r == '/' || r == ' ' {
			out[i] = '_'
		}
	}
	return string(out)
}
