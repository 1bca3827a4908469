package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestA4Geometry(t *testing.T) {
	g := DefaultSettings().Geometry()
	assert.InDelta(t, 793.7, g.Width, 0.1)
	assert.InDelta(t, 1122.5, g.Height, 0.1)
	assert.InDelta(t, 75.59, g.Margin.Top, 0.01)
	assert.InDelta(t, g.Width-2*g.Margin.Left, g.ContentWidth, 1e-9)
	assert.InDelta(t, g.Height-2*g.Margin.Top, g.ContentHeight, 1e-9)
}

func TestLandscapeSwaps(t *testing.T) {
	s := DefaultSettings()
	s.PaperSize = Letter
	s.Orientation = Landscape
	w, h := s.SizeMM()
	assert.Equal(t, 279.4, w)
	assert.Equal(t, 215.9, h)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Margins.Left, s.Margins.Right = 100, 120
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.PaperSize = "B5"
	assert.Error(t, s.Validate())
}

func TestParse(t *testing.T) {
	p, err := ParsePaperSize("legal")
	require.NoError(t, err)
	assert.Equal(t, Legal, p)
	_, err = ParsePaperSize("tabloid")
	assert.Error(t, err)

	o, err := ParseOrientation("Landscape")
	require.NoError(t, err)
	assert.Equal(t, Landscape, o)
}
