package render

import (
	"image/color"
	"math"

	"github.com/crazy3lf/colorconv"
)

// Palette maps a shell temperature to a colour. ok is false for shells that
// should not be drawn at all.
type Palette interface {
	Color(temp, ambient float64) (c color.RGBA, ok bool)
}

// Band is one legend entry: every temperature at or above Min, and below the
// next band, gets Color.
type Band struct {
	Min   float64
	Color color.RGBA
}

var Background = color.RGBA{A: 255}

// ReferenceBands are the 10 K bands from 240 K to 320 K, coolest first.
var ReferenceBands = []Band{
	{240, rgb(0.45, 0, 0)},
	{250, rgb(0.60, 0, 0)},
	{260, rgb(0.74, 0, 0)},
	{270, rgb(0.84, 0, 0)},
	{280, rgb(0.93, 0, 0)},
	{290, rgb(1, 0.25, 0)},
	{300, rgb(1, 0.53, 0)},
	{310, rgb(1, 0.75, 0)},
	{320, rgb(1, 1, 0)},
}

func rgb(r, g, b float64) color.RGBA {
	return color.RGBA{R: uint8(math.Round(r * 255)), G: uint8(math.Round(g * 255)), B: uint8(math.Round(b * 255)), A: 255}
}

// BandPalette skips shells at or below ambient and paints warmer shells with
// the highest band they reach. Shells warmer than ambient but below the
// first band are painted with the background.
type BandPalette struct {
	Bands []Band
}

func NewBandPalette() *BandPalette {
	return &BandPalette{Bands: ReferenceBands}
}

func (p *BandPalette) Color(temp, ambient float64) (color.RGBA, bool) {
	if !(temp > ambient) {
		return color.RGBA{}, false
	}
	c := Background
	for _, b := range p.Bands {
		if temp >= b.Min {
			c = b.Color
		}
	}
	return c, true
}

func (p *BandPalette) Legend() []Band { return p.Bands }

// HSVPalette sweeps the hue from blue at Min to red at Max.
type HSVPalette struct {
	Min, Max float64
}

func (p HSVPalette) Color(temp, ambient float64) (color.RGBA, bool) {
	if !(temp > ambient) {
		return color.RGBA{}, false
	}
	return p.at(temp), true
}

func (p HSVPalette) at(temp float64) color.RGBA {
	frac := 0.0
	if p.Max > p.Min {
		frac = (temp - p.Min) / (p.Max - p.Min)
	}
	frac = math.Max(0, math.Min(1, frac))
	return hue(240 * (1 - frac))
}

// Legend samples the hue range every 10 K.
func (p HSVPalette) Legend() []Band {
	var bands []Band
	for t := p.Min; t <= p.Max; t += 10 {
		bands = append(bands, Band{Min: t, Color: p.at(t)})
	}
	return bands
}

func hue(h float64) color.RGBA {
	r, g, b, err := colorconv.HSVToRGB(h, 1, 1)
	if err != nil {
		return Background
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Series returns n evenly spaced hues, used to tell chart lines apart.
func Series(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := range colors {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		colors[i] = hue(240 * (1 - frac))
	}
	return colors
}

// PaletteByName resolves "bands" (default) or "hsv".
func PaletteByName(name string, ambient float64) (Palette, bool) {
	switch name {
	case "", "bands":
		return NewBandPalette(), true
	case "hsv":
		return HSVPalette{Min: ambient, Max: ambient + 90}, true
	default:
		return nil, false
	}
}

type legender interface {
	Legend() []Band
}
