package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/cableheat/internal/render"
	"github.com/san-kum/cableheat/internal/sim"
)

// CrossSectionSVG draws a snapshot as nested circles, outermost first, with
// one circle per shell the palette chooses to draw.
func CrossSectionSVG(s sim.Snapshot, p render.Palette, pixelsPerCM float64) string {
	if p == nil {
		p = render.NewBandPalette()
	}
	n := len(s.Temperatures)
	size := 2 * float64(n+1) * pixelsPerCM
	c := size / 2

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, size, size, size, size, hex(render.Background)))

	for i := n - 1; i >= 0; i-- {
		col, ok := p.Color(s.Temperatures[i], s.Ambient)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"><title>%d cm: %.2f K</title></circle>
`, c, c, float64(i+1)*pixelsPerCM, hex(col), i, s.Temperatures[i]))
	}

	sb.WriteString(fmt.Sprintf(`<text x="%.0f" y="%.0f" fill="#ffffff" font-family="monospace" font-size="%.0f">%d Days</text>
`, pixelsPerCM, 2*pixelsPerCM, pixelsPerCM*1.5, s.Days()))
	sb.WriteString("</svg>")
	return sb.String()
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SVGRenderer writes Dir/img_<step>.svg for every snapshot.
type SVGRenderer struct {
	Dir         string
	Palette     render.Palette
	PixelsPerCM float64
}

func NewSVGRenderer(dir string, p render.Palette) (*SVGRenderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &SVGRenderer{Dir: dir, Palette: p, PixelsPerCM: 4}, nil
}

func (r *SVGRenderer) Render(s sim.Snapshot) error {
	name := fmt.Sprintf("img_%05d.svg", s.Step)
	return os.WriteFile(filepath.Join(r.Dir, name), []byte(CrossSectionSVG(s, r.Palette, r.PixelsPerCM)), 0644)
}
