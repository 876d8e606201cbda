package render

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/cableheat/internal/sim"
)

// Profile plots temperature against radius for the innermost shells.
func Profile(s sim.Snapshot, shells, width, height int) string {
	temps := s.Temperatures
	if shells > 0 && shells < len(temps) {
		temps = temps[:shells]
	}
	if len(temps) == 0 {
		return ""
	}
	if len(temps) == 1 {
		temps = []float64{temps[0], temps[0]}
	}
	return asciigraph.Plot(temps,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("day %d, conductor %.2f K", s.Days(), s.Conductor())),
	)
}

// ASCIIRenderer prints a profile plot for every snapshot.
type ASCIIRenderer struct {
	W      io.Writer
	Shells int
	Width  int
	Height int
}

func NewASCIIRenderer(w io.Writer) *ASCIIRenderer {
	return &ASCIIRenderer{W: w, Shells: 60, Width: 80, Height: 12}
}

func (a *ASCIIRenderer) Render(s sim.Snapshot) error {
	_, err := fmt.Fprintf(a.W, "%s\n\n", Profile(s, a.Shells, a.Width, a.Height))
	return err
}
