package render

import (
	"fmt"
	"io"
	"os"

	"github.com/san-kum/cableheat/internal/sim"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ProfileChart plots temperature against radius, one line per snapshot.
func ProfileChart(w io.Writer, snaps []sim.Snapshot, width, height int) error {
	if len(snaps) == 0 {
		return fmt.Errorf("no snapshots to plot")
	}

	colors := Series(len(snaps))
	series := make([]chart.Series, 0, len(snaps))
	lo, hi := snaps[0].Ambient, snaps[0].Ambient
	maxRadius := 1.0
	for i, s := range snaps {
		xs := make([]float64, len(s.Temperatures))
		for r, t := range s.Temperatures {
			xs[r] = float64(r)
			if t < lo {
				lo = t
			}
			if t > hi {
				hi = t
			}
		}
		if n := float64(len(xs) - 1); n > maxRadius {
			maxRadius = n
		}
		c := colors[i]
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%d days", s.Days()),
			XValues: xs,
			YValues: append([]float64(nil), s.Temperatures...),
			Style: chart.Style{
				StrokeColor: drawing.Color{R: c.R, G: c.G, B: c.B, A: 255},
				StrokeWidth: 2.0,
			},
		})
	}
	if hi-lo < 1 {
		hi = lo + 1
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "radius (cm)",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: maxRadius},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "temperature (K)",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	return graph.Render(chart.PNG, w)
}

// ChartRenderer collects snapshots and writes a single profile chart when
// closed.
type ChartRenderer struct {
	Path          string
	Width, Height int

	snaps []sim.Snapshot
}

func NewChartRenderer(path string) *ChartRenderer {
	return &ChartRenderer{Path: path, Width: 1024, Height: 512}
}

func (c *ChartRenderer) Render(s sim.Snapshot) error {
	c.snaps = append(c.snaps, s)
	return nil
}

func (c *ChartRenderer) Close() error {
	if len(c.snaps) == 0 {
		return nil
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ProfileChart(f, c.snaps, c.Width, c.Height); err != nil {
		return err
	}
	return f.Close()
}
