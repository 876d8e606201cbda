package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/cableheat/internal/sim"
)

func TestCrossSectionSVG(t *testing.T) {
	s := sim.Snapshot{Step: 960, Temperatures: []float64{325, 229, 255}, TimeStep: 900, Ambient: 230}
	svg := CrossSectionSVG(s, nil, 10)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 circles, got %d", n)
	}
	if !strings.Contains(svg, `width="80"`) {
		t.Error("unexpected canvas size")
	}
	if !strings.Contains(svg, "10 Days") {
		t.Error("missing day label")
	}

	// outer circles come first so inner ones paint over them
	outer := strings.Index(svg, `r="30.0"`)
	inner := strings.Index(svg, `r="10.0"`)
	if outer < 0 || inner < 0 || outer > inner {
		t.Errorf("circles out of order: outer at %d, inner at %d", outer, inner)
	}
	if !strings.Contains(svg, "#ffff00") {
		t.Error("conductor should use the hottest band")
	}
}

func TestSVGRenderer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "svg")
	r, err := NewSVGRenderer(dir, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := r.Render(sim.Snapshot{Step: 7, Temperatures: []float64{240}, TimeStep: 900, Ambient: 230}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "img_00007.svg")); err != nil {
		t.Errorf("svg missing: %v", err)
	}
}
