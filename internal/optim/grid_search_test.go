package optim

import (
	"context"
	"io"
	"testing"

	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/sim"
	log "github.com/sirupsen/logrus"
)

func testSearch(params []string, ranges [][]float64) *GridSearch {
	l := log.New()
	l.SetOutput(io.Discard)
	return NewGridSearch(params, ranges, sim.NewEnsemble(4, l))
}

func smallBase() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ShellCount = 20
	cfg.TotalSteps = 300
	cfg.SnapshotInterval = 300
	cfg.ProgressInterval = 0
	return cfg
}

func TestGrid(t *testing.T) {
	g := testSearch([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	grid := g.Grid()

	if len(grid) != 6 {
		t.Fatalf("expected 6 points, got %d", len(grid))
	}
	if grid[0]["a"] != 1 || grid[0]["b"] != 10 || grid[1]["b"] != 20 || grid[5]["a"] != 2 {
		t.Errorf("unexpected order: %v", grid)
	}
}

func TestSearchFindsCoolestCable(t *testing.T) {
	g := testSearch(
		[]string{"heat_dissipation", "medium.thermal_conductivity"},
		[][]float64{{0.5, 1, 2}, {0.5, 1.5}},
	)

	best, val, err := g.Search(context.Background(), smallBase(), "peak_conductor_temp")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["heat_dissipation"] != 0.5 {
		t.Errorf("expected lowest power to win, got %v", best)
	}
	if best["medium.thermal_conductivity"] != 1.5 {
		t.Errorf("expected highest conductivity to win, got %v", best)
	}
	if val <= 230 {
		t.Errorf("peak temperature should exceed ambient, got %f", val)
	}
}

func TestEvaluateSkipsInvalidPoints(t *testing.T) {
	g := testSearch([]string{"conductor.diameter"}, [][]float64{{-1, 0, 2}})

	candidates, err := g.Evaluate(context.Background(), smallBase(), "thermal_front")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Params["conductor.diameter"] != 2 {
		t.Errorf("expected only the valid point, got %+v", candidates)
	}
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()

	if _, _, err := testSearch([]string{"heat_dissipation"}, [][]float64{{1}}).Search(ctx, smallBase(), "colour"); err == nil {
		t.Error("expected error for unknown metric")
	}
	if _, _, err := testSearch([]string{"colour"}, [][]float64{{1}}).Search(ctx, smallBase(), "thermal_front"); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, _, err := testSearch([]string{"shell_count"}, [][]float64{{0}}).Search(ctx, smallBase(), "thermal_front"); err == nil {
		t.Error("expected error when no point is valid")
	}
	if _, _, err := testSearch([]string{"a", "b"}, [][]float64{{1}}).Search(ctx, smallBase(), "thermal_front"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
		ok   bool
	}{
		{"1,2,4", []float64{1, 2, 4}, true},
		{"0.5", []float64{0.5}, true},
		{"0:1:3", []float64{0, 0.5, 1}, true},
		{"2:9:1", []float64{2}, true},
		{"0:1:0", nil, false},
		{"a,b", nil, false},
	}

	for _, tt := range tests {
		got, err := ParseRange(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("%q: unexpected error state %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
