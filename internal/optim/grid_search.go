package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/metrics"
	"github.com/san-kum/cableheat/internal/sim"
)

// GridSearch evaluates every combination of parameter values and keeps the
// one with the smallest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	ens        *sim.Ensemble
}

type Candidate struct {
	Params map[string]float64
	Value  float64
}

func NewGridSearch(params []string, ranges [][]float64, ens *sim.Ensemble) *GridSearch {
	if ens == nil {
		ens = sim.NewEnsemble(0, nil)
	}
	return &GridSearch{paramNames: params, ranges: ranges, ens: ens}
}

// Grid lists the parameter combinations in row-major order, the last
// parameter varying fastest.
func (g *GridSearch) Grid() []map[string]float64 {
	var grid []map[string]float64
	g.gridRecursive(0, map[string]float64{}, &grid)
	return grid
}

func (g *GridSearch) gridRecursive(depth int, current map[string]float64, grid *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*grid = append(*grid, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val
		g.gridRecursive(depth+1, newParams, grid)
	}
}

// Evaluate runs every valid grid point. Points whose configuration does not
// validate are skipped.
func (g *GridSearch) Evaluate(ctx context.Context, base *config.Config, metricName string) ([]Candidate, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var (
		jobs   []sim.Job
		points []map[string]float64
	)
	for _, point := range g.Grid() {
		cfg := base.Clone()
		for k, v := range point {
			if err := cfg.SetParam(k, v); err != nil {
				return nil, err
			}
		}
		if cfg.Validate() != nil {
			continue
		}
		job, err := cfg.Job(label(point))
		if err != nil {
			continue
		}
		job.Metrics = metrics.Default(job.Config, cfg.AmbientTemperature)
		jobs = append(jobs, job)
		points = append(points, point)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no valid grid points")
	}

	results, err := g.ens.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		val, ok := r.Metrics[metricName]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", metricName)
		}
		candidates[i] = Candidate{Params: points[i], Value: val}
	}
	return candidates, nil
}

func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, error) {
	candidates, err := g.Evaluate(ctx, base, metricName)
	if err != nil {
		return nil, math.Inf(1), err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, c := range candidates {
		if c.Value < best {
			best = c.Value
			bestParams = c.Params
		}
	}
	if bestParams == nil {
		return nil, best, fmt.Errorf("metric %s is not finite at any grid point", metricName)
	}
	return bestParams, best, nil
}

func label(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, ",")
}

// ParseRange reads "a,b,c" as explicit values or "min:max:n" as n evenly
// spaced values.
func ParseRange(s string) ([]float64, error) {
	if strings.Count(s, ":") == 2 {
		var lo, hi float64
		var n int
		if _, err := fmt.Sscanf(strings.ReplaceAll(s, ":", " "), "%g %g %d", &lo, &hi, &n); err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("range %q: need at least one value", s)
		}
		vals := make([]float64, n)
		for i := range vals {
			if n == 1 {
				vals[i] = lo
				continue
			}
			vals[i] = lo + float64(i)*(hi-lo)/float64(n-1)
		}
		return vals, nil
	}

	var vals []float64
	for _, f := range strings.Split(s, ",") {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(f), "%g", &v); err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
