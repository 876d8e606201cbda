package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/cableheat/internal/thermal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an ensemble. Metrics and renderers must not
// be shared between jobs.
type Job struct {
	Name      string
	Params    thermal.Params
	Config    Config
	Metrics   []Metric
	Renderers []Renderer
}

// Ensemble runs independent jobs concurrently. Every job owns its state, so
// no sweep is ever split across goroutines.
type Ensemble struct {
	workers int
	log     log.FieldLogger
}

func NewEnsemble(workers int, logger log.FieldLogger) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Ensemble{workers: workers, log: logger}
}

// Run returns results in job order. The first failing job cancels the rest.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, job := range jobs {
		g.Go(func() error {
			d, err := New(job.Params, job.Config, WithLogger(e.log.WithField("job", job.Name)))
			if err != nil {
				return err
			}
			for _, m := range job.Metrics {
				d.AddMetric(m)
			}
			for _, r := range job.Renderers {
				d.AddRenderer(r)
			}

			results[i], err = d.Run(ctx)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
