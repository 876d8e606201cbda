package sim

import (
	"context"
	"errors"
	"io"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/cableheat/internal/thermal"
	log "github.com/sirupsen/logrus"
)

func testParams(n int) thermal.Params {
	return thermal.Params{
		Shells:            n,
		ConductorLength:   100,
		ConductorDiameter: 2,
		Conductor:         thermal.Material{Density: 2.7, SpecificHeat: 0.903},
		Medium:            thermal.Material{Density: 1.8, SpecificHeat: 1.512},
		Conductivity:      0.85,
		Ambient:           230,
	}
}

func testConfig(steps, interval int) Config {
	cfg := DefaultConfig()
	cfg.TotalSteps = steps
	cfg.SnapshotInterval = interval
	cfg.ProgressInterval = 0
	return cfg
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

type countingMetric struct {
	observed []int
}

func (c *countingMetric) Name() string                       { return "count" }
func (c *countingMetric) Observe(step int, _ *thermal.State) { c.observed = append(c.observed, step) }
func (c *countingMetric) Value() float64                     { return float64(len(c.observed)) }
func (c *countingMetric) Reset()                             { c.observed = nil }

type startingMetric struct {
	countingMetric
	startStep   int
	startEnergy float64
}

func (s *startingMetric) Start(step int, st *thermal.State) {
	s.startStep = step
	s.startEnergy = st.TotalEnergy()
}

type closingRenderer struct {
	Recorder
	closed bool
}

func (c *closingRenderer) Close() error {
	c.closed = true
	return nil
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		logger *log.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = quietLogger()
	})

	newDriver := func(n int, cfg Config) *Driver {
		d, err := New(testParams(n), cfg, WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	DescribeTable("rejects invalid configuration",
		func(mutate func(*Config)) {
			cfg := testConfig(10, 5)
			mutate(&cfg)
			_, err := New(testParams(10), cfg, WithLogger(logger))
			Expect(errors.Is(err, thermal.ErrConfiguration)).To(BeTrue())
		},
		Entry("zero time step", func(c *Config) { c.TimeStep = 0 }),
		Entry("negative time step", func(c *Config) { c.TimeStep = -900 }),
		Entry("negative steps", func(c *Config) { c.TotalSteps = -1 }),
		Entry("zero snapshot interval", func(c *Config) { c.SnapshotInterval = 0 }),
		Entry("negative dissipation", func(c *Config) { c.HeatDissipation = -1 }),
		Entry("NaN threshold", func(c *Config) { c.MinTempDelta = math.NaN() }),
	)

	It("rejects invalid geometry before stepping", func() {
		p := testParams(10)
		p.Medium.Density = 0
		_, err := New(p, testConfig(10, 5))
		var cfgErr *thermal.ConfigError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal("medium density"))
	})

	It("runs exactly the configured number of steps", func() {
		d := newDriver(20, testConfig(100, 1000))
		Expect(d.Phase()).To(Equal(Initialized))

		result, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.StepsTaken).To(Equal(100))
		Expect(result.Phase).To(Equal(Completed))
		Expect(result.Injected).To(BeNumerically("~", 100*900, 1e-9))
		Expect(d.Step()).To(MatchError(ErrFinished))
	})

	It("emits snapshots every interval", func() {
		d := newDriver(20, testConfig(10, 3))
		rec := NewRecorder()
		d.AddRenderer(rec)

		_, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		steps := make([]int, 0, len(rec.Snapshots))
		for _, s := range rec.Snapshots {
			steps = append(steps, s.Step)
			Expect(s.Temperatures).To(HaveLen(20))
			Expect(s.TimeStep).To(Equal(900.0))
			Expect(s.Ambient).To(Equal(230.0))
		}
		Expect(steps).To(Equal([]int{3, 6, 9}))
	})

	It("hands out snapshots that never change afterwards", func() {
		d := newDriver(10, testConfig(6, 2))
		rec := NewRecorder()
		d.AddRenderer(rec)

		Expect(d.Step()).To(Succeed())
		Expect(d.Step()).To(Succeed())
		first := append([]float64(nil), rec.Snapshots[0].Temperatures...)

		_, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Snapshots[0].Temperatures).To(Equal(first))
		Expect(rec.Snapshots[2].Conductor()).To(BeNumerically(">", first[0]))

		rec.Snapshots[2].Temperatures[0] = 0
		Expect(d.State().Temperature(0)).NotTo(BeZero())
	})

	It("changes total energy only by the injected amount", func() {
		d := newDriver(40, testConfig(500, 100))
		before := d.State().TotalEnergy()

		for !d.Done() {
			stepBefore := d.State().TotalEnergy()
			Expect(d.Step()).To(Succeed())
			Expect(d.State().TotalEnergy() - stepBefore).To(BeNumerically("~", 900, 1e-3))
		}

		Expect(d.State().TotalEnergy() - before).To(BeNumerically("~", d.Injected(), 1e-2))
	})

	It("keeps energy and temperature consistent at every snapshot", func() {
		d := newDriver(30, testConfig(300, 50))
		d.AddRenderer(RendererFunc(func(s Snapshot) error {
			st := d.State()
			g := st.Geometry()
			for i, temp := range s.Temperatures {
				Expect(temp).To(BeNumerically("~", st.Energy(i)/(g.Mass(i)*g.SpecificHeat(i)), 1e-9))
			}
			return nil
		}))
		_, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is deterministic", func() {
		run := func() []Snapshot {
			d := newDriver(50, testConfig(400, 40))
			rec := NewRecorder()
			d.AddRenderer(rec)
			_, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			return rec.Snapshots
		}
		Expect(run()).To(Equal(run()))
	})

	It("keeps stepping when a renderer fails", func() {
		reference := newDriver(20, testConfig(30, 10))
		want, err := reference.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		d := newDriver(20, testConfig(30, 10))
		d.AddRenderer(RendererFunc(func(Snapshot) error { return errors.New("disk full") }))
		rec := NewRecorder()
		d.AddRenderer(rec)

		result, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Errors).To(HaveLen(3))
		Expect(rec.Snapshots).To(HaveLen(3))
		Expect(result.StepsTaken).To(Equal(30))
		Expect(result.Final.Temperatures).To(Equal(want.Final.Temperatures))
	})

	It("closes renderers when the run ends", func() {
		d := newDriver(5, testConfig(4, 2))
		r := &closingRenderer{}
		d.AddRenderer(r)

		_, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.closed).To(BeTrue())
		Expect(r.Snapshots).To(HaveLen(2))
	})

	It("observes metrics after every step", func() {
		d := newDriver(5, testConfig(7, 7))
		m := &countingMetric{observed: []int{99}}
		d.AddMetric(m)

		result, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.observed).To(Equal([]int{1, 2, 3, 4, 5, 6, 7}))
		Expect(result.Metrics).To(HaveKeyWithValue("count", 7.0))
	})

	It("starts metrics with the state they are added to", func() {
		d := newDriver(5, testConfig(4, 4))
		initial := d.State().TotalEnergy()
		first := &startingMetric{}
		d.AddMetric(first)
		Expect(first.startStep).To(Equal(0))
		Expect(first.startEnergy).To(Equal(initial))

		Expect(d.Step()).To(Succeed())
		late := &startingMetric{}
		d.AddMetric(late)
		Expect(late.startStep).To(Equal(1))
		Expect(late.startEnergy).To(BeNumerically("~", initial+900, 1e-6))
	})

	It("gives every renderer its own snapshot", func() {
		d := newDriver(10, testConfig(4, 2))
		d.AddRenderer(RendererFunc(func(s Snapshot) error {
			for i := range s.Temperatures {
				s.Temperatures[i] = -1
			}
			return nil
		}))
		rec := NewRecorder()
		d.AddRenderer(rec)

		_, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Snapshots).To(HaveLen(2))
		for _, s := range rec.Snapshots {
			Expect(s.Temperatures).To(HaveEach(BeNumerically(">=", 230.0)))
		}
		Expect(d.LastEmitted().Temperatures).To(Equal(rec.Snapshots[1].Temperatures))

		last := d.LastEmitted()
		last.Temperatures[0] = -1
		Expect(d.LastEmitted().Conductor()).To(BeNumerically(">", 230.0))
	})

	It("stops on cancellation without rolling back", func() {
		d := newDriver(10, testConfig(100, 10))
		Expect(d.Step()).To(Succeed())
		advanced := d.Snapshot()

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := d.Run(canceled)
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.Phase).To(Equal(Canceled))
		Expect(result.StepsTaken).To(Equal(1))
		Expect(result.Final.Temperatures).To(Equal(advanced.Temperatures))
	})

	It("only heats the conductor with a single shell", func() {
		d := newDriver(1, testConfig(1, 1))
		g := d.State().Geometry()
		initial := d.State().Energy(0)

		result, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Final.Temperatures).To(HaveLen(1))
		Expect(result.Final.Conductor()).To(BeNumerically("~", (initial+900)/(g.Mass(0)*0.903), 1e-9))
	})

	It("reproduces the three shell scenario", func() {
		cfg := testConfig(1, 1)
		cfg.MinTempDelta = 0
		d := newDriver(3, cfg)
		g := d.State().Geometry()
		initial := d.State().Energy(0)

		result, err := d.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.State().Energy(0)).To(BeNumerically("~", initial+900, 1e-6))
		Expect(result.Final.Conductor()).To(BeNumerically("~", (initial+900)/(g.Mass(0)*0.903), 1e-9))
	})
})

var _ = Describe("Snapshot", func() {
	It("counts whole simulated days", func() {
		s := Snapshot{Step: 2880, TimeStep: 900}
		Expect(s.Days()).To(Equal(30))
		Expect(s.Seconds()).To(Equal(2880 * 900.0))
		Expect(Snapshot{Step: 95, TimeStep: 900}.Days()).To(Equal(0))
	})

	It("reports NaN for an empty conductor reading", func() {
		Expect(math.IsNaN(Snapshot{}.Conductor())).To(BeTrue())
	})
})

var _ = Describe("Ensemble", func() {
	It("returns results in job order", func() {
		jobs := []Job{
			{Name: "low", Params: testParams(20), Config: testConfig(200, 200)},
			{Name: "high", Params: testParams(20), Config: testConfig(200, 200)},
		}
		jobs[1].Config.HeatDissipation = 5

		results, err := NewEnsemble(2, quietLogger()).Run(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[1].Final.Conductor()).To(BeNumerically(">", results[0].Final.Conductor()))
	})

	It("fails when any job is misconfigured", func() {
		bad := testParams(20)
		bad.ConductorDiameter = 0
		jobs := []Job{
			{Name: "ok", Params: testParams(20), Config: testConfig(10, 10)},
			{Name: "bad", Params: bad, Config: testConfig(10, 10)},
		}

		_, err := NewEnsemble(0, quietLogger()).Run(context.Background(), jobs)
		Expect(errors.Is(err, thermal.ErrConfiguration)).To(BeTrue())
	})
})
