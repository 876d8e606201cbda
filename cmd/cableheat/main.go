package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/san-kum/cableheat/internal/automation"
	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/export"
	"github.com/san-kum/cableheat/internal/metrics"
	"github.com/san-kum/cableheat/internal/optim"
	"github.com/san-kum/cableheat/internal/render"
	"github.com/san-kum/cableheat/internal/server"
	"github.com/san-kum/cableheat/internal/sim"
	"github.com/san-kum/cableheat/internal/storage"
	"github.com/san-kum/cableheat/internal/thermal"
	"github.com/san-kum/cableheat/internal/viz"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	logLevel  string
	logFormat string

	// Config file and preset
	configFile string
	preset     string

	// Model overrides
	shells       int
	timeStep     float64
	steps        int
	interval     int
	power        float64
	conductivity float64
	diameter     float64
	ambient      float64
	minDelta     float64
	gapPolicy    string

	// Renderer output
	framesDir string
	videoPath string
	chartPath string
	svgDir    string
	palette   string
	fps       int
	ascii     bool
	noSave    bool

	// Live view
	stepsPerFrame int

	// Server
	addr string

	// Batch runs
	workers    int
	metricName string
	gridParams []string
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepN     int
	outPath    string
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cableheat",
		Short:         "radial heat diffusion around a buried powered cable",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cableheat", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [name]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().StringVar(&framesDir, "frames", "", "write PNG cross-sections to this directory")
	runCmd.Flags().StringVar(&videoPath, "video", "", "write an MJPEG AVI of the cross-sections")
	runCmd.Flags().StringVar(&chartPath, "chart", "", "write a PNG temperature profile chart")
	runCmd.Flags().StringVar(&svgDir, "svg", "", "write SVG cross-sections to this directory")
	runCmd.Flags().StringVar(&palette, "palette", "bands", "cross-section palette (bands, hsv)")
	runCmd.Flags().IntVar(&fps, "fps", 4, "video frame rate")
	runCmd.Flags().BoolVar(&ascii, "ascii", false, "print a profile plot for every snapshot")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored temperature profiles",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&outPath, "png", "", "write a PNG chart instead of terminal plots")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSONFile(outPath, args[0])
		},
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run snapshots to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		RunE:  runLive,
	}
	addModelFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 96, "simulation steps per frame")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream simulations over websocket",
		RunE:  serve,
	}
	addModelFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addModelFlags(scenarioCmd)
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter linearly",
		RunE:  runSweep,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "heat_dissipation", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.5, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 5, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 10, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "grid search parameters that minimize a metric",
		RunE:  optimize,
	}
	addModelFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&gridParams, "grid", nil, "parameter=values, values as a,b,c or min:max:n (repeatable)")
	optimizeCmd.Flags().StringVar(&metricName, "metric", "peak_conductor_temp", "metric to minimize")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare gap policies on the same model",
		RunE:  comparePolicies,
	}
	addModelFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, liveCmd, serveCmd, scenarioCmd, sweepCmd, optimizeCmd, compareCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration errors and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, thermal.ErrConfiguration) {
		return 2
	}
	return 1
}

func setupLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	switch format {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}
	return nil
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or ini)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&shells, "shells", config.DefaultShells, "number of shells (1 cm each)")
	cmd.Flags().Float64Var(&timeStep, "dt", config.DefaultTimeStep, "time step in seconds")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultTotalSteps, "number of time steps")
	cmd.Flags().IntVar(&interval, "interval", config.DefaultSnapshotInterval, "steps between snapshots")
	cmd.Flags().Float64Var(&power, "power", config.DefaultHeatDissipation, "heat dissipation in watts")
	cmd.Flags().Float64Var(&conductivity, "conductivity", config.DefaultConductivity, "medium thermal conductivity")
	cmd.Flags().Float64Var(&diameter, "diameter", config.DefaultConductorDiameter, "conductor diameter in cm")
	cmd.Flags().Float64Var(&ambient, "ambient", config.DefaultAmbient, "ambient temperature in K")
	cmd.Flags().Float64Var(&minDelta, "min-delta", config.DefaultMinTempDelta, "smallest temperature gap that exchanges heat")
	cmd.Flags().StringVar(&gapPolicy, "gap-policy", config.DefaultGapPolicy, "small gap handling (stop, skip)")
}

// resolveConfig layers defaults, preset, config file and changed flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("shells") {
		cfg.ShellCount = shells
	}
	if flags.Changed("dt") {
		cfg.TimeStep = timeStep
	}
	if flags.Changed("steps") {
		cfg.TotalSteps = steps
	}
	if flags.Changed("interval") {
		cfg.SnapshotInterval = interval
	}
	if flags.Changed("power") {
		cfg.HeatDissipation = power
	}
	if flags.Changed("conductivity") {
		cfg.Medium.ThermalConductivity = conductivity
	}
	if flags.Changed("diameter") {
		cfg.Conductor.Diameter = diameter
	}
	if flags.Changed("ambient") {
		cfg.AmbientTemperature = ambient
	}
	if flags.Changed("min-delta") {
		cfg.MinTempDelta = minDelta
	}
	if flags.Changed("gap-policy") {
		cfg.GapPolicy = gapPolicy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildRenderers(cfg *config.Config) ([]sim.Renderer, error) {
	pal, ok := render.PaletteByName(palette, cfg.AmbientTemperature)
	if !ok {
		return nil, fmt.Errorf("unknown palette: %s", palette)
	}

	var renderers []sim.Renderer
	if framesDir != "" {
		r, err := render.NewFrameRenderer(framesDir, pal)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	if videoPath != "" {
		if err := os.MkdirAll(filepath.Dir(videoPath), 0755); err != nil {
			return nil, err
		}
		v, err := render.NewVideoRenderer(videoPath, render.DefaultFrameSize/2, fps, pal)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, v)
	}
	if chartPath != "" {
		renderers = append(renderers, render.NewChartRenderer(chartPath))
	}
	if svgDir != "" {
		r, err := export.NewSVGRenderer(svgDir, pal)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	if ascii {
		renderers = append(renderers, render.NewASCIIRenderer(os.Stdout))
	}
	return renderers, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	name := "run"
	if len(args) > 0 {
		name = args[0]
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := cfg.SimConfig()
	if err != nil {
		return err
	}

	d, err := sim.New(cfg.Params(), sc)
	if err != nil {
		return err
	}
	for _, m := range metrics.Default(sc, cfg.AmbientTemperature) {
		d.AddMetric(m)
	}
	rec := sim.NewRecorder()
	d.AddRenderer(rec)

	renderers, err := buildRenderers(cfg)
	if err != nil {
		return err
	}
	for _, r := range renderers {
		d.AddRenderer(r)
	}

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	result, runErr := d.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(name, cfg, rec.Snapshots, result)
		if err != nil {
			return err
		}
	}

	printSummary(os.Stdout, runID, elapsed, result)
	return runErr
}

func printSummary(w io.Writer, runID string, elapsed time.Duration, result *sim.Result) {
	status := okStyle.Render(result.Phase.String())
	if result.Phase != sim.Completed {
		status = warnStyle.Render(result.Phase.String())
	}

	fmt.Fprintln(w, titleStyle.Render("cableheat"))
	if runID != "" {
		fmt.Fprintln(w, keyStyle.Render("run id")+runID)
	}
	fmt.Fprintln(w, keyStyle.Render("status")+status)
	fmt.Fprintln(w, keyStyle.Render("elapsed")+elapsed.Round(time.Millisecond).String())
	fmt.Fprintln(w, keyStyle.Render("steps")+fmt.Sprintf("%d (%d days)", result.StepsTaken, result.Final.Days()))
	fmt.Fprintln(w, keyStyle.Render("conductor")+fmt.Sprintf("%.4f K", result.Final.Conductor()))
	fmt.Fprintln(w, keyStyle.Render("injected")+fmt.Sprintf("%.6g J", result.Injected))

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintln(w, keyStyle.Render("  "+name)+fmt.Sprintf("%.6g", result.Metrics[name]))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("\n%d renderer errors, first: %v", len(result.Errors), result.Errors[0])))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSHELLS\tSTEPS\tPOWER\tPOLICY\tPHASE\tCONDUCTOR")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2fW\t%s\t%s\t%.3fK\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Config.ShellCount,
			run.Steps,
			run.Config.HeatDissipation,
			run.Config.GapPolicy,
			run.Phase,
			run.Conductor,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	snaps, err := st.LoadSnapshots(runID)
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := render.ProfileChart(f, snaps, 1024, 512); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
		return f.Close()
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("snapshots: %d\n\n", len(snaps))

	a := render.NewASCIIRenderer(os.Stdout)
	for _, s := range snaps {
		if err := a.Render(s); err != nil {
			return err
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the view; keep driver logs out of it.
	quiet := log.New()
	quiet.SetOutput(io.Discard)

	m, err := viz.NewModel(cfg, stepsPerFrame, quiet)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1 << 16}
	return server.NewServer(addr, upgrader, cfg, log.StandardLogger()).Serve()
}

func runScenario(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	outcomes, err := automation.RunScenario(ctx, scenario, base, st, log.StandardLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN ID\tPOLICY\tCONDUCTOR\tFRONT\tDRIFT")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3fK\t%.0fcm\t%.2e\n",
			o.Name,
			o.RunID,
			o.Config.GapPolicy,
			o.Result.Final.Conductor(),
			o.Result.Metrics["thermal_front"],
			o.Result.Metrics["energy_balance"],
		)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	sweep := &automation.ParameterSweep{
		ParamName: sweepParam,
		Min:       sweepMin,
		Max:       sweepMax,
		NumSteps:  sweepN,
		Workers:   workers,
	}
	results, err := automation.RunSweep(ctx, sweep, base, log.StandardLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCONDUCTOR\tPEAK\tFRONT\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.3fK\t%.3fK\t%.0fcm\n",
			r.ParamValue, r.Conductor, r.Metrics["peak_conductor_temp"], r.Metrics["thermal_front"])
	}
	return w.Flush()
}

func optimize(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(gridParams) == 0 {
		return fmt.Errorf("at least one --grid is required (available: %v)", config.ParamNames())
	}

	names := make([]string, 0, len(gridParams))
	ranges := make([][]float64, 0, len(gridParams))
	for _, g := range gridParams {
		name, values, ok := strings.Cut(g, "=")
		if !ok {
			return fmt.Errorf("grid %q: expected parameter=values", g)
		}
		vals, err := optim.ParseRange(values)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	ctx, stop := signalContext()
	defer stop()

	search := optim.NewGridSearch(names, ranges, sim.NewEnsemble(workers, log.StandardLogger()))
	best, val, err := search.Search(ctx, base, metricName)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("best parameters"))
	for _, name := range names {
		fmt.Println(keyStyle.Render("  "+name) + fmt.Sprintf("%g", best[name]))
	}
	fmt.Println(keyStyle.Render(metricName) + fmt.Sprintf("%.6g", val))
	return nil
}

func comparePolicies(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	policies := []thermal.GapPolicy{thermal.StopAtSmallGap, thermal.SkipSmallGap}
	jobs := make([]sim.Job, len(policies))
	for i, p := range policies {
		cfg := base.Clone()
		cfg.GapPolicy = p.String()
		job, err := cfg.Job(p.String())
		if err != nil {
			return err
		}
		job.Metrics = metrics.Default(job.Config, cfg.AmbientTemperature)
		jobs[i] = job
	}

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	results, err := sim.NewEnsemble(len(jobs), log.StandardLogger()).Run(ctx, jobs)
	if err != nil {
		return err
	}

	fmt.Printf("comparing gap policies (%d shells, %d steps, min delta %.3g K) in %v\n\n",
		base.ShellCount, base.TotalSteps, base.MinTempDelta, time.Since(start).Round(time.Millisecond))
	fmt.Printf("%-8s  %-12s  %-12s  %-8s  %-12s\n", "policy", "conductor_K", "peak_K", "front", "energy_drift")
	fmt.Println(strings.Repeat("-", 60))
	for i, r := range results {
		fmt.Printf("%-8s  %12.4f  %12.4f  %8.0f  %12.2e\n",
			jobs[i].Name,
			r.Final.Conductor(),
			r.Metrics["peak_conductor_temp"],
			r.Metrics["thermal_front"],
			r.Metrics["energy_balance"],
		)
	}

	delta := results[1].Final.Conductor() - results[0].Final.Conductor()
	fmt.Printf("\nskip - stop conductor difference: %+.4f K\n", delta)
	return nil
}
