package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/metrics"
	"github.com/san-kum/cableheat/internal/render"
	"github.com/san-kum/cableheat/internal/sim"
	log "github.com/sirupsen/logrus"
)

const (
	width           = 40
	height          = 20
	historyCapacity = 600
	profileShells   = 60
	maxStepsPerTick = 4096
)

// TunableParams are the parameters the view lets you adjust.
var TunableParams = []string{
	"heat_dissipation",
	"medium.thermal_conductivity",
	"conductor.diameter",
	"min_temp_delta",
}

type TickMsg time.Time

// Model owns one driver and advances it from the Bubble Tea tick loop.
type Model struct {
	cfg          *config.Config
	driver       *sim.Driver
	front        *metrics.ThermalFront
	log          log.FieldLogger
	err          error
	stepsPerTick int
	running      bool
	canvas       *Canvas
	history      []float64
	selected     int
	showHelp     bool
}

// NewModel builds the first driver from cfg. The logger receives the
// driver's progress; pass a quiet one when the terminal is taken by the view.
func NewModel(cfg *config.Config, stepsPerTick int, logger log.FieldLogger) (Model, error) {
	if stepsPerTick < 1 {
		stepsPerTick = 1
	}
	m := Model{
		cfg:          cfg.Clone(),
		log:          logger,
		stepsPerTick: stepsPerTick,
		running:      true,
		canvas:       NewCanvas(width, height),
		history:      make([]float64, 0, historyCapacity),
	}
	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) restart() error {
	sc, err := m.cfg.SimConfig()
	if err != nil {
		return err
	}
	d, err := sim.New(m.cfg.Params(), sc, sim.WithLogger(m.log))
	if err != nil {
		return err
	}
	m.front = metrics.NewThermalFront(m.cfg.AmbientTemperature, metrics.FrontMargin)
	d.AddMetric(m.front)

	m.driver = d
	m.err = nil
	m.history = m.history[:0]
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.err = m.restart()
			m.running = m.err == nil
		case "tab":
			m.selected = (m.selected + 1) % len(TunableParams)
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "+", "=":
			if m.stepsPerTick < maxStepsPerTick {
				m.stepsPerTick *= 2
			}
		case "-", "_":
			if m.stepsPerTick > 1 {
				m.stepsPerTick /= 2
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance takes up to stepsPerTick steps and records the conductor
// temperature once per frame.
func (m *Model) advance() {
	for i := 0; i < m.stepsPerTick && !m.driver.Done(); i++ {
		if err := m.driver.Step(); err != nil {
			m.err = err
			break
		}
	}
	if m.driver.Done() {
		m.running = false
	}

	m.history = append(m.history, m.driver.State().Temperature(0))
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m *Model) adjustParam(factor float64) {
	key := TunableParams[m.selected]
	cfg := m.cfg.Clone()
	if err := cfg.SetParam(key, cfg.GetParams()[key]*factor); err != nil {
		m.err = err
		return
	}
	if err := cfg.Validate(); err != nil {
		m.err = err
		return
	}
	m.cfg = cfg
	m.err = m.restart()
}

// drawCrossSection marks the conductor and the outer edge of every 10 K
// band, out to the shell count that fits the canvas.
func (m *Model) drawCrossSection(s sim.Snapshot) {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	cx, cy := float64(w)/2, float64(h)/2

	reach := int(m.front.Value()) + 3
	if reach < 10 {
		reach = 10
	}
	if reach > len(s.Temperatures) {
		reach = len(s.Temperatures)
	}
	dotsPerShell := math.Min(cx, cy) / float64(reach)

	band := func(shell int) int {
		if shell >= len(s.Temperatures) || !(s.Temperatures[shell] > s.Ambient+metrics.FrontMargin) {
			return -1
		}
		return int(math.Floor(s.Temperatures[shell] / 10))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			shell := int(r / dotsPerShell)
			if shell == 0 && r < dotsPerShell/2 {
				m.canvas.Set(x, y)
				continue
			}
			edge := int((r + 1) / dotsPerShell)
			if edge != shell && band(shell) >= 0 && band(shell) != band(shell+1) {
				m.canvas.Set(x, y)
			}
		}
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("ERROR")
	case m.driver.Phase() == sim.Completed:
		return StatusRunning.Render("COMPLETED")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	default:
		return StatusRunning.Render("RUNNING")
	}
}

func (m Model) View() string {
	snap := m.driver.Snapshot()
	m.drawCrossSection(snap)
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("CABLEHEAT") + "\n")
	s.WriteString(m.status() + "\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n")

	s.WriteString(graphStyle.Render(render.Profile(snap, profileShells, 36, 6)) + "\n")

	total := m.driver.Config().TotalSteps
	progress := 1.0
	if total > 0 {
		progress = float64(snap.Step) / float64(total)
	}
	s.WriteString(labelStyle.Render("Progress") + ProgressBar(progress, 24) + "\n")
	s.WriteString(labelStyle.Render("Day") + valueStyle.Render(fmt.Sprintf("%d (step %d/%d)", snap.Days(), snap.Step, total)) + "\n")
	s.WriteString(labelStyle.Render("Conductor") + valueStyle.Render(fmt.Sprintf("%.3f K", snap.Conductor())) + "\n")
	s.WriteString(labelStyle.Render("Front") + valueStyle.Render(fmt.Sprintf("%.0f cm", m.front.Value())) + "\n")
	s.WriteString(labelStyle.Render("Injected") + valueStyle.Render(fmt.Sprintf("%.3g J", m.driver.Injected())) + "\n")
	s.WriteString(labelStyle.Render("Steps/frame") + valueStyle.Render(fmt.Sprintf("%d", m.stepsPerTick)) + "\n")
	s.WriteString(labelStyle.Render("History") + SparklineChart(m.history, 30) + "\n")

	s.WriteString("\nPARAMETERS\n")
	params := m.cfg.GetParams()
	for i, k := range TunableParams {
		line := fmt.Sprintf("%-28s %.4g", k, params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Restart Q:Quit\nTab:Param ↑↓:Tune +-:Speed ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart                  ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  + / -    - Faster / slower          ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Run starts the full screen program.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
