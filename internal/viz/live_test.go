package viz

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/sim"
	log "github.com/sirupsen/logrus"
)

func testModel(t *testing.T, steps, perTick int) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ShellCount = 30
	cfg.TotalSteps = steps
	cfg.ProgressInterval = 0

	logger := log.New()
	logger.SetOutput(io.Discard)

	m, err := NewModel(cfg, perTick, logger)
	if err != nil {
		t.Fatalf("new model failed: %v", err)
	}
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTickAdvancesDriver(t *testing.T) {
	m := testModel(t, 100, 10)

	m = update(m, TickMsg{})
	if got := m.driver.StepIndex(); got != 10 {
		t.Errorf("expected 10 steps, got %d", got)
	}
	if len(m.history) != 1 {
		t.Errorf("expected one history point, got %d", len(m.history))
	}
}

func TestTickStopsAtEnd(t *testing.T) {
	m := testModel(t, 15, 10)

	m = update(m, TickMsg{})
	m = update(m, TickMsg{})
	m = update(m, TickMsg{})

	if got := m.driver.StepIndex(); got != 15 {
		t.Errorf("expected 15 steps, got %d", got)
	}
	if m.running || m.driver.Phase() != sim.Completed {
		t.Errorf("expected completed run, phase %v", m.driver.Phase())
	}
	if !strings.Contains(m.View(), "COMPLETED") {
		t.Error("view does not show completion")
	}
}

func TestPauseAndSpeed(t *testing.T) {
	m := testModel(t, 100, 4)

	m = update(m, tea.KeyMsg{Type: tea.KeySpace})
	m = update(m, TickMsg{})
	if m.driver.StepIndex() != 0 {
		t.Error("paused model should not step")
	}

	m = update(m, key("+"))
	m = update(m, tea.KeyMsg{Type: tea.KeySpace})
	m = update(m, TickMsg{})
	if got := m.driver.StepIndex(); got != 8 {
		t.Errorf("expected 8 steps after doubling, got %d", got)
	}
}

func TestAdjustParamRestarts(t *testing.T) {
	m := testModel(t, 100, 10)
	m = update(m, TickMsg{})

	before := m.cfg.HeatDissipation
	m = update(m, tea.KeyMsg{Type: tea.KeyUp})

	if m.cfg.HeatDissipation != before*1.05 {
		t.Errorf("expected %f, got %f", before*1.05, m.cfg.HeatDissipation)
	}
	if m.driver.StepIndex() != 0 {
		t.Error("tuning should restart the run")
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if TunableParams[m.selected] != "medium.thermal_conductivity" {
		t.Errorf("unexpected selection %s", TunableParams[m.selected])
	}
}

func TestViewShowsState(t *testing.T) {
	m := testModel(t, 200, 100)
	m = update(m, TickMsg{})

	view := m.View()
	for _, want := range []string{"CABLEHEAT", "Conductor", "heat_dissipation", "RUNNING"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Trim(m.canvas.String(), string(rune(brailleBlank))+"\n") == "" {
		t.Error("cross-section is empty")
	}
}

func TestQuit(t *testing.T) {
	m := testModel(t, 10, 1)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
