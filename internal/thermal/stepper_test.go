package thermal

import (
	"errors"
	"math"
	"testing"
)

func TestSweepConservesEnergy(t *testing.T) {
	st := newReferenceState(t, 50)
	setTemperature(st, 0, 320)
	setTemperature(st, 1, 300)

	stepper := NewStepper(0.85, 900, 0.1, StopAtSmallGap)
	source := NewSource(1, 900)

	for step := 0; step < 200; step++ {
		before := st.TotalEnergy()
		stepper.Sweep(st)
		injected := source.Inject(st)
		after := st.TotalEnergy()

		if math.Abs(after-before-injected) > 1e-4 {
			t.Fatalf("step %d: energy changed by %f, injected %f", step, after-before, injected)
		}
	}
	assertConsistent(t, st)
}

func TestSweepPairTransferIsSymmetric(t *testing.T) {
	st := newReferenceState(t, 2)
	setTemperature(st, 0, 260)

	e0, e1 := st.Energy(0), st.Energy(1)
	loss := 0.85 * (st.Temperature(0) - st.Temperature(1)) * st.Geometry().Area(0) * 900

	n := NewStepper(0.85, 900, 0.1, StopAtSmallGap).Sweep(st)
	if n != 1 {
		t.Fatalf("expected 1 exchange, got %d", n)
	}

	d0, d1 := st.Energy(0)-e0, st.Energy(1)-e1
	if math.Abs(d0+d1) > 1e-6 {
		t.Errorf("transfer not symmetric: %f vs %f", d0, d1)
	}
	if math.Abs(d1-loss) > 1e-6 {
		t.Errorf("transferred %f, want %f", d1, loss)
	}
}

func TestSweepIsSequential(t *testing.T) {
	// Shell 1 starts at ambient, so only a sweep that sees the update of
	// pair (0,1) can move anything into shell 2.
	st := newReferenceState(t, 3)
	setTemperature(st, 0, 400)

	NewStepper(0.85, 900, 0.1, StopAtSmallGap).Sweep(st)

	if st.Temperature(2) <= 230 {
		t.Errorf("shell 2 did not receive heat within the sweep: %f", st.Temperature(2))
	}
}

func TestSweepStopsAtFirstSmallGap(t *testing.T) {
	st := newReferenceState(t, 4)
	setTemperature(st, 0, 250)
	setTemperature(st, 1, 250)

	before := st.Temperatures(nil)
	n := NewStepper(0.85, 900, 0.1, StopAtSmallGap).Sweep(st)

	if n != 0 {
		t.Errorf("expected no exchanges, got %d", n)
	}
	for s := 0; s < st.Len(); s++ {
		if st.Temperature(s) != before[s] {
			t.Errorf("shell %d changed from %f to %f", s, before[s], st.Temperature(s))
		}
	}
}

func TestSweepSkipPolicyContinuesOutward(t *testing.T) {
	st := newReferenceState(t, 4)
	setTemperature(st, 0, 250)
	setTemperature(st, 1, 250)

	n := NewStepper(0.85, 900, 0.1, SkipSmallGap).Sweep(st)

	if n != 2 {
		t.Errorf("expected 2 exchanges, got %d", n)
	}
	if st.Temperature(1) >= 250 {
		t.Errorf("shell 1 should have cooled, got %f", st.Temperature(1))
	}
	if st.Temperature(3) <= 230 {
		t.Errorf("shell 3 should have warmed, got %f", st.Temperature(3))
	}
}

func TestSweepSingleShell(t *testing.T) {
	st := newReferenceState(t, 1)
	before := st.Energy(0)

	if n := NewStepper(0.85, 900, 0, StopAtSmallGap).Sweep(st); n != 0 {
		t.Errorf("expected no pairs, got %d", n)
	}

	NewSource(1, 900).Inject(st)
	if math.Abs(st.Energy(0)-(before+900)) > 1e-9 {
		t.Errorf("energy = %f, want %f", st.Energy(0), before+900)
	}
}

func TestThreeShellScenario(t *testing.T) {
	st := newReferenceState(t, 3)
	g := st.Geometry()
	initial := st.Energy(0)

	NewStepper(0.85, 900, 0, StopAtSmallGap).Sweep(st)
	if math.Abs(st.Energy(0)-initial) > 1e-6 {
		t.Errorf("equal temperatures moved energy: %f -> %f", initial, st.Energy(0))
	}

	injected := NewSource(1, 900).Inject(st)
	if injected != 900 {
		t.Errorf("injected %f, want 900", injected)
	}

	want := (initial + 900) / (g.Mass(0) * 0.903)
	if math.Abs(st.Temperature(0)-want) > 1e-9 {
		t.Errorf("conductor temperature = %f, want %f", st.Temperature(0), want)
	}
	if math.Abs(st.Temperature(1)-230) > 1e-9 || math.Abs(st.Temperature(2)-230) > 1e-9 {
		t.Errorf("outer shells moved: %f %f", st.Temperature(1), st.Temperature(2))
	}
}

func TestSweepDeterministic(t *testing.T) {
	run := func() []float64 {
		st := newReferenceState(t, 30)
		stepper := NewStepper(0.85, 900, 0.1, StopAtSmallGap)
		source := NewSource(1, 900)
		for i := 0; i < 500; i++ {
			stepper.Sweep(st)
			source.Inject(st)
		}
		return st.Temperatures(nil)
	}

	a, b := run(), run()
	for s := range a {
		if a[s] != b[s] {
			t.Fatalf("shell %d differs: %v vs %v", s, a[s], b[s])
		}
	}
}

func TestParseGapPolicy(t *testing.T) {
	tests := []struct {
		name string
		want GapPolicy
		ok   bool
	}{
		{"", StopAtSmallGap, true},
		{"stop", StopAtSmallGap, true},
		{"skip", SkipSmallGap, true},
		{"jacobi", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseGapPolicy(tt.name)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("ParseGapPolicy(%q) = %v, %v", tt.name, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("ParseGapPolicy(%q): expected ErrConfiguration, got %v", tt.name, err)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "gap policy" || cfgErr.Input != tt.name {
			t.Errorf("ParseGapPolicy(%q): expected a gap policy ConfigError, got %#v", tt.name, err)
		}
	}

	if SkipSmallGap.String() != "skip" || StopAtSmallGap.String() != "stop" {
		t.Error("policy names do not round trip")
	}
}
