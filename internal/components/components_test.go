package components

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
)

func quiet() timing.Option {
	return timing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func set(t *testing.T, m *timing.Model, values map[string]float64) {
	t.Helper()
	for name, v := range values {
		p, err := m.Param(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := p.SetFloat(v); err != nil {
			t.Fatal(err)
		}
		p.Frozen = false
	}
}

func testBatch() *toa.Batch {
	mjds := []float64{55000.6, 55001.4, 55002.1, 55002.9, 55003.7}
	freqs := []float64{120, 200, 310, 400, 150}
	toas := make([]toa.TOA, len(mjds))
	for i := range mjds {
		toas[i] = toa.TOA{Time: mjds[i] * toa.SecondsPerDay, Freq: freqs[i], Error: 1}
	}
	return toa.NewBatch(toas)
}

func withinTol(t *testing.T, name string, analytic, numeric []float64) {
	t.Helper()
	scale := 0.0
	for _, a := range analytic {
		scale = math.Max(scale, math.Abs(a))
	}
	for i := range analytic {
		if diff := math.Abs(numeric[i] - analytic[i]); diff > 1e-4*math.Abs(analytic[i])+1e-6*scale {
			t.Errorf("%s[%d]: analytic %g numeric %g", name, i, analytic[i], numeric[i])
		}
	}
}

func TestPhaseDerivativesAgree(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	disp := NewDispersion()
	for _, c := range []timing.Component{NewBinaryCircular(), disp, NewConstantDelay("DELAY"), NewSpindown(), NewPhaseOffset()} {
		if err := m.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}
	set(t, m, map[string]float64{
		"A1": 2, "PB": 1.5, "TASC": 55000.3,
		"DM": 10, "DELAY": 0.5,
		"F0": 50, "F1": -1e-13, "PEPOCH": 55001.9,
		"PHOFF": 0.1,
	})
	if err := disp.AddDMXRange(1, 0.02, 55001, 55003); err != nil {
		t.Fatal(err)
	}
	if err := m.Setup(); err != nil {
		t.Fatal(err)
	}

	steps := map[string]float64{"PB": 1e-6, "TASC": 1e-9}
	b := testBatch()
	for _, name := range []string{"A1", "PB", "TASC", "DM", "DMX_0001", "DELAY", "F0", "F1", "PEPOCH", "PHOFF"} {
		analytic, err := m.DPhaseDParam(b, nil, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		step := timing.DefaultNumericStep
		if s, ok := steps[name]; ok {
			step = s
		}
		numeric, err := m.DPhaseDParamNumeric(b, name, step)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		withinTol(t, name, analytic, numeric)
	}
}

func TestSpindown(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	s := NewSpindown()
	if err := m.AddComponent(s); err != nil {
		t.Fatal(err)
	}
	set(t, m, map[string]float64{"F0": 2, "F1": -0.5, "PEPOCH": 1})

	b := toa.FromTimes([]float64{toa.SecondsPerDay + 1, toa.SecondsPerDay + 4}, 1400)
	ph, err := m.TotalPhase(b)
	if err != nil {
		t.Fatal(err)
	}
	// 2·1 - 0.25·1 and 2·4 - 0.25·16
	want := []float64{1.75, 4}
	for i, c := range ph.Cycles() {
		if math.Abs(c-want[i]) > 1e-9 {
			t.Errorf("phase[%d] = %v, want %v", i, c, want[i])
		}
	}

	s.PEPOCH.Unset()
	var mpe *timing.MissingParameterError
	if err := s.Setup(); !errors.As(err, &mpe) || mpe.Param != "PEPOCH" {
		t.Errorf("expected missing PEPOCH, got %v", err)
	}
	s.F0.Unset()
	if err := s.Setup(); !errors.Is(err, timing.ErrMissingParameter) {
		t.Errorf("expected missing F0, got %v", err)
	}
}

func TestSpindown_LargeCycleCount(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	if err := m.AddComponent(NewSpindown()); err != nil {
		t.Fatal(err)
	}
	set(t, m, map[string]float64{"F0": 641.928222127829})

	// ~2e12 cycles; the fraction must still follow the exact product
	dt := 3.1e9 + 0.125
	ph, err := m.TotalPhase(toa.FromTimes([]float64{dt}, 1400))
	if err != nil {
		t.Fatal(err)
	}
	hi := 641.928222127829 * dt
	lo := math.FMA(641.928222127829, dt, -hi)
	whole := math.Round(hi)
	residual := float64(ph.Int[0]-int64(whole)) + ph.Frac[0] - ((hi - whole) + lo)
	if math.Abs(residual) > 1e-9 {
		t.Errorf("phase = %d + %v, off by %g cycles", ph.Int[0], ph.Frac[0], residual)
	}
}

func TestDispersion(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	d := NewDispersion()
	if err := m.AddComponent(d); err != nil {
		t.Fatal(err)
	}

	par := `DM 10
DMX_0001 0.5 1
DMXR1_0001 55000
DMXR2_0001 55001
DMXF1_0001 1400
`
	if err := m.ReadParfile(strings.NewReader(par)); err != nil {
		t.Fatal(err)
	}
	if len(m.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", m.Warnings())
	}
	if !d.HasDerivative("DMX_0001") {
		t.Error("DMX derivative not registered by Setup")
	}

	b := toa.NewBatch([]toa.TOA{
		{Time: 55000.5 * toa.SecondsPerDay, Freq: 1000},
		{Time: 55002 * toa.SecondsPerDay, Freq: 1000},
		{Time: 55002 * toa.SecondsPerDay},
	})
	delay, err := m.TotalDelay(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10.5 * DMConst / 1e6, 10 * DMConst / 1e6, 0}
	for i := range want {
		if math.Abs(delay[i]-want[i]) > 1e-12 {
			t.Errorf("delay[%d] = %v, want %v", i, delay[i], want[i])
		}
	}

	col, err := m.DDelayDParam(b, "DMX_0001")
	if err != nil {
		t.Fatal(err)
	}
	if col[0] == 0 || col[1] != 0 || col[2] != 0 {
		t.Errorf("DMX derivative outside its range: %v", col)
	}
}

func TestDispersion_UnpaddedIndices(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	d := NewDispersion()
	if err := m.AddComponent(d); err != nil {
		t.Fatal(err)
	}

	par := "DM 10\nDMX_1 0.01 1\nDMXR1_1 50000\nDMXR2_1 50010\n"
	if err := m.ReadParfile(strings.NewReader(par)); err != nil {
		t.Fatal(err)
	}
	if len(m.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", m.Warnings())
	}

	dmx, err := m.Param("DMX_0001")
	if err != nil {
		t.Fatal(err)
	}
	if dmx.Float() != 0.01 || dmx.Frozen {
		t.Errorf("DMX_0001 = %v frozen=%v, want 0.01 free", dmx.Float(), dmx.Frozen)
	}
	r1, err := m.Param("DMXR1_0001")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Float() != 50000 {
		t.Errorf("DMXR1_0001 = %v, want 50000", r1.Float())
	}
	if !d.HasDerivative("DMX_0001") {
		t.Error("DMX derivative not registered")
	}
}

func TestDispersion_BadRange(t *testing.T) {
	tests := []struct {
		name string
		par  string
	}{
		{"missing end", "DMX_0002 0.1\nDMXR1_0002 55000\n"},
		{"inverted", "DMX_0002 0.1\nDMXR1_0002 55001\nDMXR2_0002 55000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := timing.NewModel("J0000+0000", quiet())
			if err := m.AddComponent(NewDispersion()); err != nil {
				t.Fatal(err)
			}
			if err := m.ReadParfile(strings.NewReader(tt.par)); !errors.Is(err, timing.ErrMissingParameter) {
				t.Errorf("expected ErrMissingParameter, got %v", err)
			}
		})
	}
}

func TestBinaryCircular(t *testing.T) {
	recs, _ := timing.ParseRecords(strings.NewReader("BINARY CIRC\nA1 2\n"))
	if !NewBinaryCircular().AppliesTo(recs) {
		t.Error("CIRC binary should apply")
	}
	recs, _ = timing.ParseRecords(strings.NewReader("BINARY ELL1\nA1 2\n"))
	if NewBinaryCircular().AppliesTo(recs) {
		t.Error("CIRC binary should not apply to ELL1")
	}

	m := timing.NewModel("J0000+0000", quiet())
	bin := NewBinaryCircular()
	for _, c := range []timing.Component{NewConstantDelay("DELAY"), bin} {
		if err := m.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}
	set(t, m, map[string]float64{"DELAY": 3, "A1": 2, "PB": 1, "TASC": 0})

	// a quarter orbit after TASC once the 3 s correction is removed
	b := toa.FromTimes([]float64{toa.SecondsPerDay/4 + 3}, 1400)
	delay, err := m.TotalDelay(b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(delay[0]-5) > 1e-9 {
		t.Errorf("delay = %v, want 5", delay[0])
	}

	bin.PB.Unset()
	if err := bin.Setup(); !errors.Is(err, timing.ErrMissingParameter) {
		t.Errorf("expected missing PB, got %v", err)
	}
}

func TestSolarShapiro(t *testing.T) {
	recs, _ := timing.ParseRecords(strings.NewReader("F0 1\n"))
	if !NewSolarShapiro().AppliesTo(recs) {
		t.Error("solar Shapiro should apply by default")
	}
	recs, _ = timing.ParseRecords(strings.NewReader("NO_SS_SHAPIRO\n"))
	if NewSolarShapiro().AppliesTo(recs) {
		t.Error("solar Shapiro should honour the opt-out")
	}

	for _, planets := range []bool{false, true} {
		m := timing.NewModel("J0000+0000", quiet())
		s := NewSolarShapiro()
		if err := m.AddComponent(s); err != nil {
			t.Fatal(err)
		}
		set(t, m, map[string]float64{"ELONG": 30, "ELAT": 5})
		_ = s.PlanetShapiro.SetBool(planets)

		b := testBatch()
		for _, name := range []string{"ELONG", "ELAT"} {
			analytic, err := m.DDelayDParam(b, name)
			if err != nil {
				t.Fatal(err)
			}
			numeric, err := m.DDelayDParamNumeric(b, name, 1e-6)
			if err != nil {
				t.Fatal(err)
			}
			withinTol(t, name, analytic, numeric)
		}
	}

	if sp := NewSolarShapiro().SpecialParams(); len(sp) != 1 || sp[0] != "PLANET_SHAPIRO" {
		t.Errorf("special params = %v", sp)
	}
}

func TestPhaseOffset(t *testing.T) {
	m := timing.NewModel("J0000+0000", quiet())
	if err := m.AddComponent(NewPhaseOffset()); err != nil {
		t.Fatal(err)
	}
	set(t, m, map[string]float64{"PHOFF": 0.25})
	ph, err := m.TotalPhase(toa.FromTimes([]float64{1, 2}, 1400))
	if err != nil {
		t.Fatal(err)
	}
	if ph.Frac[0] != 0.25 || ph.Int[1] != 0 {
		t.Errorf("phase = %+v", ph)
	}
}
