package components

import (
	"math"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/phase"
	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
)

// Spindown is φ = F0·dt + F1·dt²/2 with dt = t - delay - PEPOCH.
type Spindown struct {
	*timing.Base

	F0     *param.Param
	F1     *param.Param
	PEPOCH *param.Param
}

func NewSpindown() *Spindown {
	s := &Spindown{
		Base:   timing.NewBase("Spindown", "spindown", timing.PhaseKind),
		F0:     param.NewFloat("F0", "Hz", "Spin frequency"),
		F1:     param.NewFloat("F1", "Hz/s", "Spin frequency derivative"),
		PEPOCH: param.NewMJD("PEPOCH", "Reference epoch for spin"),
	}
	for _, p := range []*param.Param{s.F0, s.F1, s.PEPOCH} {
		_ = s.AddParam(p)
	}

	s.AddPhaseFunc(s.spinPhase)
	_ = s.RegisterDerivative("F0", s.dF0)
	_ = s.RegisterDerivative("F1", s.dF1)
	_ = s.RegisterDerivative("PEPOCH", s.dPEPOCH)
	s.RegisterPhaseDelayDerivative(s.dDelay)
	return s
}

func (s *Spindown) Setup() error {
	if err := s.Require("F0"); err != nil {
		return err
	}
	if s.F1.IsSet() && s.F1.Float() != 0 {
		return s.Require("PEPOCH")
	}
	return nil
}

func (s *Spindown) dt(ev *timing.Eval, delay []float64) []float64 {
	t := ev.Batch().Times()
	epoch := s.PEPOCH.Float() * toa.SecondsPerDay
	for i := range t {
		t[i] = (t[i] - epoch) - delay[i]
	}
	return t
}

// spinPhase keeps the rounding error of F0·dt through an FMA so the fraction
// survives cycle counts near 1e11.
func (s *Spindown) spinPhase(ev *timing.Eval, delay []float64) (phase.Phase, error) {
	f0, f1 := s.F0.Float(), s.F1.Float()
	dt := s.dt(ev, delay)
	hi := make([]float64, len(dt))
	lo := make([]float64, len(dt))
	for i, x := range dt {
		hi[i] = f0 * x
		lo[i] = math.FMA(f0, x, -hi[i]) + 0.5*f1*x*x
	}
	return phase.FromParts(hi, lo)
}

func (s *Spindown) dF0(ev *timing.Eval, _ string, delay []float64) ([]float64, error) {
	return s.dt(ev, delay), nil
}

func (s *Spindown) dF1(ev *timing.Eval, _ string, delay []float64) ([]float64, error) {
	dt := s.dt(ev, delay)
	for i, x := range dt {
		dt[i] = 0.5 * x * x
	}
	return dt, nil
}

// dPEPOCH is per day.
func (s *Spindown) dPEPOCH(ev *timing.Eval, _ string, delay []float64) ([]float64, error) {
	d, err := s.dDelay(ev, delay)
	if err != nil {
		return nil, err
	}
	for i := range d {
		d[i] *= toa.SecondsPerDay
	}
	return d, nil
}

func (s *Spindown) dDelay(ev *timing.Eval, delay []float64) ([]float64, error) {
	f0, f1 := s.F0.Float(), s.F1.Float()
	dt := s.dt(ev, delay)
	for i, x := range dt {
		dt[i] = -(f0 + f1*x)
	}
	return dt, nil
}
