package components

import (
	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/phase"
	"github.com/san-kum/pulsetiming/internal/timing"
)

// ConstantDelay adds the same delay, in seconds, to every TOA.
type ConstantDelay struct {
	*timing.Base

	Value *param.Param
}

// NewConstantDelay names its parameter; the component is registered as
// "ConstantDelay" in the "constant" category.
func NewConstantDelay(name string) *ConstantDelay {
	c := &ConstantDelay{
		Base:  timing.NewBase("ConstantDelay", "constant", timing.DelayKind),
		Value: param.NewFloat(name, "s", "Constant delay"),
	}
	_ = c.AddParam(c.Value)
	c.AddDelayFunc(func(ev *timing.Eval, _ []float64) ([]float64, error) {
		return fill(ev.Len(), c.Value.Float()), nil
	})
	_ = c.RegisterDerivative(name, func(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
		return fill(ev.Len(), 1), nil
	})
	return c
}

// PhaseOffset adds PHOFF cycles to every TOA.
type PhaseOffset struct {
	*timing.Base

	PHOFF *param.Param
}

func NewPhaseOffset() *PhaseOffset {
	o := &PhaseOffset{
		Base:  timing.NewBase("PhaseOffset", "phase_offset", timing.PhaseKind),
		PHOFF: param.NewFloat("PHOFF", "cycle", "Overall phase offset"),
	}
	_ = o.AddParam(o.PHOFF)
	o.AddPhaseFunc(func(ev *timing.Eval, _ []float64) (phase.Phase, error) {
		return phase.FromCycles(fill(ev.Len(), o.PHOFF.Float()))
	})
	_ = o.RegisterDerivative("PHOFF", func(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
		return fill(ev.Len(), 1), nil
	})
	return o
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
