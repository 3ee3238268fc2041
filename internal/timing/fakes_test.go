package timing

import (
	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/phase"
)

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// constDelay contributes a constant delay named by its parameter.
type constDelay struct {
	*Base
	value *param.Param
	calls int
}

func newConstDelay(name, pname string, v float64) *constDelay {
	c := &constDelay{Base: NewBase(name, "constant", DelayKind)}
	c.value = param.NewFloat(pname, "s", "constant delay", param.WithValue(v), param.Free())
	_ = c.AddParam(c.value)
	c.AddDelayFunc(func(ev *Eval, _ []float64) ([]float64, error) {
		c.calls++
		return filled(ev.Len(), c.value.Float()), nil
	})
	_ = c.RegisterDerivative(pname, func(ev *Eval, _ string, _ []float64) ([]float64, error) {
		return filled(ev.Len(), 1), nil
	})
	return c
}

// echoDelay adds k times the delay accumulated before it.
type echoDelay struct {
	*Base
	k *param.Param
}

func newEchoDelay() *echoDelay {
	c := &echoDelay{Base: NewBase("EchoDelay", "echo", DelayKind)}
	c.k = param.NewFloat("ECHO", "", "echo gain", param.WithValue(0.5))
	_ = c.AddParam(c.k)
	c.AddDelayFunc(func(ev *Eval, acc []float64) ([]float64, error) {
		out := make([]float64, len(acc))
		for i := range acc {
			out[i] = c.k.Float() * acc[i]
		}
		return out, nil
	})
	return c
}

// orbitDelay is a binary stand-in proportional to barycentric time.
type orbitDelay struct {
	*Base
	a *param.Param
}

func newOrbitDelay() *orbitDelay {
	c := &orbitDelay{Base: NewBase("OrbitDelay", BinaryCategory, DelayKind)}
	c.a = param.NewFloat("ORB", "", "orbit slope", param.WithValue(1e-3), param.Free())
	_ = c.AddParam(c.a)
	c.AddDelayFunc(func(ev *Eval, _ []float64) ([]float64, error) {
		bt, err := ev.BarycentricTimes()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(bt))
		for i := range bt {
			out[i] = c.a.Float() * bt[i]
		}
		return out, nil
	})
	_ = c.RegisterDerivative("ORB", func(ev *Eval, _ string, _ []float64) ([]float64, error) {
		return ev.BarycentricTimes()
	})
	return c
}

// spinPhase is F0 * (t - delay) with direct F0 derivative.
type spinPhase struct {
	*Base
	f0 *param.Param
}

func newSpinPhase(f0 float64) *spinPhase {
	c := &spinPhase{Base: NewBase("SpinPhase", "spindown", PhaseKind)}
	c.f0 = param.NewFloat("F0", "Hz", "spin frequency", param.WithValue(f0), param.Free())
	_ = c.AddParam(c.f0)
	c.AddPhaseFunc(func(ev *Eval, delay []float64) (phase.Phase, error) {
		times := ev.Batch().Times()
		cycles := make([]float64, len(times))
		for i := range times {
			cycles[i] = c.f0.Float() * (times[i] - delay[i])
		}
		return phase.FromCycles(cycles)
	})
	_ = c.RegisterDerivative("F0", func(ev *Eval, _ string, delay []float64) ([]float64, error) {
		times := ev.Batch().Times()
		for i := range times {
			times[i] -= delay[i]
		}
		return times, nil
	})
	c.RegisterPhaseDelayDerivative(func(ev *Eval, _ []float64) ([]float64, error) {
		return filled(ev.Len(), -c.f0.Float()), nil
	})
	return c
}

func (c *spinPhase) Setup() error {
	return c.Require("F0")
}

// plainDelay has a parameter without any registered derivative.
func newPlainDelay() *constDelay {
	c := &constDelay{Base: NewBase("PlainDelay", "plain", DelayKind)}
	c.value = param.NewFloat("PLAIN", "s", "plain delay", param.WithValue(2), param.Free())
	_ = c.AddParam(c.value)
	c.AddDelayFunc(func(ev *Eval, _ []float64) ([]float64, error) {
		return filled(ev.Len(), c.value.Float()), nil
	})
	return c
}

// indexedDelay owns a JITTER<i> prefix family.
func newIndexedDelay() *constDelay {
	c := &constDelay{Base: NewBase("IndexedDelay", "indexed", DelayKind)}
	c.DeclarePrefixFamily([]string{"JITTER"}, func(i int) []*param.Param {
		return []*param.Param{param.NewPrefixed(param.Float, "JITTER", i, "s", "jitter term")}
	})
	c.AddDelayFunc(func(ev *Eval, _ []float64) ([]float64, error) {
		total := 0.0
		for _, p := range c.Params() {
			total += p.Float()
		}
		return filled(ev.Len(), total), nil
	})
	return c
}
