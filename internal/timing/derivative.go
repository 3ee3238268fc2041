package timing

import (
	"errors"
	"fmt"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/phase"
	"github.com/san-kum/pulsetiming/internal/toa"
)

// DefaultNumericStep is the relative step of the numeric derivatives.
const DefaultNumericStep = 1e-2

// DDelayDParam sums the delay derivatives registered for name, in seconds
// per parameter unit.
func (ev *Eval) DDelayDParam(name string) ([]float64, error) {
	p, err := ev.model.Param(name)
	if err != nil {
		return nil, err
	}
	fns := ev.model.derivatives(DelayKind, p.Name)
	if len(fns) == 0 {
		return nil, &NoDerivativeError{Param: p.Name, Of: "delay"}
	}
	return ev.sumDerivs(fns, p.Name, nil)
}

// DPhaseDParam returns the phase derivative in cycles per parameter unit.
// A parameter with direct phase derivatives uses those alone; any other
// enters through the delay chain rule. delay may be nil.
func (ev *Eval) DPhaseDParam(delay []float64, name string) ([]float64, error) {
	p, err := ev.model.Param(name)
	if err != nil {
		return nil, err
	}

	release := ev.enter()
	defer release()
	if delay == nil {
		if delay, err = ev.TotalDelay(); err != nil {
			return nil, err
		}
	}

	if fns := ev.model.derivatives(PhaseKind, p.Name); len(fns) > 0 {
		return ev.sumDerivs(fns, p.Name, delay)
	}

	dd, err := ev.DDelayDParam(p.Name)
	if err != nil {
		var nd *NoDerivativeError
		if errors.As(err, &nd) {
			return nil, &NoDerivativeError{Param: p.Name, Of: "phase"}
		}
		return nil, err
	}
	dpdt, err := ev.DPhaseDDelay(delay)
	if err != nil {
		return nil, err
	}
	for i := range dd {
		dd[i] *= dpdt[i]
	}
	return dd, nil
}

// DPhaseDDelay sums every phase component's derivative with respect to
// delay, in cycles per second.
func (ev *Eval) DPhaseDDelay(delay []float64) ([]float64, error) {
	total := make([]float64, ev.Len())
	for _, c := range ev.model.ComponentsOf(PhaseKind) {
		for _, fn := range c.base().phaseDelayDerivs {
			d, err := fn(ev, delay)
			if err != nil {
				return nil, fmt.Errorf("%s d_phase/d_delay: %w", c.Name(), err)
			}
			if len(d) != len(total) {
				return nil, fmt.Errorf("%s d_phase/d_delay: %w", c.Name(), ErrLengthMismatch)
			}
			for i := range total {
				total[i] += d[i]
			}
		}
	}
	return total, nil
}

func (ev *Eval) sumDerivs(fns []DerivFunc, name string, delay []float64) ([]float64, error) {
	total := make([]float64, ev.Len())
	for _, fn := range fns {
		d, err := fn(ev, name, delay)
		if err != nil {
			return nil, fmt.Errorf("d/d%s: %w", name, err)
		}
		if len(d) != len(total) {
			return nil, fmt.Errorf("d/d%s: %w", name, ErrLengthMismatch)
		}
		for i := range total {
			total[i] += d[i]
		}
	}
	return total, nil
}

func (m *Model) derivatives(kind Kind, name string) []DerivFunc {
	var fns []DerivFunc
	for _, c := range m.ComponentsOf(kind) {
		fns = append(fns, c.base().derivs[name]...)
	}
	return fns
}

func (m *Model) DDelayDParam(b *toa.Batch, name string) ([]float64, error) {
	ev := m.NewEval(b)
	release := ev.enter()
	defer release()
	return ev.DDelayDParam(name)
}

func (m *Model) DPhaseDParam(b *toa.Batch, delay []float64, name string) ([]float64, error) {
	return m.NewEval(b).DPhaseDParam(delay, name)
}

// DPhaseDParamNumeric is the central difference of total phase with
// respect to name. The step is step times the value, or step itself when
// the value is zero. The original value is restored on every path.
func (m *Model) DPhaseDParamNumeric(b *toa.Batch, name string, step float64) ([]float64, error) {
	p, err := m.numericParam(name)
	if err != nil {
		return nil, err
	}
	if !p.IsSet() {
		return nil, &param.InvalidValueError{Param: p.Name, Kind: p.Kind(), Err: errNoValue}
	}

	orig := p.Float()
	h := stepFor(orig, step)
	defer func() { _ = p.SetFloat(orig) }()

	at := func(v float64) (phase.Phase, error) {
		if err := p.SetFloat(v); err != nil {
			return phase.Phase{}, err
		}
		return m.uncached(b).TotalPhase()
	}
	plus, err := at(orig + h)
	if err != nil {
		return nil, err
	}
	minus, err := at(orig - h)
	if err != nil {
		return nil, err
	}
	diff, err := plus.Diff(minus)
	if err != nil {
		return nil, err
	}
	for i := range diff {
		diff[i] /= 2 * h
	}
	return diff, nil
}

// DDelayDParamNumeric is DPhaseDParamNumeric applied to total delay. An
// unset parameter yields zeros.
func (m *Model) DDelayDParamNumeric(b *toa.Batch, name string, step float64) ([]float64, error) {
	p, err := m.numericParam(name)
	if err != nil {
		return nil, err
	}
	if !p.IsSet() {
		m.logger.Warn("parameter not used by the model, delay derivative is zero", "param", p.Name)
		return make([]float64, b.Len()), nil
	}

	orig := p.Float()
	h := stepFor(orig, step)
	defer func() { _ = p.SetFloat(orig) }()

	at := func(v float64) ([]float64, error) {
		if err := p.SetFloat(v); err != nil {
			return nil, err
		}
		return m.uncached(b).TotalDelay()
	}
	plus, err := at(orig + h)
	if err != nil {
		return nil, err
	}
	minus, err := at(orig - h)
	if err != nil {
		return nil, err
	}
	diff := make([]float64, len(plus))
	for i := range diff {
		diff[i] = (plus[i] - minus[i]) / (2 * h)
	}
	return diff, nil
}

var errNoValue = errors.New("no value to perturb")

func (m *Model) numericParam(name string) (*param.Param, error) {
	p, err := m.Param(name)
	if err != nil {
		return nil, err
	}
	if !p.Kind().Numeric() {
		return nil, &param.InvalidValueError{Param: p.Name, Kind: p.Kind(), Err: fmt.Errorf("%s parameter cannot be differentiated", p.Kind())}
	}
	return p, nil
}

func stepFor(value, step float64) float64 {
	if step == 0 {
		step = DefaultNumericStep
	}
	if value == 0 {
		return step
	}
	return value * step
}
