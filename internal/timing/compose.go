package timing

import (
	"fmt"
	"math"

	"github.com/san-kum/pulsetiming/internal/phase"
	"github.com/san-kum/pulsetiming/internal/toa"
)

// BinaryCategory marks the components excluded from barycentric corrections.
const BinaryCategory = "binary"

// TotalDelay sums every delay function in ascending order key. The result
// is shared with the cache scope and must not be modified.
func (ev *Eval) TotalDelay() ([]float64, error) {
	return Memo(ev, keyTotalDelay, func() ([]float64, error) {
		return ev.delayThrough(math.MaxInt)
	})
}

// TotalPhase adds every phase function's contribution given the total delay.
func (ev *Eval) TotalPhase() (phase.Phase, error) {
	release := ev.enter()
	defer release()

	delay, err := ev.TotalDelay()
	if err != nil {
		return phase.Phase{}, err
	}
	return ev.PhaseAt(delay)
}

// PhaseAt sums the phase contributions for an already computed delay.
func (ev *Eval) PhaseAt(delay []float64) (phase.Phase, error) {
	total := phase.Zeros(ev.Len())
	for _, c := range ev.model.ComponentsOf(PhaseKind) {
		for _, fn := range c.base().phaseFuncs {
			ph, err := fn(ev, delay)
			if err != nil {
				return phase.Phase{}, fmt.Errorf("%s phase: %w", c.Name(), err)
			}
			if ph.Len() != ev.Len() {
				return phase.Phase{}, fmt.Errorf("%s phase: %w", c.Name(), ErrLengthMismatch)
			}
			if total, err = total.Add(ph); err != nil {
				return phase.Phase{}, err
			}
		}
	}
	return total, nil
}

// BarycentricCorrection sums the delay components ordered before the first
// binary component, or all of them when the model has none.
func (ev *Eval) BarycentricCorrection() ([]float64, error) {
	return Memo(ev, keyBarycentric, func() ([]float64, error) {
		return ev.delayThrough(ev.model.barycentricCutoff())
	})
}

// BarycentricCorrectionUpTo sums the delay components with order key at
// most cutoff.
func (ev *Eval) BarycentricCorrectionUpTo(cutoff int) ([]float64, error) {
	return ev.delayThrough(cutoff)
}

// BarycentricTimes returns observation times minus the barycentric
// correction, in seconds.
func (ev *Eval) BarycentricTimes() ([]float64, error) {
	corr, err := ev.BarycentricCorrection()
	if err != nil {
		return nil, err
	}
	times := ev.batch.Times()
	for i := range times {
		times[i] -= corr[i]
	}
	return times, nil
}

func (ev *Eval) delayThrough(cutoff int) ([]float64, error) {
	reg := ev.model.buckets[DelayKind]
	acc := make([]float64, ev.Len())
	for _, e := range reg.entries {
		if e.order > cutoff {
			break
		}
		for _, fn := range e.comp.base().delayFuncs {
			d, err := fn(ev, acc)
			if err != nil {
				return nil, fmt.Errorf("%s delay: %w", e.comp.Name(), err)
			}
			if len(d) != len(acc) {
				return nil, fmt.Errorf("%s delay: %w", e.comp.Name(), ErrLengthMismatch)
			}
			next := make([]float64, len(acc))
			for i := range acc {
				next[i] = acc[i] + d[i]
			}
			acc = next
		}
	}
	return acc, nil
}

func (m *Model) barycentricCutoff() int {
	for _, e := range m.buckets[DelayKind].entries {
		if e.comp.Category() == BinaryCategory {
			return e.order - 1
		}
	}
	return math.MaxInt
}

// TotalDelay evaluates the summed delay in seconds over b.
func (m *Model) TotalDelay(b *toa.Batch) ([]float64, error) {
	ev := m.NewEval(b)
	release := ev.enter()
	defer release()
	d, err := ev.TotalDelay()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), d...), nil
}

func (m *Model) TotalPhase(b *toa.Batch) (phase.Phase, error) {
	return m.NewEval(b).TotalPhase()
}

// BarycentricCorrection sums delays before the first binary component, or
// through cutoff when one is given.
func (m *Model) BarycentricCorrection(b *toa.Batch, cutoff ...int) ([]float64, error) {
	ev := m.NewEval(b)
	release := ev.enter()
	defer release()
	if len(cutoff) > 0 {
		return ev.BarycentricCorrectionUpTo(cutoff[0])
	}
	d, err := ev.BarycentricCorrection()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), d...), nil
}

func (m *Model) BarycentricTimes(b *toa.Batch) ([]float64, error) {
	ev := m.NewEval(b)
	release := ev.enter()
	defer release()
	return ev.BarycentricTimes()
}

// DPhaseDTOA is the central difference of total phase with respect to
// arrival time, in cycles per second. A zero step uses 1000 spin periods.
func (m *Model) DPhaseDTOA(b *toa.Batch, step float64) ([]float64, error) {
	if step == 0 {
		f0, err := m.Param(m.spinParam)
		if err != nil {
			return nil, err
		}
		if f0.Float() == 0 {
			return nil, &MissingParameterError{Component: ModelOwner, Param: m.spinParam, Msg: "needed for the default step"}
		}
		step = 1000 / f0.Float()
	}
	plus, err := m.uncached(b.ShiftAll(step)).TotalPhase()
	if err != nil {
		return nil, err
	}
	minus, err := m.uncached(b.ShiftAll(-step)).TotalPhase()
	if err != nil {
		return nil, err
	}
	diff, err := plus.Diff(minus)
	if err != nil {
		return nil, err
	}
	for i := range diff {
		diff[i] /= 2 * step
	}
	return diff, nil
}
