package components

import (
	"fmt"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/timing"
)

// DMConst is the dispersion constant in s MHz² cm³/pc.
const DMConst = 1.0 / 2.41e-4

const (
	dmxPrefix   = "DMX_"
	dmxR1Prefix = "DMXR1_"
	dmxR2Prefix = "DMXR2_"
)

// Dispersion is the cold plasma delay DMConst·DM/f², plus piecewise DMX
// offsets that apply to TOAs with MJD in [DMXR1_i, DMXR2_i].
type Dispersion struct {
	*timing.Base

	DM *param.Param
}

func NewDispersion() *Dispersion {
	d := &Dispersion{
		Base: timing.NewBase("Dispersion", "dispersion", timing.DelayKind),
		DM:   param.NewFloat("DM", "pc/cm3", "Dispersion measure"),
	}
	_ = d.AddParam(d.DM)
	d.DeclarePrefixFamily([]string{dmxPrefix, dmxR1Prefix, dmxR2Prefix}, dmxParams)

	d.AddDelayFunc(d.delay)
	_ = d.RegisterDerivative("DM", d.dDM)
	return d
}

func dmxParams(i int) []*param.Param {
	return []*param.Param{
		param.NewPrefixed(param.Float, dmxPrefix, i, "pc/cm3", "Dispersion measure offset"),
		param.NewPrefixed(param.MJD, dmxR1Prefix, i, "d", "Beginning of DMX interval"),
		param.NewPrefixed(param.MJD, dmxR2Prefix, i, "d", "End of DMX interval"),
	}
}

// AddDMXRange adds offset i over [r1, r2] MJD, free for fitting.
func (d *Dispersion) AddDMXRange(i int, dmx, r1, r2 float64) error {
	ps := dmxParams(i)
	for k, v := range []float64{dmx, r1, r2} {
		_ = ps[k].SetFloat(v)
	}
	ps[0].Frozen = false
	for _, p := range ps {
		if err := d.AddParam(p); err != nil {
			return err
		}
	}
	return d.registerDMX()
}

// Setup validates every DMX range and registers its derivatives.
func (d *Dispersion) Setup() error {
	for _, i := range d.PrefixIndices(dmxPrefix) {
		r1, r2 := d.bounds(i)
		if r1 == nil || r2 == nil || !r1.IsSet() || !r2.IsSet() {
			return &timing.MissingParameterError{
				Component: d.Name(),
				Param:     param.PrefixedName(dmxR1Prefix, i),
				Msg:       fmt.Sprintf("%s needs both range bounds", param.PrefixedName(dmxPrefix, i)),
			}
		}
		if r1.Float() >= r2.Float() {
			return &timing.MissingParameterError{
				Component: d.Name(),
				Param:     r2.Name,
				Msg:       fmt.Sprintf("range end %v is not after start %v", r2.Float(), r1.Float()),
			}
		}
	}
	return d.registerDMX()
}

func (d *Dispersion) registerDMX() error {
	for _, i := range d.PrefixIndices(dmxPrefix) {
		name := param.PrefixedName(dmxPrefix, i)
		if d.HasDerivative(name) {
			continue
		}
		if err := d.RegisterDerivative(name, d.dDMX); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispersion) bounds(i int) (*param.Param, *param.Param) {
	r1, _ := d.Param(param.PrefixedName(dmxR1Prefix, i))
	r2, _ := d.Param(param.PrefixedName(dmxR2Prefix, i))
	return r1, r2
}

// perDM returns DMConst/f² per TOA, zero for TOAs without a frequency.
func perDM(ev *timing.Eval) []float64 {
	freqs := ev.Batch().Freqs()
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		if f > 0 {
			out[i] = DMConst / (f * f)
		}
	}
	return out
}

func (d *Dispersion) delay(ev *timing.Eval, _ []float64) ([]float64, error) {
	k := perDM(ev)
	dm := make([]float64, len(k))
	for i := range dm {
		dm[i] = d.DM.Float()
	}
	mjds := ev.Batch().MJDs()
	for _, idx := range d.PrefixIndices(dmxPrefix) {
		p, _ := d.Param(param.PrefixedName(dmxPrefix, idx))
		r1, r2 := d.bounds(idx)
		if r1 == nil || r2 == nil {
			continue
		}
		for i, t := range mjds {
			if t >= r1.Float() && t <= r2.Float() {
				dm[i] += p.Float()
			}
		}
	}
	for i := range k {
		k[i] *= dm[i]
	}
	return k, nil
}

func (d *Dispersion) dDM(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	return perDM(ev), nil
}

func (d *Dispersion) dDMX(ev *timing.Eval, name string, _ []float64) ([]float64, error) {
	_, idx, err := param.SplitPrefixedName(name)
	if err != nil {
		return nil, err
	}
	r1, r2 := d.bounds(idx)
	k := perDM(ev)
	mjds := ev.Batch().MJDs()
	for i, t := range mjds {
		if r1 == nil || r2 == nil || t < r1.Float() || t > r2.Float() {
			k[i] = 0
		}
	}
	return k, nil
}
