package components

import (
	"math"
	"strings"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
)

// BinaryCircular is the Roemer delay of a circular orbit,
// A1·sin(2π(t_b - TASC)/PB), evaluated at barycentric time t_b.
type BinaryCircular struct {
	*timing.Base

	A1   *param.Param
	PB   *param.Param
	TASC *param.Param
}

// BinaryModelName is the BINARY record value that selects this component.
const BinaryModelName = "CIRC"

func NewBinaryCircular() *BinaryCircular {
	b := &BinaryCircular{
		Base: timing.NewBase("BinaryCircular", timing.BinaryCategory, timing.DelayKind),
		A1:   param.NewFloat("A1", "ls", "Projected semi-major axis"),
		PB:   param.NewFloat("PB", "d", "Orbital period"),
		TASC: param.NewMJD("TASC", "Epoch of ascending node"),
	}
	for _, p := range []*param.Param{b.A1, b.PB, b.TASC} {
		_ = b.AddParam(p)
	}

	b.AddDelayFunc(b.delay)
	_ = b.RegisterDerivative("A1", b.dA1)
	_ = b.RegisterDerivative("PB", b.dPB)
	_ = b.RegisterDerivative("TASC", b.dTASC)
	return b
}

// AppliesTo requires BINARY to name this orbit model.
func (b *BinaryCircular) AppliesTo(records timing.Records) bool {
	return strings.EqualFold(records.Value("BINARY"), BinaryModelName)
}

func (b *BinaryCircular) Setup() error {
	if !b.A1.IsSet() {
		return nil
	}
	if err := b.Require("PB", "TASC"); err != nil {
		return err
	}
	if b.PB.Float() <= 0 {
		return &timing.MissingParameterError{Component: b.Name(), Param: "PB", Msg: "orbital period must be positive"}
	}
	return nil
}

// orbitalPhase returns the orbital phase in radians at each TOA.
func (b *BinaryCircular) orbitalPhase(ev *timing.Eval) ([]float64, error) {
	bt, err := ev.BarycentricTimes()
	if err != nil {
		return nil, err
	}
	pb := b.PB.Float() * toa.SecondsPerDay
	t0 := b.TASC.Float() * toa.SecondsPerDay
	out := make([]float64, len(bt))
	if pb == 0 {
		return out, nil
	}
	for i, t := range bt {
		out[i] = 2 * math.Pi * (t - t0) / pb
	}
	return out, nil
}

func (b *BinaryCircular) delay(ev *timing.Eval, _ []float64) ([]float64, error) {
	phi, err := b.orbitalPhase(ev)
	if err != nil {
		return nil, err
	}
	a1 := b.A1.Float()
	for i, x := range phi {
		phi[i] = a1 * math.Sin(x)
	}
	return phi, nil
}

func (b *BinaryCircular) dA1(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	phi, err := b.orbitalPhase(ev)
	if err != nil {
		return nil, err
	}
	for i, x := range phi {
		phi[i] = math.Sin(x)
	}
	return phi, nil
}

// dPB is per day: dΦ/dPB = -Φ/PB.
func (b *BinaryCircular) dPB(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	phi, err := b.orbitalPhase(ev)
	if err != nil {
		return nil, err
	}
	a1, pb := b.A1.Float(), b.PB.Float()
	for i, x := range phi {
		phi[i] = -a1 * math.Cos(x) * x / pb
	}
	return phi, nil
}

// dTASC is per day: dΦ/dTASC = -2π/PB.
func (b *BinaryCircular) dTASC(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	phi, err := b.orbitalPhase(ev)
	if err != nil {
		return nil, err
	}
	a1, pb := b.A1.Float(), b.PB.Float()
	for i, x := range phi {
		phi[i] = -a1 * math.Cos(x) * 2 * math.Pi / pb
	}
	return phi, nil
}
