// Package phase provides split-precision pulse phase arrays.
//
// A pulse phase after years of observation is of order 1e11 cycles, which
// leaves a float64 with roughly 1e-5 cycles of fractional resolution. A
// [Phase] keeps the integer cycle count and the fractional cycle separately
// so arithmetic on the fraction does not lose precision as the count grows.
package phase

import (
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// ErrLengthMismatch indicates arithmetic between phases of different lengths.
var ErrLengthMismatch = errors.New("phase: length mismatch")

// Phase is a per-observation pulse phase. Frac is kept in [-0.5, 0.5).
type Phase struct {
	Int  []int64
	Frac []float64
}

func Zeros(n int) Phase {
	return Phase{Int: make([]int64, n), Frac: make([]float64, n)}
}

// FromCycles splits whole-cycle values into integer and fractional parts.
func FromCycles(cycles []float64) (Phase, error) {
	p := Zeros(len(cycles))
	for i, c := range cycles {
		n, f, err := split(c)
		if err != nil {
			return Phase{}, fmt.Errorf("phase: observation %d: %w", i, err)
		}
		p.Int[i], p.Frac[i] = n, f
	}
	return p, nil
}

// FromParts builds a phase from a high and low order pair, hi[i] + lo[i],
// as produced by an error-free product.
func FromParts(hi, lo []float64) (Phase, error) {
	if len(hi) != len(lo) {
		return Phase{}, fmt.Errorf("%w: %d and %d", ErrLengthMismatch, len(hi), len(lo))
	}
	p, err := FromCycles(hi)
	if err != nil {
		return Phase{}, err
	}
	q, err := FromCycles(lo)
	if err != nil {
		return Phase{}, err
	}
	return p.Add(q)
}

func (p Phase) Len() int { return len(p.Int) }

func (p Phase) Add(q Phase) (Phase, error) {
	if p.Len() != q.Len() {
		return Phase{}, fmt.Errorf("%w: %d and %d", ErrLengthMismatch, p.Len(), q.Len())
	}
	r := Zeros(p.Len())
	for i := range p.Int {
		r.Int[i], r.Frac[i] = normalize(p.Int[i]+q.Int[i], p.Frac[i]+q.Frac[i])
	}
	return r, nil
}

func (p Phase) Neg() Phase {
	r := Zeros(p.Len())
	for i := range p.Int {
		r.Int[i], r.Frac[i] = normalize(-p.Int[i], -p.Frac[i])
	}
	return r
}

func (p Phase) Sub(q Phase) (Phase, error) {
	return p.Add(q.Neg())
}

// Cycles collapses the phase to float64 cycles.
func (p Phase) Cycles() []float64 {
	out := make([]float64, p.Len())
	for i := range p.Int {
		out[i] = float64(p.Int[i]) + p.Frac[i]
	}
	return out
}

// Diff returns p - q in cycles, subtracting integer and fractional parts
// separately before combining.
func (p Phase) Diff(q Phase) ([]float64, error) {
	if p.Len() != q.Len() {
		return nil, fmt.Errorf("%w: %d and %d", ErrLengthMismatch, p.Len(), q.Len())
	}
	out := make([]float64, p.Len())
	for i := range p.Int {
		out[i] = float64(p.Int[i]-q.Int[i]) + (p.Frac[i] - q.Frac[i])
	}
	return out, nil
}

func split(x float64) (int64, float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, 0, fmt.Errorf("non-finite phase %v", x)
	}
	whole := math.Round(x)
	n, err := safecast.Convert[int64](whole)
	if err != nil {
		return 0, 0, err
	}
	i, f := normalize(n, x-whole)
	return i, f, nil
}

func normalize(n int64, f float64) (int64, float64) {
	whole := math.Round(f)
	f -= whole
	n += int64(whole)
	if f >= 0.5 {
		f--
		n++
	}
	return n, f
}
