package phase

import (
	"errors"
	"math"
	"testing"
)

func TestFromCycles(t *testing.T) {
	tests := []struct {
		cycles float64
		n      int64
		frac   float64
	}{
		{0, 0, 0},
		{-10, -10, 0},
		{2.25, 2, 0.25},
		{2.75, 3, -0.25},
		{2.5, 3, -0.5},
		{-2.5, -2, -0.5},
		{-0.3, 0, -0.3},
	}

	for _, tt := range tests {
		p, err := FromCycles([]float64{tt.cycles})
		if err != nil {
			t.Fatalf("FromCycles(%v): %v", tt.cycles, err)
		}
		if p.Int[0] != tt.n || math.Abs(p.Frac[0]-tt.frac) > 1e-12 {
			t.Errorf("FromCycles(%v) = (%d, %v), want (%d, %v)", tt.cycles, p.Int[0], p.Frac[0], tt.n, tt.frac)
		}
	}
}

func TestFromCycles_NonFinite(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), 1e300} {
		if _, err := FromCycles([]float64{x}); err == nil {
			t.Errorf("FromCycles(%v): expected error", x)
		}
	}
}

func TestFromCycles_OutOfRange(t *testing.T) {
	for _, x := range []float64{1e30, -1e30} {
		if _, err := FromCycles([]float64{x}); err == nil {
			t.Errorf("FromCycles(%v): expected error", x)
		}
	}

	p, err := FromCycles([]float64{4e15 + 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if p.Int[0] != 4e15 || p.Frac[0] != 0.5 {
		t.Errorf("FromCycles(4e15+0.5) = (%d, %v)", p.Int[0], p.Frac[0])
	}
}

func TestAddKeepsFractionRange(t *testing.T) {
	a, _ := FromCycles([]float64{1.4, -3.45, 1e11 + 0.25})
	b, _ := FromCycles([]float64{0.3, -0.1, 1e11 + 0.375})

	sum, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range sum.Frac {
		if f < -0.5 || f >= 0.5 {
			t.Errorf("frac[%d] = %v out of range", i, f)
		}
	}
	if sum.Int[0] != 2 || math.Abs(sum.Frac[0]+0.3) > 1e-12 {
		t.Errorf("1.4+0.3 = (%d, %v)", sum.Int[0], sum.Frac[0])
	}
	if sum.Int[2] != 200000000001 || math.Abs(sum.Frac[2]+0.375) > 1e-12 {
		t.Errorf("large sum = (%d, %v)", sum.Int[2], sum.Frac[2])
	}
}

func TestAddLengthMismatch(t *testing.T) {
	if _, err := Zeros(2).Add(Zeros(3)); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestFromPartsPreservesLowOrder(t *testing.T) {
	f0, dt := 641.928222127829, 3.15576e8
	hi := f0 * dt
	lo := math.FMA(f0, dt, -hi)

	p, err := FromParts([]float64{hi}, []float64{lo})
	if err != nil {
		t.Fatal(err)
	}
	hp, _ := FromCycles([]float64{hi})
	d, _ := p.Diff(hp)
	if math.Abs(d[0]-lo) > 1e-9 {
		t.Errorf("low-order part %v, want %v", d[0], lo)
	}
}

func TestSubAndDiff(t *testing.T) {
	a, _ := FromCycles([]float64{100.125, -5.25})
	b, _ := FromCycles([]float64{99.5, -5.5})

	d, err := a.Sub(b)
	if err != nil {
		t.Fatal(err)
	}
	c := d.Cycles()
	if math.Abs(c[0]-0.625) > 1e-12 || math.Abs(c[1]-0.25) > 1e-12 {
		t.Errorf("Sub cycles = %v", c)
	}

	diff, _ := a.Diff(b)
	if math.Abs(diff[0]-0.625) > 1e-12 || math.Abs(diff[1]-0.25) > 1e-12 {
		t.Errorf("Diff = %v", diff)
	}
}
