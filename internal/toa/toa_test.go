package toa

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestShift(t *testing.T) {
	b := FromTimes([]float64{0, 1, 2}, 1400)

	shifted, err := b.Shift([]float64{0.5, -1, 10})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, 0, 12}
	for i, v := range shifted.Times() {
		if v != want[i] {
			t.Errorf("time[%d] = %v, want %v", i, v, want[i])
		}
	}
	if b.Times()[2] != 2 {
		t.Error("Shift modified the original batch")
	}

	if _, err := b.Shift([]float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestShiftAll(t *testing.T) {
	b := FromTimes([]float64{0, 1}, 1400).ShiftAll(-2)
	if b.Times()[0] != -2 || b.Times()[1] != -1 {
		t.Errorf("ShiftAll: %v", b.Times())
	}
}

func TestReadCSV(t *testing.T) {
	data := `mjd,freq,error,site
# calibration run
53750.5,1400,1.2,gbt
53751.5,820,2.0
`
	b, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 TOAs, got %d", b.Len())
	}
	if b.At(0).Site != "gbt" || b.At(1).Freq != 820 {
		t.Errorf("unexpected TOAs %+v", b.TOAs())
	}
	if math.Abs(b.At(0).MJD()-53750.5) > 1e-9 {
		t.Errorf("MJD = %v", b.At(0).MJD())
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []string{
		"53750.5,1400\n",
		"53750.5,abc,1\n",
	}
	for _, data := range tests {
		if _, err := ReadCSV(strings.NewReader(data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	b := FromMJDs([]float64{53750.25, 53800.75}, 1400)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, b); err != nil {
		t.Fatal(err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range b.Times() {
		if math.Abs(back.Times()[i]-b.Times()[i]) > 1e-6 {
			t.Errorf("time[%d] = %v, want %v", i, back.Times()[i], b.Times()[i])
		}
	}
}
