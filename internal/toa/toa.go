// Package toa holds batches of pulse times of arrival.
//
// Times are barycentre-ready seconds since MJD 0. The batch is immutable:
// [Batch.Shift] returns a new batch.
package toa

import (
	"errors"
	"fmt"
)

const SecondsPerDay = 86400.0

var ErrLengthMismatch = errors.New("toa: shift length does not match batch")

// TOA is one observed arrival.
type TOA struct {
	Time  float64 // seconds since MJD 0
	Freq  float64 // observing frequency, MHz
	Error float64 // arrival time uncertainty, microseconds
	Site  string
}

func (t TOA) MJD() float64 { return t.Time / SecondsPerDay }

type Batch struct {
	toas []TOA
}

func NewBatch(toas []TOA) *Batch {
	return &Batch{toas: append([]TOA(nil), toas...)}
}

// FromTimes builds a batch from times in seconds, all at one frequency.
func FromTimes(times []float64, freq float64) *Batch {
	toas := make([]TOA, len(times))
	for i, t := range times {
		toas[i] = TOA{Time: t, Freq: freq, Error: 1}
	}
	return &Batch{toas: toas}
}

// FromMJDs builds a batch from epochs in MJD days.
func FromMJDs(mjds []float64, freq float64) *Batch {
	times := make([]float64, len(mjds))
	for i, m := range mjds {
		times[i] = m * SecondsPerDay
	}
	return FromTimes(times, freq)
}

func (b *Batch) Len() int     { return len(b.toas) }
func (b *Batch) At(i int) TOA { return b.toas[i] }
func (b *Batch) TOAs() []TOA  { return append([]TOA(nil), b.toas...) }

func (b *Batch) Times() []float64 {
	out := make([]float64, len(b.toas))
	for i, t := range b.toas {
		out[i] = t.Time
	}
	return out
}

func (b *Batch) MJDs() []float64 {
	out := make([]float64, len(b.toas))
	for i, t := range b.toas {
		out[i] = t.MJD()
	}
	return out
}

func (b *Batch) Freqs() []float64 {
	out := make([]float64, len(b.toas))
	for i, t := range b.toas {
		out[i] = t.Freq
	}
	return out
}

func (b *Batch) Errors() []float64 {
	out := make([]float64, len(b.toas))
	for i, t := range b.toas {
		out[i] = t.Error
	}
	return out
}

// Shift returns a new batch with each time moved by the matching delta
// in seconds.
func (b *Batch) Shift(deltas []float64) (*Batch, error) {
	if len(deltas) != len(b.toas) {
		return nil, fmt.Errorf("%w: %d deltas for %d TOAs", ErrLengthMismatch, len(deltas), len(b.toas))
	}
	out := NewBatch(b.toas)
	for i := range out.toas {
		out.toas[i].Time += deltas[i]
	}
	return out, nil
}

// ShiftAll moves every time by dt seconds.
func (b *Batch) ShiftAll(dt float64) *Batch {
	out := NewBatch(b.toas)
	for i := range out.toas {
		out.toas[i].Time += dt
	}
	return out
}
