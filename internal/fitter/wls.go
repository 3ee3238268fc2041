// Package fitter adjusts free timing model parameters by weighted linear
// least squares on the design matrix.
package fitter

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
)

var (
	ErrNoTOAs          = errors.New("fitter: no TOAs")
	ErrBadUncertainty  = errors.New("fitter: TOA uncertainty must be positive")
	ErrSingular        = errors.New("fitter: normal matrix is not positive definite")
	ErrNotConverged    = errors.New("fitter: did not converge")
	ErrNoFreeParameter = errors.New("fitter: no free parameters")
)

const microsecond = 1e-6

type Options struct {
	Design timing.DesignOptions
	// Tolerance bounds |update| relative to max(|value|, 1) for
	// convergence.
	Tolerance float64
}

func DefaultOptions() Options {
	return Options{Design: timing.DefaultDesignOptions(), Tolerance: 1e-10}
}

// WLS fits the free parameters of Model to Batch. Frozen parameters are
// never columns. Uncertainties enter as weights 1/σ².
type WLS struct {
	Model   *timing.Model
	Batch   *toa.Batch
	Options Options
}

func New(m *timing.Model, b *toa.Batch, opts Options) *WLS {
	opts.Design.ScaleBySpinFrequency = true
	opts.Design.IncludeFrozen = false
	return &WLS{Model: m, Batch: b, Options: opts}
}

type Result struct {
	Params        []string
	Updates       []float64
	Uncertainties []float64
	// ChiSq is the weighted sum of squared residuals after the step,
	// predicted from the linearised model.
	ChiSq      float64
	PrefitRMS  float64
	Iterations int
	Converged  bool
}

// Residuals returns the fractional pulse phase of each TOA divided by the
// spin frequency, in seconds.
func (f *WLS) Residuals() ([]float64, error) {
	ph, err := f.Model.TotalPhase(f.Batch)
	if err != nil {
		return nil, err
	}
	f0, err := f.spinFrequency()
	if err != nil {
		return nil, err
	}
	out := make([]float64, ph.Len())
	for i, frac := range ph.Frac {
		out[i] = frac / f0
	}
	return out, nil
}

func (f *WLS) spinFrequency() (float64, error) {
	name := f.Model.SpinParam()
	p, err := f.Model.Param(name)
	if err != nil {
		return 0, err
	}
	if !p.IsSet() || p.Float() == 0 {
		return 0, &timing.MissingParameterError{Component: timing.ModelOwner, Param: name, Msg: "needed to convert phase to time"}
	}
	return p.Float(), nil
}

func (f *WLS) weights() ([]float64, error) {
	errs := f.Batch.Errors()
	w := make([]float64, len(errs))
	for i, e := range errs {
		if !(e > 0) {
			return nil, fmt.Errorf("%w: TOA %d has %v", ErrBadUncertainty, i, e)
		}
		s := e * microsecond
		w[i] = 1 / (s * s)
	}
	return w, nil
}

// Step performs one linearised solve and applies the updates to the free
// parameters. The offset column is solved for but not stored.
func (f *WLS) Step() (*Result, error) {
	if f.Batch.Len() == 0 {
		return nil, ErrNoTOAs
	}
	w, err := f.weights()
	if err != nil {
		return nil, err
	}
	r, err := f.Residuals()
	if err != nil {
		return nil, err
	}
	dm, err := f.Model.DesignMatrix(f.Batch, f.Options.Design)
	if err != nil {
		return nil, err
	}
	if dm.Cols() == 0 {
		return nil, ErrNoFreeParameter
	}

	x, cov, err := solve(dm.M, r, w)
	if err != nil {
		return nil, err
	}

	res := &Result{PrefitRMS: rms(r)}
	for j, name := range dm.Params {
		if name == timing.OffsetColumn {
			continue
		}
		p, err := f.Model.Param(name)
		if err != nil {
			return nil, err
		}
		if err := p.SetFloat(p.Float() + x[j]); err != nil {
			return nil, err
		}
		p.Uncertainty = math.Sqrt(cov[j])
		res.Params = append(res.Params, p.Name)
		res.Updates = append(res.Updates, x[j])
		res.Uncertainties = append(res.Uncertainties, p.Uncertainty)
	}
	if len(res.Params) == 0 {
		return nil, ErrNoFreeParameter
	}

	for i, row := range dm.M {
		pred := r[i]
		for j, v := range row {
			pred -= v * x[j]
		}
		res.ChiSq += w[i] * pred * pred
	}
	res.Iterations = 1
	return res, nil
}

// Fit repeats Step until every update is within tolerance or maxIter steps
// have run. The last result is returned with ErrNotConverged in the
// latter case.
func (f *WLS) Fit(maxIter int) (*Result, error) {
	if maxIter < 1 {
		maxIter = 1
	}
	var res *Result
	for i := 1; i <= maxIter; i++ {
		step, err := f.Step()
		if err != nil {
			return res, err
		}
		step.Iterations = i
		if res != nil {
			step.PrefitRMS = res.PrefitRMS
		}
		res = step
		f.Model.Logger().Info("fit step", "iteration", i, "chisq", res.ChiSq)
		if f.converged(res) {
			res.Converged = true
			return res, nil
		}
	}
	return res, fmt.Errorf("%w after %d iterations", ErrNotConverged, maxIter)
}

func (f *WLS) converged(res *Result) bool {
	for j, name := range res.Params {
		p, err := f.Model.Param(name)
		if err != nil {
			return false
		}
		if math.Abs(res.Updates[j]) > f.Options.Tolerance*math.Max(math.Abs(p.Float()), 1) {
			return false
		}
	}
	return true
}

func rms(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	var s float64
	for _, v := range r {
		s += v * v
	}
	return math.Sqrt(s / float64(len(r)))
}
