package timing

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/toa"
)

// OffsetColumn names the constant phase offset column.
const OffsetColumn = "Offset"

type DesignOptions struct {
	// ScaleBySpinFrequency divides phase columns by the spin frequency,
	// turning them into seconds per parameter unit.
	ScaleBySpinFrequency bool
	IncludeFrozen        bool
	IncludeOffset        bool
	// NumericFallback differentiates numerically when no analytic
	// derivative is registered.
	NumericFallback bool
	NumericStep     float64
}

func DefaultDesignOptions() DesignOptions {
	return DesignOptions{
		ScaleBySpinFrequency: true,
		IncludeOffset:        true,
		NumericStep:          DefaultNumericStep,
	}
}

// DesignMatrix is row-major: M[i][j] is observation i, column Params[j].
type DesignMatrix struct {
	M      [][]float64
	Params []string
	Units  []string
	Scaled bool
}

func (d *DesignMatrix) Rows() int { return len(d.M) }
func (d *DesignMatrix) Cols() int { return len(d.Params) }

// Column copies out the named column.
func (d *DesignMatrix) Column(name string) ([]float64, bool) {
	for j, p := range d.Params {
		if p == name {
			col := make([]float64, len(d.M))
			for i := range d.M {
				col[i] = d.M[i][j]
			}
			return col, true
		}
	}
	return nil, false
}

// DesignParams lists the parameters that become columns: set, numeric, and
// free unless frozen ones are included.
func (m *Model) DesignParams(opts DesignOptions) []*param.Param {
	var out []*param.Param
	for _, p := range m.Params() {
		if !p.Kind().Numeric() || !p.IsSet() {
			continue
		}
		if p.Frozen && !opts.IncludeFrozen {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DesignMatrix builds one column of -dφ/dp per design parameter, after an
// optional offset column of ones.
func (m *Model) DesignMatrix(b *toa.Batch, opts DesignOptions) (*DesignMatrix, error) {
	ev := m.NewEval(b)
	release := ev.enter()
	defer release()

	delay, err := ev.TotalDelay()
	if err != nil {
		return nil, err
	}
	scale, err := m.designScale(opts)
	if err != nil {
		return nil, err
	}

	params := m.DesignParams(opts)
	cols := make([][]float64, len(params))
	for j, p := range params {
		if cols[j], err = m.designColumn(ev, delay, p, opts); err != nil {
			return nil, err
		}
	}
	return assemble(b.Len(), params, cols, scale, opts), nil
}

// DesignMatrixParallel computes the analytic columns on up to workers
// goroutines, each with its own cache. Numeric fallback columns perturb
// shared parameter values, so they run serially afterwards.
func (m *Model) DesignMatrixParallel(ctx context.Context, b *toa.Batch, opts DesignOptions, workers int) (*DesignMatrix, error) {
	scale, err := m.designScale(opts)
	if err != nil {
		return nil, err
	}
	delay, err := m.TotalDelay(b)
	if err != nil {
		return nil, err
	}

	if m.index == nil {
		m.rebuildIndex()
	}
	params := m.DesignParams(opts)
	cols := make([][]float64, len(params))
	fallback := make([]bool, len(params))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for j, p := range params {
		j, p := j, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev := &Eval{model: m, batch: b, cache: NewCache()}
			release := ev.enter()
			defer release()

			col, err := ev.DPhaseDParam(delay, p.Name)
			if errors.Is(err, ErrNoDerivative) && opts.NumericFallback {
				fallback[j] = true
				return nil
			}
			if err != nil {
				return err
			}
			cols[j] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for j, p := range params {
		if !fallback[j] {
			continue
		}
		if cols[j], err = m.DPhaseDParamNumeric(b, p.Name, opts.NumericStep); err != nil {
			return nil, err
		}
	}
	return assemble(b.Len(), params, cols, scale, opts), nil
}

func (m *Model) designColumn(ev *Eval, delay []float64, p *param.Param, opts DesignOptions) ([]float64, error) {
	col, err := ev.DPhaseDParam(delay, p.Name)
	if errors.Is(err, ErrNoDerivative) && opts.NumericFallback {
		m.logger.Debug("numeric derivative fallback", "param", p.Name)
		return m.DPhaseDParamNumeric(ev.batch, p.Name, opts.NumericStep)
	}
	return col, err
}

func (m *Model) designScale(opts DesignOptions) (float64, error) {
	if !opts.ScaleBySpinFrequency {
		return 1, nil
	}
	f0, err := m.Param(m.spinParam)
	if err != nil {
		return 0, fmt.Errorf("scale design matrix: %w", err)
	}
	if !f0.IsSet() || f0.Float() == 0 {
		return 0, &MissingParameterError{Component: ModelOwner, Param: m.spinParam, Msg: "needed to scale the design matrix"}
	}
	return f0.Float(), nil
}

func assemble(n int, params []*param.Param, cols [][]float64, scale float64, opts DesignOptions) *DesignMatrix {
	d := &DesignMatrix{Scaled: opts.ScaleBySpinFrequency}
	unit := func(p *param.Param) string {
		if opts.ScaleBySpinFrequency {
			return "s/" + p.Units
		}
		return "1/" + p.Units
	}
	if opts.IncludeOffset {
		d.Params = append(d.Params, OffsetColumn)
		d.Units = append(d.Units, "")
	}
	for _, p := range params {
		d.Params = append(d.Params, p.Name)
		d.Units = append(d.Units, unit(p))
	}

	d.M = make([][]float64, n)
	for i := range d.M {
		row := make([]float64, 0, len(d.Params))
		if opts.IncludeOffset {
			row = append(row, 1)
		}
		for _, col := range cols {
			row = append(row, -col[i]/scale)
		}
		d.M[i] = row
	}
	return d
}
