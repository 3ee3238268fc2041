package fitter

import (
	"fmt"
	"math"
)

// solve returns the weighted least squares solution of M x = r and the
// diagonal of its covariance. Columns are normalised before the normal
// equations are formed so parameters of very different scale share one
// conditioning.
func solve(m [][]float64, r, w []float64) ([]float64, []float64, error) {
	n := len(m[0])
	norm := make([]float64, n)
	for i, row := range m {
		for j, v := range row {
			norm[j] += w[i] * v * v
		}
	}
	for j := range norm {
		if norm[j] == 0 {
			return nil, nil, fmt.Errorf("%w: column %d is zero", ErrSingular, j)
		}
		norm[j] = math.Sqrt(norm[j])
	}

	a := make([][]float64, n)
	b := make([]float64, n)
	for j := range a {
		a[j] = make([]float64, n)
	}
	for i, row := range m {
		for j := 0; j < n; j++ {
			vj := row[j] / norm[j]
			b[j] += w[i] * vj * r[i]
			for k := 0; k <= j; k++ {
				a[j][k] += w[i] * vj * row[k] / norm[k]
			}
		}
	}
	for j := 0; j < n; j++ {
		for k := j + 1; k < n; k++ {
			a[j][k] = a[k][j]
		}
	}

	l, err := cholesky(a)
	if err != nil {
		return nil, nil, err
	}
	x := cholSolve(l, b)

	cov := make([]float64, n)
	e := make([]float64, n)
	for j := 0; j < n; j++ {
		clear(e)
		e[j] = 1
		col := cholSolve(l, e)
		cov[j] = col[j] / (norm[j] * norm[j])
		x[j] /= norm[j]
	}
	return x, cov, nil
}

func cholesky(a [][]float64) ([][]float64, error) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		d := a[j][j]
		for k := 0; k < j; k++ {
			d -= l[j][k] * l[j][k]
		}
		if d <= 1e-12 {
			return nil, fmt.Errorf("%w: pivot %d is %g", ErrSingular, j, d)
		}
		l[j][j] = math.Sqrt(d)
		for i := j + 1; i < n; i++ {
			s := a[i][j]
			for k := 0; k < j; k++ {
				s -= l[i][k] * l[j][k]
			}
			l[i][j] = s / l[j][j]
		}
	}
	return l, nil
}

// cholSolve solves L Lᵀ x = b.
func cholSolve(l [][]float64, b []float64) []float64 {
	n := len(b)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= l[i][k] * y[k]
		}
		y[i] = s / l[i][i]
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for k := i + 1; k < n; k++ {
			s -= l[k][i] * x[k]
		}
		x[i] = s / l[i][i]
	}
	return x
}
