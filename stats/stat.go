// Package stats holds NaN aware summary statistics used by the scalers and the
// ensemble diagnostics.
package stats

import (
	"errors"
	"math"

	"github.com/aouyang1/go-riverforecast/linearmodel"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrMinimumFeatures = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLen      = errors.New("must have at least 2 points per feature")
)

// MinMax returns the smallest and largest non NaN values. ok is false if every value is NaN.
func MinMax(x []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}

// VarianceInflationFactor regresses each column of x on all the others and returns 1/(1-R²) per
// column. Perfectly collinear columns have an infinite factor.
func VarianceInflationFactor(x mat.Matrix) ([]float64, error) {
	m, n := x.Dims()
	if n < 2 {
		return nil, ErrMinimumFeatures
	}
	if m < 2 {
		return nil, ErrFeatureLen
	}

	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}

	vif := make([]float64, n)
	others := mat.NewDense(m, n-1, nil)
	for j := range cols {
		c := 0
		for k, col := range cols {
			if k == j {
				continue
			}
			others.SetCol(c, col)
			c++
		}
		y := mat.NewDense(m, 1, cols[j])

		model, err := linearmodel.NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(others, y); err != nil {
			return nil, err
		}
		r2, err := model.Score(others, y)
		if err != nil {
			return nil, err
		}
		vif[j] = 1.0 / (1.0 - r2)
	}
	return vif, nil
}
