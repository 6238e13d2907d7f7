package linearmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// assertExactFit fits a noiseless problem and checks the recovered parameters, the prediction
// shape and a perfect score
func assertExactFit(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	t.Helper()
	require.NoError(t, model.Fit(x, y))

	assert.InDelta(t, intercept, model.Intercept(), tol, "intercept")
	assert.InDeltaSlice(t, coef, model.Coef(), tol, "coefficients")

	m, _ := x.Dims()
	pred, err := model.Predict(x)
	require.NoError(t, err)
	assert.Len(t, pred, m)
	assert.InDeltaSlice(t, mat.Col(nil, 0, y), pred, 1e-3, "predictions")

	r2, err := model.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, tol, "score")

	// callers get a copy of the coefficients
	if c := model.Coef(); len(c) > 0 {
		c[0] += 100
		assert.InDelta(t, coef[0], model.Coef()[0], tol)
	}
}
