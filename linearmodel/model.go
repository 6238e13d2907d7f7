// Package linearmodel holds the linear regressors fit by the autoregressive forecasting models.
package linearmodel

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoOptions                = errors.New("no initialized model options")
	ErrTargetLenMismatch        = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix         = errors.New("no training matrix")
	ErrNoTargetMatrix           = errors.New("no target matrix")
	ErrNoDesignMatrix           = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch       = errors.New("number of features does not match number of model coefficients")
	ErrInsufficientObservations = errors.New("fewer observations than coefficients")
	ErrNegativeLambda           = errors.New("negative lambda")
	ErrNegativeIterations       = errors.New("negative iterations")
	ErrNegativeTolerance        = errors.New("negative tolerance")
	ErrWarmStartBetaSize        = errors.New("warm start beta does not have the same number of coefficients as training features")
)

// Model is a linear regressor trained on a design matrix x with one row per observation and a
// single column target y.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
