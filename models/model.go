// Package models holds the forecasting capability used by contributing models and the ensemble
// combiner, the autoregressive regression that implements it, and the walk-forward backtest.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aouyang1/go-riverforecast/linearmodel"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

var (
	ErrUnknownModelType    = errors.New("unknown model type")
	ErrNoForecastOrigin    = errors.New("no valid forecast origin")
	ErrInsufficientHistory = errors.New("series is shorter than the input chunk length")
	ErrUnfitModel          = errors.New("model has not been fit")
	ErrMultivariateTarget  = errors.New("target series must have exactly one column")
	ErrMissingCovariate    = errors.New("covariate value missing at required timestamp")
	ErrNoFeatures          = errors.New("model has no lags and no covariates")
	ErrNegativeLags        = errors.New("negative lags")
	ErrInvalidHorizon      = errors.New("forecast horizon must be positive")
	ErrInvalidStride       = errors.New("stride must be positive")
)

// Covariates are the optional inputs of a forecaster. Past covariates are only read at
// timestamps before the predicted point, future covariates at the predicted point itself.
type Covariates struct {
	Past   *timedataset.Frame
	Future *timedataset.Frame
}

// Forecaster is a model that is fit once on a target series and predicts the points following any
// series with the same column.
type Forecaster interface {
	Fit(series *timedataset.Frame, cov Covariates) error
	Predict(n int, series *timedataset.Frame, cov Covariates) (*timedataset.Frame, error)

	// InputChunkLength is the minimum number of series points required to predict
	InputChunkLength() int
}

// HistoricalForecaster adds walk-forward backtesting to a Forecaster
type HistoricalForecaster interface {
	Forecaster
	HistoricalForecasts(series *timedataset.Frame, cov Covariates, opt *HistoricalOptions) ([]*timedataset.Frame, error)
}

// ModelType names a model family. It is recorded in persisted artifacts and resolved through a
// closed registry when loading.
type ModelType string

const (
	ModelTypeOLS   ModelType = "ols"
	ModelTypeLasso ModelType = "lasso"
)

var regressors = map[ModelType]func(opt *RegressionOptions) (linearmodel.Model, error){
	ModelTypeOLS: func(opt *RegressionOptions) (linearmodel.Model, error) {
		return linearmodel.NewOLSRegression(linearmodel.NewDefaultOLSOptions())
	},
	ModelTypeLasso: func(opt *RegressionOptions) (linearmodel.Model, error) {
		lassoOpt := linearmodel.NewDefaultLassoOptions()
		lassoOpt.Lambda = opt.Lambda
		return linearmodel.NewLassoRegression(lassoOpt)
	},
}

// ModelTypes lists every registered model type
func ModelTypes() []ModelType {
	return []ModelType{ModelTypeOLS, ModelTypeLasso}
}

// ParseModelType validates a model family name
func ParseModelType(s string) (ModelType, error) {
	mt := ModelType(strings.ToLower(strings.TrimSpace(s)))
	if _, exists := regressors[mt]; !exists {
		return "", fmt.Errorf("%q, %w", s, ErrUnknownModelType)
	}
	return mt, nil
}

// String returns the registry name of the model type
func (m ModelType) String() string {
	return string(m)
}
