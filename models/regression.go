package models

import (
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-riverforecast/linearmodel"
	mat_ "github.com/aouyang1/go-riverforecast/mat"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RegressionOptions configures an autoregressive linear model
type RegressionOptions struct {
	Type ModelType `json:"type"`

	// Lags is the number of previous target values used as features
	Lags int `json:"lags"`

	// PastLags is the number of previous values of every past covariate used as features
	PastLags int `json:"past_lags"`

	// Lambda is the L1 penalty of lasso models
	Lambda float64 `json:"lambda"`
}

// NewDefaultRegressionOptions returns an OLS model on a day of target and past covariate lags
func NewDefaultRegressionOptions() *RegressionOptions {
	return &RegressionOptions{
		Type:     ModelTypeOLS,
		Lags:     24,
		PastLags: 24,
		Lambda:   0.001,
	}
}

// Validate checks the model type is registered and the lags are not negative
func (r *RegressionOptions) Validate() (*RegressionOptions, error) {
	if r == nil {
		r = NewDefaultRegressionOptions()
	}
	if _, exists := regressors[r.Type]; !exists {
		return nil, fmt.Errorf("%q, %w", r.Type, ErrUnknownModelType)
	}
	if r.Lags < 0 || r.PastLags < 0 {
		return nil, fmt.Errorf("lags %d and past lags %d, %w", r.Lags, r.PastLags, ErrNegativeLags)
	}
	return r, nil
}

// Regression predicts the next point of a univariate series from its own lags, lags of past
// covariates and the current value of future covariates. Multi step forecasts feed predictions
// back in as lags.
type Regression struct {
	opt *RegressionOptions

	target        string
	pastColumns   []string
	futureColumns []string
	freq          time.Duration
	trainEndTime  time.Time
	score         float64

	intercept float64
	coef      []float64
	fitted    bool
}

// NewRegression returns an unfit regression forecaster. Nil options use the defaults.
func NewRegression(opt *RegressionOptions) (*Regression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Regression{opt: opt}, nil
}

// NewRegressionFromModel restores a fitted regression that can predict immediately
func NewRegressionFromModel(model RegressionModel) (*Regression, error) {
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}
	r := &Regression{
		opt:           opt,
		target:        model.Target,
		pastColumns:   model.PastColumns,
		futureColumns: model.FutureColumns,
		freq:          model.Freq,
		trainEndTime:  model.TrainEndTime,
		score:         model.Score,
		intercept:     model.Intercept,
		coef:          model.Coef,
		fitted:        true,
	}
	if len(r.coef) != r.numFeatures() {
		return nil, fmt.Errorf(
			"model has %d coefficients, but %d features, %w",
			len(r.coef), r.numFeatures(), linearmodel.ErrFeatureLenMismatch,
		)
	}
	return r, nil
}

// Type returns the linear model family used for the fit
func (r *Regression) Type() ModelType {
	return r.opt.Type
}

// InputChunkLength is the largest of the target and past covariate lags
func (r *Regression) InputChunkLength() int {
	return max(r.opt.Lags, r.opt.PastLags)
}

func (r *Regression) numFeatures() int {
	return r.opt.Lags + r.opt.PastLags*len(r.pastColumns) + len(r.futureColumns)
}

// Fit trains on every point with a full set of lags. Points with a missing or NaN feature are
// skipped.
func (r *Regression) Fit(series *timedataset.Frame, cov Covariates) error {
	if series.NumColumns() != 1 {
		return fmt.Errorf("got %d columns, %w", series.NumColumns(), ErrMultivariateTarget)
	}
	freq, err := series.Freq()
	if err != nil {
		freq = time.Hour
	}

	r.target = series.Columns[0]
	r.freq = freq
	r.pastColumns = nil
	if cov.Past != nil && r.opt.PastLags > 0 {
		r.pastColumns = append([]string(nil), cov.Past.Columns...)
	}
	r.futureColumns = nil
	if cov.Future != nil {
		r.futureColumns = append([]string(nil), cov.Future.Columns...)
	}
	p := r.numFeatures()
	if p == 0 {
		return ErrNoFeatures
	}

	y := series.Data[0]
	design := make([][]float64, 0, series.Len())
	target := make([]float64, 0, series.Len())
	for i := r.InputChunkLength(); i < series.Len(); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		row, err := r.row(series.T[i], y[:i], cov)
		if err != nil || floats.HasNaN(row) {
			continue
		}
		design = append(design, row)
		target = append(target, y[i])
	}
	if len(target) == 0 {
		return fmt.Errorf("no complete rows in %d points, %w", series.Len(), ErrInsufficientHistory)
	}

	model, err := regressors[r.opt.Type](r.opt)
	if err != nil {
		return err
	}
	x, err := mat_.NewDenseFromArray(design)
	if err != nil {
		return err
	}
	yMat := mat.NewDense(len(target), 1, target)
	if err := model.Fit(x, yMat); err != nil {
		return fmt.Errorf("unable to fit %s regression, %w", r.opt.Type, err)
	}
	score, err := model.Score(x, yMat)
	if err != nil {
		return fmt.Errorf("unable to score %s regression, %w", r.opt.Type, err)
	}

	r.intercept = model.Intercept()
	r.coef = model.Coef()
	r.score = score
	r.trainEndTime = series.End()
	r.fitted = true
	return nil
}

// row assembles the features of the point at time t given the target values before it
func (r *Regression) row(t time.Time, history []float64, cov Covariates) ([]float64, error) {
	row := make([]float64, 0, r.numFeatures())
	for l := 1; l <= r.opt.Lags; l++ {
		row = append(row, history[len(history)-l])
	}
	if len(r.pastColumns) > 0 {
		for _, col := range r.pastColumns {
			for l := 1; l <= r.opt.PastLags; l++ {
				v, err := lookup(cov.Past, col, t.Add(-time.Duration(l)*r.freq))
				if err != nil {
					return nil, err
				}
				row = append(row, v)
			}
		}
	}
	for _, col := range r.futureColumns {
		v, err := lookup(cov.Future, col, t)
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return row, nil
}

func lookup(f *timedataset.Frame, col string, t time.Time) (float64, error) {
	if f == nil {
		return 0, fmt.Errorf("%s at %s, %w", col, t, ErrMissingCovariate)
	}
	data, err := f.Column(col)
	if err != nil {
		return 0, fmt.Errorf("%w, %w", err, ErrMissingCovariate)
	}
	i, exists := f.Index(t)
	if !exists {
		return 0, fmt.Errorf("%s at %s, %w", col, t, ErrMissingCovariate)
	}
	return data[i], nil
}

// Predict forecasts the n points after the end of series
func (r *Regression) Predict(n int, series *timedataset.Frame, cov Covariates) (*timedataset.Frame, error) {
	if !r.fitted {
		return nil, ErrUnfitModel
	}
	if n <= 0 {
		return nil, fmt.Errorf("got %d, %w", n, ErrInvalidHorizon)
	}
	if series.NumColumns() != 1 {
		return nil, fmt.Errorf("got %d columns, %w", series.NumColumns(), ErrMultivariateTarget)
	}
	if series.Len() < max(r.InputChunkLength(), 1) {
		return nil, fmt.Errorf(
			"got %d points, but %d are required, %w",
			series.Len(), r.InputChunkLength(), ErrInsufficientHistory,
		)
	}

	history := make([]float64, 0, r.opt.Lags+n)
	history = append(history, series.Data[0][series.Len()-r.opt.Lags:]...)

	t := make([]time.Time, 0, n)
	yhat := make([]float64, 0, n)
	end := series.End()
	for s := 1; s <= n; s++ {
		ts := end.Add(time.Duration(s) * r.freq)
		row, err := r.row(ts, history, cov)
		if err != nil {
			return nil, fmt.Errorf("unable to build features for %s, %w", ts, err)
		}
		val := floats.Dot(row, r.coef) + r.intercept
		t = append(t, ts)
		yhat = append(yhat, val)
		history = append(history, val)
	}
	return timedataset.NewUnivariateFrame(t, r.target, yhat)
}

// HistoricalForecasts walks forward over series. Without Retrain the fitted coefficients are reused
// at every origin.
func (r *Regression) HistoricalForecasts(series *timedataset.Frame, cov Covariates, opt *HistoricalOptions) ([]*timedataset.Frame, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if !opt.Retrain {
		if !r.fitted {
			return nil, ErrUnfitModel
		}
		return WalkForward(series, r.InputChunkLength(), opt, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
			return r.Predict(n, history, cov)
		})
	}

	// refitting needs at least one complete row beyond the input chunk
	return WalkForward(series, r.InputChunkLength()+1, opt, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
		m, err := NewRegression(r.opt)
		if err != nil {
			return nil, err
		}
		if err := m.Fit(history, cov); err != nil {
			return nil, err
		}
		return m.Predict(n, history, cov)
	})
}

// Intercept returns the fitted intercept
func (r *Regression) Intercept() float64 {
	return r.intercept
}

// Coef returns a copy of the fitted coefficients in the order of Labels
func (r *Regression) Coef() []float64 {
	coef := make([]float64, len(r.coef))
	copy(coef, r.coef)
	return coef
}

// Labels names every feature in coefficient order
func (r *Regression) Labels() []string {
	labels := make([]string, 0, r.numFeatures())
	for l := 1; l <= r.opt.Lags; l++ {
		labels = append(labels, fmt.Sprintf("%s_lag_%d", r.target, l))
	}
	for _, col := range r.pastColumns {
		for l := 1; l <= r.opt.PastLags; l++ {
			labels = append(labels, fmt.Sprintf("%s_lag_%d", col, l))
		}
	}
	labels = append(labels, r.futureColumns...)
	return labels
}

// Model returns the serializable form of the regression
func (r *Regression) Model() RegressionModel {
	return RegressionModel{
		Options:       r.opt,
		Target:        r.target,
		PastColumns:   r.pastColumns,
		FutureColumns: r.futureColumns,
		Freq:          r.freq,
		TrainEndTime:  r.trainEndTime,
		Score:         r.score,
		Intercept:     r.intercept,
		Coef:          r.coef,
	}
}

// MarshalJSON encodes the fitted RegressionModel
func (r *Regression) MarshalJSON() ([]byte, error) {
	if !r.fitted {
		return nil, ErrUnfitModel
	}
	return json.Marshal(r.Model())
}

// UnmarshalJSON restores a fitted regression from its RegressionModel encoding
func (r *Regression) UnmarshalJSON(data []byte) error {
	var model RegressionModel
	if err := json.Unmarshal(data, &model); err != nil {
		return err
	}
	res, err := NewRegressionFromModel(model)
	if err != nil {
		return err
	}
	*r = *res
	return nil
}
