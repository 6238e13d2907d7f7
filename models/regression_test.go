package models

import (
	"bytes"
	"testing"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressionAutoregressive(t *testing.T) {
	for _, mt := range ModelTypes() {
		t.Run(mt.String(), func(t *testing.T) {
			r, err := NewRegression(&RegressionOptions{Type: mt, Lags: 1})
			require.NoError(t, err)
			series := arSeries(t, 20)
			require.NoError(t, r.Fit(series, Covariates{}))

			tol := 1e-6
			if mt == ModelTypeLasso {
				tol = 0.2
			}
			assert.InDelta(t, 1.0, r.Intercept(), tol)
			assert.InDeltaSlice(t, []float64{0.5}, r.Coef(), tol)
			assert.Equal(t, 1, r.InputChunkLength())
			assert.Equal(t, []string{"y_lag_1"}, r.Labels())

			if mt != ModelTypeOLS {
				return
			}
			pred, err := r.Predict(2, series, Covariates{})
			require.NoError(t, err)
			last := series.Data[0][series.Len()-1]
			exp1 := 0.5*last + 1
			assert.InDeltaSlice(t, []float64{exp1, 0.5*exp1 + 1}, pred.Data[0], 1e-6)
			assert.Equal(t, hours(20, 22), pred.T)
			assert.Equal(t, []string{"y"}, pred.Columns)
		})
	}
}

func TestRegressionFutureCovariates(t *testing.T) {
	x := driver(t, "stack", 0, 30)
	yVals := make([]float64, 30)
	for i, v := range x.Data[0] {
		yVals[i] = 2*v + 3
	}
	y, err := timedataset.NewUnivariateFrame(x.T, "y", yVals)
	require.NoError(t, err)

	r, err := NewRegression(&RegressionOptions{Type: ModelTypeOLS})
	require.NoError(t, err)
	train := y.Slice(0, 25)
	require.NoError(t, r.Fit(train, Covariates{Future: x.Slice(0, 25)}))
	assert.Equal(t, 0, r.InputChunkLength())
	assert.InDelta(t, 3.0, r.Intercept(), 1e-9)
	assert.InDeltaSlice(t, []float64{2}, r.Coef(), 1e-9)

	pred, err := r.Predict(5, train, Covariates{Future: x})
	require.NoError(t, err)
	assert.InDeltaSlice(t, yVals[25:], pred.Data[0], 1e-9)

	_, err = r.Predict(6, train, Covariates{Future: x})
	assert.ErrorIs(t, err, ErrMissingCovariate)
}

func TestRegressionPastCovariates(t *testing.T) {
	x := driver(t, "rain", 0, 40)
	yVals := make([]float64, 40)
	for i := 1; i < 40; i++ {
		yVals[i] = 3 * x.Data[0][i-1]
	}
	y, err := timedataset.NewUnivariateFrame(x.T, "y", yVals)
	require.NoError(t, err)

	r, err := NewRegression(&RegressionOptions{Type: ModelTypeOLS, PastLags: 1})
	require.NoError(t, err)
	require.NoError(t, r.Fit(y.Slice(0, 30), Covariates{Past: x.Slice(0, 30)}))
	assert.Equal(t, []string{"rain_lag_1"}, r.Labels())
	assert.InDeltaSlice(t, []float64{3}, r.Coef(), 1e-9)

	// the first step only needs the covariate at the series end
	pred, err := r.Predict(1, y.Slice(0, 30), Covariates{Past: x.Slice(0, 30)})
	require.NoError(t, err)
	assert.InDelta(t, yVals[30], pred.Data[0][0], 1e-9)

	_, err = r.Predict(2, y.Slice(0, 30), Covariates{Past: x.Slice(0, 30)})
	assert.ErrorIs(t, err, ErrMissingCovariate)

	pred, err = r.Predict(5, y.Slice(0, 30), Covariates{Past: x})
	require.NoError(t, err)
	assert.InDeltaSlice(t, yVals[30:35], pred.Data[0], 1e-9)
}

func TestRegressionErrors(t *testing.T) {
	series := arSeries(t, 10)
	multi, err := timedataset.Stack(series, driver(t, "x", 0, 10))
	require.NoError(t, err)

	testData := map[string]struct {
		run func() error
		err error
	}{
		"predict before fit": {
			run: func() error {
				r, _ := NewRegression(nil)
				_, err := r.Predict(1, series, Covariates{})
				return err
			},
			err: ErrUnfitModel,
		},
		"multivariate target": {
			run: func() error {
				r, _ := NewRegression(nil)
				return r.Fit(multi, Covariates{})
			},
			err: ErrMultivariateTarget,
		},
		"no features": {
			run: func() error {
				r, _ := NewRegression(&RegressionOptions{Type: ModelTypeOLS})
				return r.Fit(series, Covariates{})
			},
			err: ErrNoFeatures,
		},
		"negative lags": {
			run: func() error {
				_, err := NewRegression(&RegressionOptions{Type: ModelTypeOLS, Lags: -1})
				return err
			},
			err: ErrNegativeLags,
		},
		"unknown type": {
			run: func() error {
				_, err := NewRegression(&RegressionOptions{Type: "nbeats", Lags: 1})
				return err
			},
			err: ErrUnknownModelType,
		},
		"short history": {
			run: func() error {
				r, _ := NewRegression(&RegressionOptions{Type: ModelTypeOLS, Lags: 3})
				if err := r.Fit(series, Covariates{}); err != nil {
					return err
				}
				_, err := r.Predict(1, series.Slice(0, 2), Covariates{})
				return err
			},
			err: ErrInsufficientHistory,
		},
		"non positive horizon": {
			run: func() error {
				r, _ := NewRegression(&RegressionOptions{Type: ModelTypeOLS, Lags: 1})
				if err := r.Fit(series, Covariates{}); err != nil {
					return err
				}
				_, err := r.Predict(0, series, Covariates{})
				return err
			},
			err: ErrInvalidHorizon,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, td.run(), td.err)
		})
	}
}

func TestRegressionHistoricalForecasts(t *testing.T) {
	series := arSeries(t, 30)
	r, err := NewRegression(&RegressionOptions{Type: ModelTypeOLS, Lags: 1})
	require.NoError(t, err)
	require.NoError(t, r.Fit(series.Slice(0, 20), Covariates{}))

	testData := map[string]struct {
		opt      *HistoricalOptions
		expStart int
		expLen   int
	}{
		"reuse fit": {
			opt:      &HistoricalOptions{Start: 20, ForecastHorizon: 3, Stride: 1, LastPointsOnly: true},
			expStart: 22,
			expLen:   8,
		},
		"retrain": {
			opt:      &HistoricalOptions{Start: 20, ForecastHorizon: 1, Stride: 2, LastPointsOnly: true, Retrain: true},
			expStart: 20,
			expLen:   5,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := r.HistoricalForecasts(series, Covariates{}, td.opt)
			require.NoError(t, err)
			require.Len(t, res, 1)
			points := res[0]
			require.Equal(t, td.expLen, points.Len())
			assert.Equal(t, series.T[td.expStart], points.Start())
			for i, ts := range points.T {
				k, ok := series.Index(ts)
				require.True(t, ok)
				assert.InDelta(t, series.Data[0][k], points.Data[0][i], 1e-6)
			}
		})
	}

	unfit, err := NewRegression(&RegressionOptions{Type: ModelTypeOLS, Lags: 1})
	require.NoError(t, err)
	_, err = unfit.HistoricalForecasts(series, Covariates{}, nil)
	assert.ErrorIs(t, err, ErrUnfitModel)
}

func TestRegressionPersistence(t *testing.T) {
	series := arSeries(t, 20)
	r, err := NewRegression(&RegressionOptions{Type: ModelTypeLasso, Lags: 2, Lambda: 0.01})
	require.NoError(t, err)
	require.NoError(t, r.Fit(series, Covariates{}))

	data, err := Marshal(r)
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r.InputChunkLength(), loaded.InputChunkLength())

	exp, err := r.Predict(4, series, Covariates{})
	require.NoError(t, err)
	act, err := loaded.Predict(4, series, Covariates{})
	require.NoError(t, err)
	assert.Equal(t, exp.T, act.T)
	assert.InDeltaSlice(t, exp.Data[0], act.Data[0], 1e-12)

	_, err = Unmarshal([]byte(`{"type":"transformer","model":{}}`))
	assert.ErrorIs(t, err, ErrUnknownModelType)

	var buf bytes.Buffer
	require.NoError(t, r.Model().TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "Regression (lasso)")
	assert.Contains(t, buf.String(), "y_lag_2")
}

func TestParseModelType(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected ModelType
		err      error
	}{
		"ols":        {input: "ols", expected: ModelTypeOLS},
		"mixed case": {input: " Lasso ", expected: ModelTypeLasso},
		"unknown":    {input: "nhits", err: ErrUnknownModelType},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			mt, err := ParseModelType(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, mt)
		})
	}
}
