package evaluator

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func series(t *testing.T, fromHour int, column string, vals ...float64) *timedataset.Frame {
	t.Helper()
	tt := make([]time.Time, len(vals))
	for i := range vals {
		tt[i] = at(fromHour + i)
	}
	f, err := timedataset.NewUnivariateFrame(tt, column, vals)
	require.NoError(t, err)
	return f
}

func setupTruth(t *testing.T) *timedataset.Frame {
	return series(t, 1, "level", 10, 20, 30, 40, 50, math.NaN())
}

func TestLeadTimeWindowing(t *testing.T) {
	truth := setupTruth(t)

	testData := map[string]struct {
		forecasts []*timedataset.Frame
		expMAE    []LeadTimeError
		expMAPE   []float64
	}{
		"exact forecast": {
			forecasts: []*timedataset.Frame{series(t, 2, "level", 20, 30, 40)},
			expMAE: []LeadTimeError{
				{LeadTime: 0, Value: 0, Count: 1},
				{LeadTime: time.Hour, Value: 0, Count: 1},
				{LeadTime: 2 * time.Hour, Value: 0, Count: 1},
			},
			expMAPE: []float64{0, 0, 0},
		},
		"two issues": {
			forecasts: []*timedataset.Frame{
				series(t, 2, "level", 20, 30, 40),
				series(t, 3, "level", 33, 42, 52),
			},
			expMAE: []LeadTimeError{
				{LeadTime: 0, Value: 1.5, Count: 2},
				{LeadTime: time.Hour, Value: 1, Count: 2},
				{LeadTime: 2 * time.Hour, Value: 1, Count: 2},
			},
			expMAPE: []float64{0.05, 0.025, 0.02},
		},
		"missing truth dropped": {
			forecasts: []*timedataset.Frame{series(t, 5, "level", 45, 70)},
			expMAE: []LeadTimeError{
				{LeadTime: 0, Value: 5, Count: 1},
			},
			expMAPE: []float64{0.1},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			forecasts, err := FromForecasts(td.forecasts)
			require.NoError(t, err)
			e, err := New(truth, forecasts)
			require.NoError(t, err)

			mae := e.MAE()
			require.Len(t, mae, len(td.expMAE))
			for i, exp := range td.expMAE {
				assert.Equal(t, exp.LeadTime, mae[i].LeadTime)
				assert.Equal(t, exp.Count, mae[i].Count)
				assert.InDelta(t, exp.Value, mae[i].Value, 1e-12)
			}

			mape, err := e.MAPE()
			require.NoError(t, err)
			require.Len(t, mape, len(td.expMAPE))
			for i, exp := range td.expMAPE {
				assert.InDelta(t, exp, mape[i].Value, 1e-12)
			}
		})
	}
}

func TestMAPEDivisionByZero(t *testing.T) {
	truth := series(t, 0, "level", 1, 0, 2)
	forecasts, err := FromForecasts([]*timedataset.Frame{series(t, 0, "level", 1, 0.5, 2)})
	require.NoError(t, err)
	e, err := New(truth, forecasts)
	require.NoError(t, err)

	_, err = e.MAPE()
	assert.ErrorIs(t, err, ErrDivisionByZero)

	mae := e.MAE()
	lt, ok := Lookup(mae, time.Hour)
	require.True(t, ok)
	assert.Equal(t, 0.5, lt.Value)

	_, ok = Lookup(mae, 5*time.Hour)
	assert.False(t, ok)
}

func TestNewErrors(t *testing.T) {
	truth := setupTruth(t)
	bad := series(t, 1, "not a time", 1, 2)
	multi, err := timedataset.Stack(truth, series(t, 1, "other", 1, 2, 3, 4, 5, 6))
	require.NoError(t, err)

	testData := map[string]struct {
		truth     *timedataset.Frame
		forecasts *timedataset.Frame
		err       error
	}{
		"column is not a time": {truth: truth, forecasts: bad, err: ErrInvalidIssueTime},
		"multivariate truth":   {truth: multi, forecasts: bad, err: ErrTruthNotUnivariate},
		"no forecasts":         {truth: truth, forecasts: &timedataset.Frame{}, err: ErrNoForecasts},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := New(td.truth, td.forecasts)
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err = FromForecasts(nil)
	assert.ErrorIs(t, err, ErrNoForecasts)
}

func TestFromForecasts(t *testing.T) {
	res, err := FromForecasts([]*timedataset.Frame{
		series(t, 2, "level", 1, 2),
		series(t, 3, "level", 3, 4),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-02-01T02:00:00Z", "2024-02-01T03:00:00Z"}, res.Columns)
	assert.Equal(t, []time.Time{at(2), at(3), at(4)}, res.T)
	assert.Equal(t, 1.0, res.Data[0][0])
	assert.Equal(t, 2.0, res.Data[0][1])
	assert.True(t, math.IsNaN(res.Data[0][2]))
	assert.True(t, math.IsNaN(res.Data[1][0]))
	assert.Equal(t, 4.0, res.Data[1][2])
}

func TestScores(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		expected  *Scores
		err       error
	}{
		"perfect": {
			predicted: []float64{1, 2, 3},
			actual:    []float64{1, 2, 3},
			expected:  &Scores{MSE: 0, MAPE: 0, R2: 1, N: 3},
		},
		"skips nan": {
			predicted: []float64{2, math.NaN(), 3},
			actual:    []float64{1, 5, 3},
			expected:  &Scores{MSE: 0.5, MAPE: 0.5, R2: 0.5, N: 2},
		},
		"length mismatch": {
			predicted: []float64{1},
			actual:    []float64{1, 2},
			err:       ErrResLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := NewScores(td.predicted, td.actual)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, td.expected.MSE, res.MSE, 1e-12)
			assert.InDelta(t, td.expected.MAPE, res.MAPE, 1e-12)
			assert.InDelta(t, td.expected.R2, res.R2, 1e-12)
			assert.Equal(t, td.expected.N, res.N)
		})
	}
}

func TestPlot(t *testing.T) {
	forecasts, err := FromForecasts([]*timedataset.Frame{
		series(t, 2, "level", 20, 30, 40),
		series(t, 3, "level", 33, 42, 52),
	})
	require.NoError(t, err)
	e, err := New(setupTruth(t), forecasts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backtest.html")
	require.NoError(t, e.Plot(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Backtest")
	assert.Contains(t, string(data), "2024-02-01T03:00:00Z")
}
