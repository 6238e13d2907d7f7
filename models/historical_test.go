package models

import (
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrigins(t *testing.T) {
	series := arSeries(t, 10)

	testData := map[string]struct {
		minHistory int
		opt        *HistoricalOptions
		expected   []int
		err        error
	}{
		"defaults": {
			minHistory: 3,
			expected:   []int{3, 4, 5, 6, 7, 8, 9},
		},
		"no history requirement": {
			minHistory: 0,
			opt:        &HistoricalOptions{Start: -1, ForecastHorizon: 4, Stride: 3},
			expected:   []int{1, 4},
		},
		"stride": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: -1, ForecastHorizon: 1, Stride: 2},
			expected:   []int{3, 5, 7, 9},
		},
		"start time": {
			minHistory: 3,
			opt:        &HistoricalOptions{StartTime: epoch.Add(5 * time.Hour), ForecastHorizon: 2, Stride: 1},
			expected:   []int{5, 6, 7, 8},
		},
		"overlap end": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: 8, ForecastHorizon: 5, Stride: 1, OverlapEnd: true},
			expected:   []int{8, 9, 10},
		},
		"empty history": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: 0, ForecastHorizon: 1, Stride: 1},
			err:        ErrInsufficientHistory,
		},
		"start before input chunk": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: 2, ForecastHorizon: 1, Stride: 1},
			err:        ErrInsufficientHistory,
		},
		"horizon past end": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: -1, ForecastHorizon: 8, Stride: 1},
			err:        ErrNoForecastOrigin,
		},
		"zero stride": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: -1, ForecastHorizon: 1},
			err:        ErrInvalidStride,
		},
		"zero horizon": {
			minHistory: 3,
			opt:        &HistoricalOptions{Start: -1, Stride: 1},
			err:        ErrInvalidHorizon,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Origins(series, td.minHistory, td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

// countingPredict forecasts the length of the history for every future point
func countingPredict(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(history.Len())
	}
	return timedataset.NewUnivariateFrame(history.FutureIndex(n), "y", vals)
}

func TestWalkForward(t *testing.T) {
	series := arSeries(t, 10)

	t.Run("last points only", func(t *testing.T) {
		opt := &HistoricalOptions{Start: 4, ForecastHorizon: 3, Stride: 2, LastPointsOnly: true}
		res, err := WalkForward(series, 2, opt, countingPredict)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, []float64{4, 6}, res[0].Data[0])
		assert.Equal(t, []time.Time{series.T[6], series.T[8]}, res[0].T)
	})

	t.Run("full forecasts", func(t *testing.T) {
		opt := &HistoricalOptions{Start: 4, ForecastHorizon: 3, Stride: 2}
		res, err := WalkForward(series, 2, opt, countingPredict)
		require.NoError(t, err)
		require.Len(t, res, 2)
		for i, k := range []int{4, 6} {
			assert.Equal(t, series.T[k], res[i].Start())
			assert.Equal(t, 3, res[i].Len())
		}
	})

	t.Run("predict error", func(t *testing.T) {
		_, err := WalkForward(series, 2, nil, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
			return nil, ErrUnfitModel
		})
		assert.ErrorIs(t, err, ErrUnfitModel)
	})

	t.Run("wrong length", func(t *testing.T) {
		opt := &HistoricalOptions{Start: -1, ForecastHorizon: 2, Stride: 1}
		_, err := WalkForward(series, 2, opt, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
			return countingPredict(1, history)
		})
		assert.ErrorIs(t, err, ErrInvalidHorizon)
	})
}
