package models

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

// HistoricalOptions configures a walk-forward backtest. A forecast origin k predicts the points
// starting at series index k using only series[:k].
type HistoricalOptions struct {
	// Start is the index of the first forecast origin. A negative value starts at the earliest
	// origin with enough history.
	Start int

	// StartTime selects the first origin at or after the timestamp and takes precedence over Start
	StartTime time.Time

	ForecastHorizon int
	Stride          int

	// Retrain refits the model on series[:k] before predicting at each origin
	Retrain bool

	// LastPointsOnly keeps only the final point of each forecast and returns them as one series
	LastPointsOnly bool

	// OverlapEnd allows forecasts that extend beyond the end of the series
	OverlapEnd bool
}

// NewDefaultHistoricalOptions forecasts one point from every origin, starting at the earliest
// origin with enough history
func NewDefaultHistoricalOptions() *HistoricalOptions {
	return &HistoricalOptions{
		Start:           -1,
		ForecastHorizon: 1,
		Stride:          1,
		LastPointsOnly:  true,
	}
}

// Validate fills in nil options with defaults and checks the horizon and stride
func (h *HistoricalOptions) Validate() (*HistoricalOptions, error) {
	if h == nil {
		h = NewDefaultHistoricalOptions()
	}
	if h.ForecastHorizon <= 0 {
		return nil, fmt.Errorf("got %d, %w", h.ForecastHorizon, ErrInvalidHorizon)
	}
	if h.Stride <= 0 {
		return nil, fmt.Errorf("got %d, %w", h.Stride, ErrInvalidStride)
	}
	return h, nil
}

// Origins returns the forecast origin indices of series for a model needing minHistory points.
// An explicit start leaving fewer than minHistory points, or an empty history, is an error rather
// than a silently skipped window.
func Origins(series *timedataset.Frame, minHistory int, opt *HistoricalOptions) ([]int, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	earliest := max(minHistory, 1)

	start := opt.Start
	if !opt.StartTime.IsZero() {
		start = series.Search(opt.StartTime)
	}
	if start < 0 {
		start = earliest
	}
	if start < earliest {
		return nil, fmt.Errorf(
			"origin %d leaves %d points, but %d are required, %w",
			start, start, earliest, ErrInsufficientHistory,
		)
	}

	last := series.Len()
	if !opt.OverlapEnd {
		last -= opt.ForecastHorizon
	}
	var origins []int
	for k := start; k <= last; k += opt.Stride {
		origins = append(origins, k)
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf(
			"series has %d points, start is %d and horizon is %d, %w",
			series.Len(), start, opt.ForecastHorizon, ErrNoForecastOrigin,
		)
	}
	return origins, nil
}

// PredictFunc forecasts n points following history
type PredictFunc func(n int, history *timedataset.Frame) (*timedataset.Frame, error)

// WalkForward predicts at every origin of series. With LastPointsOnly the result is a single series
// of the final point of each forecast, otherwise one forecast per origin.
func WalkForward(series *timedataset.Frame, minHistory int, opt *HistoricalOptions, predict PredictFunc) ([]*timedataset.Frame, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	origins, err := Origins(series, minHistory, opt)
	if err != nil {
		return nil, err
	}

	h := opt.ForecastHorizon
	forecasts := make([]*timedataset.Frame, 0, len(origins))
	for _, k := range origins {
		pred, err := predict(h, series.Slice(0, k))
		if err != nil {
			return nil, fmt.Errorf("unable to forecast at origin %d, %w", k, err)
		}
		if pred.Len() != h {
			return nil, fmt.Errorf("origin %d returned %d points, %w", k, pred.Len(), ErrInvalidHorizon)
		}
		forecasts = append(forecasts, pred)
	}
	if !opt.LastPointsOnly {
		return forecasts, nil
	}

	points := forecasts[0].Slice(h-1, h)
	for _, pred := range forecasts[1:] {
		if points, err = points.Append(pred.Slice(h-1, h)); err != nil {
			return nil, err
		}
	}
	return []*timedataset.Frame{points}, nil
}
