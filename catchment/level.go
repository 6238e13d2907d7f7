package catchment

import (
	"errors"
	"math"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

var ErrNoReadings = errors.New("no level readings")

// Reading is a single raw gauge observation
type Reading struct {
	Time  time.Time
	Value float64
}

// CoerceHourly converts irregular gauge readings into an hourly UTC series. Readings are averaged
// within each hour. Gaps are imputed with the mean of the forward and backward fill, and any
// remaining NaN at the edges is dropped.
func CoerceHourly(readings []Reading, column string) (*timedataset.Frame, error) {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	var start, end time.Time
	for _, r := range readings {
		if math.IsNaN(r.Value) {
			continue
		}
		h := r.Time.UTC().Truncate(time.Hour)
		sums[h] += r.Value
		counts[h]++
		if start.IsZero() || h.Before(start) {
			start = h
		}
		if end.IsZero() || h.After(end) {
			end = h
		}
	}
	if len(counts) == 0 {
		return nil, ErrNoReadings
	}

	n := int(end.Sub(start)/time.Hour) + 1
	t := make([]time.Time, n)
	y := make([]float64, n)
	for i := range t {
		t[i] = start.Add(time.Duration(i) * time.Hour)
		if cnt, exists := counts[t[i]]; exists {
			y[i] = sums[t[i]] / float64(cnt)
			continue
		}
		y[i] = math.NaN()
	}

	y = imputeFill(y)
	f, err := timedataset.NewUnivariateFrame(t, column, y)
	if err != nil {
		return nil, err
	}
	return f.DropNan(), nil
}

// Impute fills NaN gaps in every column of the frame with the mean of the forward and backward fill.
// Leading and trailing NaN are left in place.
func Impute(f *timedataset.Frame) *timedataset.Frame {
	res := f.Copy()
	for c, col := range res.Data {
		res.Data[c] = imputeFill(col)
	}
	return res
}

// imputeFill replaces NaN with the average of the last value before and the next value after it.
// A NaN without a value on both sides stays NaN.
func imputeFill(y []float64) []float64 {
	ffill := make([]float64, len(y))
	last := math.NaN()
	for i, v := range y {
		if !math.IsNaN(v) {
			last = v
		}
		ffill[i] = last
	}

	res := make([]float64, len(y))
	next := math.NaN()
	for i := len(y) - 1; i >= 0; i-- {
		if !math.IsNaN(y[i]) {
			next = y[i]
		}
		res[i] = (ffill[i] + next) / 2.0
	}
	return res
}
