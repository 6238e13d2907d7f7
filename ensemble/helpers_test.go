package ensemble

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func hours(from, to int) []time.Time {
	t := make([]time.Time, 0, to-from)
	for i := from; i < to; i++ {
		t = append(t, epoch.Add(time.Duration(i)*time.Hour))
	}
	return t
}

func target(t *testing.T, n int) *timedataset.Frame {
	t.Helper()
	y := make([]float64, n)
	for i := range y {
		y[i] = 2 + math.Sin(float64(i)/7)
	}
	f, err := timedataset.NewUnivariateFrame(hours(0, n), "level", y)
	require.NoError(t, err)
	return f
}

// fakeModel predicts a constant and records what it was given
type fakeModel struct {
	value float64
	icl   int
	delay time.Duration

	mu          sync.Mutex
	fitEnds     []time.Time
	fitColumns  [][]string
	predictEnds []time.Time
}

func (f *fakeModel) Fit(series *timedataset.Frame, cov models.Covariates) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fitEnds = append(f.fitEnds, series.End())
	var cols []string
	if cov.Past != nil {
		cols = cov.Past.Columns
	}
	f.fitColumns = append(f.fitColumns, cols)
	return nil
}

func (f *fakeModel) Predict(n int, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	f.predictEnds = append(f.predictEnds, series.End())
	f.mu.Unlock()

	vals := make([]float64, n)
	for i := range vals {
		vals[i] = f.value
	}
	return timedataset.NewUnivariateFrame(series.FutureIndex(n), "level", vals)
}

func (f *fakeModel) HistoricalForecasts(series *timedataset.Frame, cov models.Covariates, opt *models.HistoricalOptions) ([]*timedataset.Frame, error) {
	return models.WalkForward(series, f.icl, opt, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
		return f.Predict(n, history, cov)
	})
}

func (f *fakeModel) InputChunkLength() int {
	return f.icl
}

// fakeCombiner averages the future covariates and records what it was fit on
type fakeCombiner struct {
	fitSeries *timedataset.Frame
	fitStack  *timedataset.Frame
}

func (f *fakeCombiner) Fit(series *timedataset.Frame, cov models.Covariates) error {
	f.fitSeries = series
	f.fitStack = cov.Future
	return nil
}

func (f *fakeCombiner) Predict(n int, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	t := series.FutureIndex(n)
	vals := make([]float64, n)
	for i, ts := range t {
		k, ok := cov.Future.Index(ts)
		if !ok {
			return nil, models.ErrMissingCovariate
		}
		row := cov.Future.Row(k)
		for _, v := range row {
			vals[i] += v / float64(len(row))
		}
	}
	return timedataset.NewUnivariateFrame(t, "level", vals)
}

func (f *fakeCombiner) HistoricalForecasts(series *timedataset.Frame, cov models.Covariates, opt *models.HistoricalOptions) ([]*timedataset.Frame, error) {
	return nil, ErrRetrainUnsupported
}

func (f *fakeCombiner) InputChunkLength() int {
	return 0
}

func covariates(t *testing.T, n int, prefixes ...string) *timedataset.Frame {
	t.Helper()
	columns := make([]string, 0, len(prefixes))
	data := make([][]float64, 0, len(prefixes))
	for p, prefix := range prefixes {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Cos(float64(i)/(5+float64(p))) + 0.01*float64(i)
		}
		columns = append(columns, prefix+"x")
		data = append(data, x)
	}
	f, err := timedataset.NewFrame(hours(0, n), columns, data)
	require.NoError(t, err)
	return f
}
