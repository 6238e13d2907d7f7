package dataset

import (
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/feature"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseDataset(t *testing.T) {
	testData := map[string]struct {
		weather      []catchment.WeatherDatum
		level        *timedataset.Frame
		allowFutureX bool
		expStart     int
		expYEnd      int
		expXEnd      int
		err          error
	}{
		"intersection of all locations": {
			weather:  []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 100), weatherAt(t, 3, 4, 5, 110)},
			level:    levelAt(t, 2, 105),
			expStart: 5,
			expYEnd:  99,
			expXEnd:  99,
		},
		"target inside features": {
			weather:  []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 100)},
			level:    levelAt(t, 10, 50),
			expStart: 10,
			expYEnd:  49,
			expXEnd:  49,
		},
		"future features kept": {
			weather:      []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 80), weatherAt(t, 3, 4, 0, 80)},
			level:        levelAt(t, 0, 50),
			allowFutureX: true,
			expStart:     0,
			expYEnd:      49,
			expXEnd:      79,
		},
		"future features end together": {
			weather:      []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 90), weatherAt(t, 3, 4, 0, 80)},
			level:        levelAt(t, 0, 50),
			allowFutureX: true,
			expStart:     0,
			expYEnd:      49,
			expXEnd:      79,
		},
		"no overlap": {
			weather: []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 100)},
			level:   levelAt(t, 200, 250),
			err:     ErrAlignment,
		},
		"locations share no range": {
			weather: []catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 50), weatherAt(t, 3, 4, 60, 100)},
			level:   levelAt(t, 0, 100),
			err:     ErrAlignment,
		},
		"no locations": {
			level: levelAt(t, 0, 100),
			err:   ErrNoLocations,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			opt.AllowFutureX = td.allowFutureX
			ds, err := NewBaseDataset(td.weather, td.level, opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)

			start := epoch.Add(hoursDur(td.expStart))
			assert.Equal(t, start, ds.Y.Start())
			assert.Equal(t, epoch.Add(hoursDur(td.expYEnd)), ds.Y.End())
			require.Len(t, ds.X, len(td.weather))
			for i, x := range ds.X {
				assert.Equal(t, start, x.Start(), "location %d", i)
				assert.Equal(t, epoch.Add(hoursDur(td.expXEnd)), x.End(), "location %d", i)
				assert.True(t, x.IsHourly())
				assert.Equal(t, td.weather[i].Coordinate(), ds.Coordinates[i])
			}
		})
	}
}

func TestBaseDatasetColumns(t *testing.T) {
	ds, err := NewBaseDataset(
		[]catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 48), weatherAt(t, 3, 4, 0, 48)},
		levelAt(t, 0, 48),
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"1_2_precipitation", "1_2_temperature", "1_2_tfeat_day_of_year"}, ds.X[0].Columns)
	assert.Equal(t, []string{"3_4_precipitation", "3_4_temperature", "3_4_tfeat_day_of_year"}, ds.X[1].Columns)

	cov, err := ds.Covariates()
	require.NoError(t, err)
	assert.Equal(t, 6, cov.NumColumns())
	assert.Equal(t, 48, cov.Len())
}

func TestBaseDatasetImputesWeatherGaps(t *testing.T) {
	w := weatherAt(t, 1, 2, 0, 10)
	w.Hourly.Data[0][4] = nan()

	ds, err := NewBaseDataset([]catchment.WeatherDatum{w}, levelAt(t, 0, 10), nil)
	require.NoError(t, err)

	precip, err := ds.X[0].Column("1_2_precipitation")
	require.NoError(t, err)
	require.Len(t, precip, 10)
	assert.InDelta(t, 4.0, precip[4], 1e-9)
}

func TestStackCovariates(t *testing.T) {
	a := weatherAt(t, 1, 2, 0, 10).Hourly.WithPrefix("a_")
	b := weatherAt(t, 3, 4, 3, 12).Hourly.WithPrefix("b_")

	res, err := StackCovariates([]*timedataset.Frame{a, b})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Len())
	assert.Equal(t, epoch.Add(hoursDur(3)), res.Start())
	assert.Equal(t, []string{"a_precipitation", "a_temperature", "b_precipitation", "b_temperature"}, res.Columns)

	_, err = StackCovariates(nil)
	assert.ErrorIs(t, err, ErrNoLocations)
}

// withoutHour removes the row at hour i of a frame starting at epoch
func withoutHour(t *testing.T, f *timedataset.Frame, i int) *timedataset.Frame {
	t.Helper()
	res, err := f.Slice(0, i).Append(f.Slice(i+1, f.Len()))
	require.NoError(t, err)
	return res
}

func TestBaseDatasetMissingWeatherRow(t *testing.T) {
	testData := map[string]struct {
		features  *feature.Options
		column    string
		at        int
		expected  float64
		expXStart int
	}{
		"missing hour imputed": {
			features: feature.NewDefaultOptions(),
			column:   "1_2_precipitation",
			at:       20,
			expected: 20,
		},
		"rolling window spans hours": {
			features: &feature.Options{
				RollingColumns:    []string{"precipitation"},
				RollingSumWindows: []int{3},
			},
			column:    "1_2_precipitation_rolling_sum_3",
			at:        21,
			expected:  19 + 20 + 21,
			expXStart: 2,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			w := weatherAt(t, 1, 2, 0, 48)
			w.Hourly = withoutHour(t, w.Hourly, 20)
			require.False(t, w.Hourly.IsHourly())

			opt := NewDefaultOptions()
			opt.Features = td.features
			ds, err := NewBaseDataset([]catchment.WeatherDatum{w}, levelAt(t, 0, 48), opt)
			require.NoError(t, err)

			x := ds.X[0]
			assert.True(t, x.IsHourly())
			assert.True(t, ds.Y.IsHourly())
			assert.Equal(t, 48-td.expXStart, x.Len())
			assert.Equal(t, x.Len(), ds.Y.Len())
			assert.Equal(t, ds.Y.T, x.T)

			col, err := x.Column(td.column)
			require.NoError(t, err)
			i, exists := x.Index(epoch.Add(hoursDur(td.at)))
			require.True(t, exists)
			assert.InDelta(t, td.expected, col[i], 1e-9)
		})
	}
}

func TestBaseDatasetMissingLevelRow(t *testing.T) {
	level := withoutHour(t, levelAt(t, 0, 24), 10)
	ds, err := NewBaseDataset([]catchment.WeatherDatum{weatherAt(t, 1, 2, 0, 24)}, level, nil)
	require.NoError(t, err)
	require.Equal(t, 24, ds.Y.Len())
	assert.True(t, ds.Y.IsHourly())
	assert.InDelta(t, 1.10, ds.Y.Data[0][10], 1e-9)
}

func TestBaseDatasetOffGridWeather(t *testing.T) {
	w := weatherAt(t, 1, 2, 0, 24)
	shifted := append([]time.Time(nil), w.Hourly.T...)
	shifted[5] = shifted[5].Add(30 * time.Minute)
	f, err := timedataset.NewFrame(shifted, w.Hourly.Columns, w.Hourly.Data)
	require.NoError(t, err)
	w.Hourly = f

	_, err = NewBaseDataset([]catchment.WeatherDatum{w}, levelAt(t, 0, 24), nil)
	assert.ErrorIs(t, err, ErrAlignment)
	assert.ErrorIs(t, err, timedataset.ErrOffGrid)
}
