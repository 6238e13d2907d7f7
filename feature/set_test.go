package feature

import (
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetFromOptions(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		expected []string
	}{
		"nil options": {
			expected: []string{"tfeat_day_of_year"},
		},
		"all features": {
			opt: &Options{
				DayOfYear:          true,
				HourOfDay:          true,
				YearlyOrders:       1,
				RollingColumns:     []string{"rain"},
				RollingSumWindows:  []int{3},
				RollingMeanWindows: []int{2},
			},
			expected: []string{
				"tfeat_day_of_year",
				"tfeat_hour_of_day",
				"seas_yearly_01_sin",
				"seas_yearly_01_cos",
				"rain_rolling_sum_3",
				"rain_rolling_mean_2",
			},
		},
		"empty": {
			opt: &Options{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := NewSetFromOptions(td.opt)
			assert.Equal(t, len(td.expected), s.Len())
			if len(td.expected) > 0 {
				assert.Equal(t, td.expected, s.Labels().Columns())
			}
		})
	}
}

func TestLabels(t *testing.T) {
	l := NewSetFromOptions(&Options{
		DayOfYear:         true,
		YearlyOrders:      1,
		RollingColumns:    []string{"rain"},
		RollingSumWindows: []int{3, 6},
	}).Labels()

	assert.Equal(t, 5, l.Len())
	assert.Equal(t, []string{"rain_rolling_sum_3", "rain_rolling_sum_6"}, l.OfType(FeatureTypeRolling))
	assert.Equal(t, []string{"seas_yearly_01_sin", "seas_yearly_01_cos"}, l.OfType(FeatureTypeSeasonality))

	f, exists := l.Lookup("rain_rolling_sum_6")
	require.True(t, exists)
	assert.Equal(t, FeatureTypeRolling, f.Type())
	window, exists := f.Get("window")
	require.True(t, exists)
	assert.Equal(t, "6", window)

	_, exists = l.Lookup("snow_rolling_sum_6")
	assert.False(t, exists)
}

func TestSetApply(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tSeries := make([]time.Time, 6)
	for i := range tSeries {
		tSeries[i] = start.Add(time.Duration(i) * time.Hour)
	}
	f, err := timedataset.NewUnivariateFrame(tSeries, "rain", []float64{1, 1, 2, 2, 3, 3})
	require.NoError(t, err)

	s := NewSet(
		NewTime(TimeDayOfYear),
		NewRolling("rain", AggregationSum, 3),
		NewRolling("rain", AggregationMean, 2),
	)
	assert.Equal(t, 2, s.Warmup())

	res, err := s.Apply(f)
	require.NoError(t, err)

	// warm-up rows removed without breaking the hourly index
	assert.Equal(t, tSeries[2:], res.T)
	assert.Equal(t, []string{"rain", "tfeat_day_of_year", "rain_rolling_sum_3", "rain_rolling_mean_2"}, res.Columns)
	assert.Equal(t, []float64{2, 2, 3, 3}, res.Data[0])
	assert.Equal(t, []float64{1, 1, 1, 1}, res.Data[1])
	assert.Equal(t, []float64{4, 5, 7, 8}, res.Data[2])
	assert.Equal(t, []float64{1.5, 2, 2.5, 3}, res.Data[3])

	// source frame untouched
	assert.Equal(t, []string{"rain"}, f.Columns)

	_, err = NewSet(NewRolling("snow", AggregationSum, 2)).Apply(f)
	assert.ErrorIs(t, err, timedataset.ErrUnknownColumn)
}
