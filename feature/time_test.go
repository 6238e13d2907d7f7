package feature

import (
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeString(t *testing.T) {
	feat := NewTime(TimeDayOfYear)
	expected := "tfeat_day_of_year"
	assert.Equal(t, expected, feat.String())
}

func TestTimeGet(t *testing.T) {
	feat := NewTime("blargh")

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown": {
			label: "unknown",
		},
		"capitalized": {
			label:     "NAME",
			expVal:    "blargh",
			expExists: true,
		},
		"exact match": {
			label:     "name",
			expVal:    "blargh",
			expExists: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestTimeUnmarshalJSON(t *testing.T) {
	feat := NewTime(TimeHourOfDay)
	out, err := json.Marshal(feat.Decode())
	require.NoError(t, err)

	var nextFeat Time
	require.NoError(t, json.Unmarshal(out, &nextFeat))

	assert.Equal(t, feat, &nextFeat)
}

func TestTimeGenerate(t *testing.T) {
	times := []time.Time{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 1, 5, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
	}
	f, err := timedataset.NewUnivariateFrame(times, "rain", []float64{0, 0, 0})
	require.NoError(t, err)

	testData := map[string]struct {
		feat     *Time
		expected []float64
		err      error
	}{
		"day of year": {
			feat:     NewTime(TimeDayOfYear),
			expected: []float64{1, 32, 366},
		},
		"hour of day": {
			feat:     NewTime(TimeHourOfDay),
			expected: []float64{0, 5, 23},
		},
		"unknown": {
			feat: NewTime("minute"),
			err:  ErrUnknownTimeFeature,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			got, err := td.feat.Generate(f)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, got)
		})
	}
}
