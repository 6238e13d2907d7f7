package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hours(from, to int) []time.Time {
	t := make([]time.Time, 0, to-from)
	for i := from; i < to; i++ {
		t = append(t, epoch.Add(time.Duration(i)*time.Hour))
	}
	return t
}

// weatherAt builds a location with precipitation and temperature over hours [from, to)
func weatherAt(t *testing.T, lon, lat float64, from, to int) catchment.WeatherDatum {
	t.Helper()
	tt := hours(from, to)
	precip := make([]float64, len(tt))
	temp := make([]float64, len(tt))
	for i := range tt {
		precip[i] = float64(from+i) * lon
		temp[i] = 10 + 5*math.Sin(float64(from+i)/24*2*math.Pi) + lat
	}
	f, err := timedataset.NewFrame(tt, []string{"precipitation", "temperature"}, [][]float64{precip, temp})
	require.NoError(t, err)
	return catchment.WeatherDatum{Longitude: lon, Latitude: lat, Hourly: f}
}

func levelAt(t *testing.T, from, to int) *timedataset.Frame {
	t.Helper()
	tt := hours(from, to)
	y := make([]float64, len(tt))
	for i := range tt {
		y[i] = 1 + 0.01*float64(from+i)
	}
	f, err := timedataset.NewUnivariateFrame(tt, "level", y)
	require.NoError(t, err)
	return f
}

func hoursDur(n int) time.Duration {
	return time.Duration(n) * time.Hour
}

func nan() float64 {
	return math.NaN()
}
