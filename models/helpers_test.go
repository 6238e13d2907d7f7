package models

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func hours(from, to int) []time.Time {
	t := make([]time.Time, 0, to-from)
	for i := from; i < to; i++ {
		t = append(t, epoch.Add(time.Duration(i)*time.Hour))
	}
	return t
}

// arSeries follows y[t] = 0.5*y[t-1] + 1 from y[0] = 10
func arSeries(t *testing.T, n int) *timedataset.Frame {
	t.Helper()
	y := make([]float64, n)
	y[0] = 10
	for i := 1; i < n; i++ {
		y[i] = 0.5*y[i-1] + 1
	}
	f, err := timedataset.NewUnivariateFrame(hours(0, n), "y", y)
	require.NoError(t, err)
	return f
}

// driver is a non-repeating covariate over hours [from, to)
func driver(t *testing.T, column string, from, to int) *timedataset.Frame {
	t.Helper()
	x := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		x = append(x, math.Sin(float64(i)/5)+0.1*float64(i))
	}
	f, err := timedataset.NewUnivariateFrame(hours(from, to), column, x)
	require.NoError(t, err)
	return f
}
