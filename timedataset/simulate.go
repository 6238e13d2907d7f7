package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n evenly spaced time points ending one interval before the hour of nowFunc
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := nowFunc().UTC().Truncate(time.Hour).Add(-time.Duration(n) * interval)
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// Series is a helper for composing synthetic signals
type Series []float64

// Add adds src to s elementwise in place
func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// Scale multiplies every value in place
func (s Series) Scale(c float64) Series {
	floats.Scale(c, s)
	return s
}

// Lag delays the series by k samples, holding the first value for the leading k points
func (s Series) Lag(k int) Series {
	if k <= 0 || len(s) == 0 {
		return s
	}
	lagged := make([]float64, len(s))
	for i := range s {
		j := i - k
		if j < 0 {
			j = 0
		}
		lagged[i] = s[j]
	}
	copy(s, lagged)
	return s
}

// Frame wraps the series as a single column frame
func (s Series) Frame(t []time.Time, column string) (*Frame, error) {
	return NewUnivariateFrame(t, column, s)
}

// GenerateConstY returns n copies of val
func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave of the given order over t
func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise draws normally distributed noise from a seeded source so runs are repeatable
func GenerateNoise(t []time.Time, scale float64, seed uint64) Series {
	r := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, 0, len(t))
	for range t {
		y = append(y, r.NormFloat64()*scale)
	}
	return Series(y)
}

// GeneratePulseY emits amp for the fraction duty of each cycle, resembling discrete rain events
func GeneratePulseY(t []time.Time, amp, periodSec, order, timeOffset, duty float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	cycleCutoff := 1.0 - duty/2.0
	for i := 0; i < n; i++ {
		cyclePos := math.Cos(2.0 * math.Pi * order / periodSec * (float64(t[i].Unix()) + timeOffset))
		val := 0.0
		if cyclePos >= cycleCutoff {
			val = amp
		}

		y = append(y, val)
	}
	return Series(y)
}
