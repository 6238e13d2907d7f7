package dataset

import (
	"testing"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinMaxScaler(t *testing.T) {
	a, err := timedataset.NewFrame(hours(0, 3), []string{"x", "c"}, [][]float64{{1, 3, 5}, {2, 2, 2}})
	require.NoError(t, err)
	b, err := timedataset.NewFrame(hours(3, 5), []string{"x", "z"}, [][]float64{{-1, nan()}, {10, 20}})
	require.NoError(t, err)

	s := NewMinMaxScaler()
	s.Fit(a)
	s.PartialFit(b)

	lo, hi, ok := s.Range("x")
	require.True(t, ok)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 5.0, hi)

	scaled, err := s.Transform(a)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.0 / 6, 4.0 / 6, 1}, scaled.Data[0], 1e-12)
	assert.Equal(t, []float64{0, 0, 0}, scaled.Data[1])

	orig, err := s.InverseTransform(scaled)
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Data[0], orig.Data[0], 1e-12)
	assert.InDeltaSlice(t, a.Data[1], orig.Data[1], 1e-12)

	unknown, err := timedataset.NewUnivariateFrame(hours(0, 1), "w", []float64{1})
	require.NoError(t, err)
	_, err = s.Transform(unknown)
	assert.ErrorIs(t, err, ErrUnfitScaler)

	// refitting forgets earlier ranges
	s.Fit(b)
	_, _, ok = s.Range("c")
	assert.False(t, ok)
}

func TestMinMaxScalerJSON(t *testing.T) {
	f, err := timedataset.NewUnivariateFrame(hours(0, 3), "level", []float64{0.5, 1.5, 2.5})
	require.NoError(t, err)
	s := NewMinMaxScaler()
	s.Fit(f)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var loaded MinMaxScaler
	require.NoError(t, json.Unmarshal(data, &loaded))
	lo, hi, ok := loaded.Range("level")
	require.True(t, ok)
	assert.Equal(t, 0.5, lo)
	assert.Equal(t, 2.5, hi)
}
