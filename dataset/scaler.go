package dataset

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-riverforecast/stats"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

var ErrUnfitScaler = errors.New("scaler has not seen the column")

// MinMaxScaler maps every column linearly onto [0, 1] using the minimum and maximum seen while
// fitting. Columns are tracked by name so frames of different locations can share one scaler.
type MinMaxScaler struct {
	Columns []string  `json:"columns"`
	Min     []float64 `json:"min"`
	Max     []float64 `json:"max"`

	idx map[string]int
}

// NewMinMaxScaler returns an unfit scaler
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{idx: make(map[string]int)}
}

func (s *MinMaxScaler) index() map[string]int {
	if s.idx == nil || len(s.idx) != len(s.Columns) {
		s.idx = make(map[string]int, len(s.Columns))
		for i, col := range s.Columns {
			s.idx[col] = i
		}
	}
	return s.idx
}

// Fit resets the scaler and learns the range of every column of the frames
func (s *MinMaxScaler) Fit(frames ...*timedataset.Frame) {
	s.Columns, s.Min, s.Max = nil, nil, nil
	s.idx = make(map[string]int)
	for _, f := range frames {
		s.PartialFit(f)
	}
}

// PartialFit widens the learned ranges with the values of the frame
func (s *MinMaxScaler) PartialFit(f *timedataset.Frame) {
	idx := s.index()
	for c, col := range f.Columns {
		lo, hi, ok := stats.MinMax(f.Data[c])
		if !ok {
			continue
		}
		i, exists := idx[col]
		if !exists {
			s.Columns = append(s.Columns, col)
			s.Min = append(s.Min, lo)
			s.Max = append(s.Max, hi)
			idx[col] = len(s.Columns) - 1
			continue
		}
		s.Min[i] = min(s.Min[i], lo)
		s.Max[i] = max(s.Max[i], hi)
	}
}

// Range returns the learned minimum and maximum of a column
func (s *MinMaxScaler) Range(col string) (float64, float64, bool) {
	i, exists := s.index()[col]
	if !exists {
		return 0, 0, false
	}
	return s.Min[i], s.Max[i], true
}

// Transform scales a copy of the frame. A column with a constant training range maps to 0.
func (s *MinMaxScaler) Transform(f *timedataset.Frame) (*timedataset.Frame, error) {
	return s.apply(f, func(v, lo, scale float64) float64 {
		return (v - lo) / scale
	})
}

// InverseTransform maps scaled values back onto the original range
func (s *MinMaxScaler) InverseTransform(f *timedataset.Frame) (*timedataset.Frame, error) {
	return s.apply(f, func(v, lo, scale float64) float64 {
		return v*scale + lo
	})
}

func (s *MinMaxScaler) apply(f *timedataset.Frame, fn func(v, lo, scale float64) float64) (*timedataset.Frame, error) {
	res := f.Copy()
	for c, col := range res.Columns {
		lo, hi, exists := s.Range(col)
		if !exists {
			return nil, fmt.Errorf("%s, %w", col, ErrUnfitScaler)
		}
		scale := hi - lo
		if scale == 0 {
			scale = 1
		}
		for i, v := range res.Data[c] {
			res.Data[c][i] = fn(v, lo, scale)
		}
	}
	return res, nil
}
