package feature

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

var nan = math.NaN()

// Options configures which engineered features are derived from each weather frame
type Options struct {
	DayOfYear          bool     `json:"day_of_year"`
	HourOfDay          bool     `json:"hour_of_day"`
	YearlyOrders       int      `json:"yearly_orders"`
	RollingColumns     []string `json:"rolling_columns"`
	RollingSumWindows  []int    `json:"rolling_sum_windows"`
	RollingMeanWindows []int    `json:"rolling_mean_windows"`
}

// NewDefaultOptions only derives the day of year
func NewDefaultOptions() *Options {
	return &Options{
		DayOfYear: true,
	}
}

// Set is an ordered collection of features applied to a frame
type Set struct {
	features []Feature
}

// NewSet applies features in the given order
func NewSet(features ...Feature) *Set {
	return &Set{features: features}
}

// NewSetFromOptions expands the options into features. Nil options use the defaults.
func NewSetFromOptions(opt *Options) *Set {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	s := NewSet()
	if opt.DayOfYear {
		s.Add(NewTime(TimeDayOfYear))
	}
	if opt.HourOfDay {
		s.Add(NewTime(TimeHourOfDay))
	}
	for order := 1; order <= opt.YearlyOrders; order++ {
		s.Add(NewSeasonality("yearly", FourierCompSin, order))
		s.Add(NewSeasonality("yearly", FourierCompCos, order))
	}
	for _, col := range opt.RollingColumns {
		for _, w := range opt.RollingSumWindows {
			s.Add(NewRolling(col, AggregationSum, w))
		}
		for _, w := range opt.RollingMeanWindows {
			s.Add(NewRolling(col, AggregationMean, w))
		}
	}
	return s
}

func (s *Set) Add(f Feature) {
	s.features = append(s.features, f)
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.features)
}

// Labels returns the features in the order their columns are appended
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.features))
	copy(labels, s.features)
	return NewLabels(labels)
}

// Warmup returns the largest number of leading points any feature cannot compute
func (s *Set) Warmup() int {
	var warmup int
	for _, f := range s.features {
		warmup = max(warmup, f.Warmup())
	}
	return warmup
}

// Apply returns a copy of the frame with one column appended per feature and the warm-up rows
// removed so that every remaining row is fully populated by the rolling features.
func (s *Set) Apply(f *timedataset.Frame) (*timedataset.Frame, error) {
	res := f.Copy()
	if s.Len() == 0 {
		return res, nil
	}
	for _, feat := range s.features {
		data, err := feat.Generate(f)
		if err != nil {
			return nil, fmt.Errorf("unable to generate feature %s, %w", feat, err)
		}
		if err := res.AddColumn(feat.String(), data); err != nil {
			return nil, err
		}
	}
	return res.Slice(s.Warmup(), res.Len()), nil
}
