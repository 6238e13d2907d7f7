// Package feature derives engineered columns from hourly weather frames.
package feature

import (
	"errors"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

var (
	ErrUnknownTimeFeature = errors.New("unknown time feature")
	ErrInvalidWindow      = errors.New("rolling window must be positive")
	ErrUnknownAggregation = errors.New("unknown rolling aggregation")
)

type FeatureType int

const (
	FeatureTypeTime FeatureType = iota
	FeatureTypeSeasonality
	FeatureTypeRolling
)

type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType

	// Generate returns one value per time point of the frame. Points without enough history are NaN.
	Generate(f *timedataset.Frame) ([]float64, error)

	// Warmup is the number of leading points Generate cannot compute
	Warmup() int
}
