// Package dataset aligns per location weather features with the river level and partitions them
// into chronological training, validation and test windows.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/feature"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

var (
	ErrAlignment     = errors.New("feature and target series do not overlap")
	ErrPartitionSize = errors.New("validation and test sizes must be smaller than the series")
	ErrNoLocations   = errors.New("no weather locations")
)

type Options struct {
	Features *feature.Options

	// AllowFutureX keeps feature rows after the last target timestamp. Only current inference
	// data, where forecasted weather extends past the known level, should set this.
	AllowFutureX bool
}

// NewDefaultOptions engineers the default features and drops feature rows past the target
func NewDefaultOptions() *Options {
	return &Options{
		Features: feature.NewDefaultOptions(),
	}
}

// BaseDataset holds one feature frame per location and the target frame, all starting at the same
// timestamp. Feature frames end with the target unless AllowFutureX was set, in which case they end
// at the last timestamp shared by every location.
type BaseDataset struct {
	X           []*timedataset.Frame
	Y           *timedataset.Frame
	Coordinates []catchment.Coordinate
}

// NewBaseDataset engineers and prefixes the features of every location and aligns them with the level
func NewBaseDataset(weather []catchment.WeatherDatum, level *timedataset.Frame, opt *Options) (*BaseDataset, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if len(weather) == 0 {
		return nil, ErrNoLocations
	}
	if level.Empty() {
		return nil, fmt.Errorf("empty target, %w", ErrAlignment)
	}
	level, err := hourly(level)
	if err != nil {
		return nil, fmt.Errorf("target, %w", err)
	}
	set := feature.NewSetFromOptions(opt.Features)

	ds := &BaseDataset{
		X:           make([]*timedataset.Frame, 0, len(weather)),
		Coordinates: make([]catchment.Coordinate, 0, len(weather)),
	}
	var ref bounds
	for _, datum := range weather {
		x, err := prepareFeatures(datum, set, level, opt.AllowFutureX)
		if err != nil {
			return nil, err
		}
		ref.update(x)
		ds.X = append(ds.X, x)
		ds.Coordinates = append(ds.Coordinates, datum.Coordinate())
	}

	y, err := alignTarget(level, ref)
	if err != nil {
		return nil, err
	}
	ds.Y = y
	for i, x := range ds.X {
		x, err = trimToTarget(x, ds.Y, opt.AllowFutureX)
		if err != nil {
			return nil, fmt.Errorf("location %s, %w", ds.Coordinates[i], err)
		}
		ds.X[i] = x.Until(ref.end)
	}
	return ds, nil
}

// Covariates column stacks the feature frames over their common time range
func (b *BaseDataset) Covariates() (*timedataset.Frame, error) {
	return StackCovariates(b.X)
}

// StackCovariates column stacks frames after restricting them to the range shared by all of them
func StackCovariates(xs []*timedataset.Frame) (*timedataset.Frame, error) {
	if len(xs) == 0 {
		return nil, ErrNoLocations
	}
	var ref bounds
	for _, x := range xs {
		ref.update(x)
	}
	trimmed := make([]*timedataset.Frame, len(xs))
	for i, x := range xs {
		trimmed[i] = x.Between(ref.start, ref.end)
	}
	return timedataset.Stack(trimmed...)
}

// bounds tracks the range covered by every frame seen so far
type bounds struct {
	start, end time.Time
	seen       bool
}

func (b *bounds) update(f *timedataset.Frame) {
	if !b.seen {
		b.start, b.end, b.seen = f.Start(), f.End(), true
		return
	}
	if f.Start().After(b.start) {
		b.start = f.Start()
	}
	if f.End().Before(b.end) {
		b.end = f.End()
	}
}

// prepareFeatures imputes gaps, engineers features, drops warm-up and edge NaN rows, prefixes the
// columns with the location and trims the frame to the target range.
func prepareFeatures(datum catchment.WeatherDatum, set *feature.Set, y *timedataset.Frame, allowFutureX bool) (*timedataset.Frame, error) {
	coord := datum.Coordinate()
	if datum.Hourly.Empty() {
		return nil, fmt.Errorf("location %s has no weather, %w", coord, ErrAlignment)
	}

	weather, err := hourly(datum.Hourly)
	if err != nil {
		return nil, fmt.Errorf("location %s, %w", coord, err)
	}
	x, err := set.Apply(weather)
	if err != nil {
		return nil, fmt.Errorf("unable to engineer features for %s, %w", coord, err)
	}
	x = x.DropNan().WithPrefix(coord.String())
	if !x.IsHourly() {
		return nil, fmt.Errorf("location %s has interior rows without values, %w", coord, ErrAlignment)
	}

	trimmed, err := trimToTarget(x, y, allowFutureX)
	if err != nil {
		return nil, fmt.Errorf("location %s, %w", coord, err)
	}
	return trimmed, nil
}

// hourly fills missing hours with NaN and imputes every gap, so rolling windows always span the
// hours they are named after
func hourly(f *timedataset.Frame) (*timedataset.Frame, error) {
	res, err := f.Reindex(time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", err, ErrAlignment)
	}
	return catchment.Impute(res), nil
}

// trimToTarget drops feature rows before the target start and, unless allowFutureX, after the
// target end.
func trimToTarget(x, y *timedataset.Frame, allowFutureX bool) (*timedataset.Frame, error) {
	if x.Empty() || y.Empty() || x.Start().After(y.End()) || x.End().Before(y.Start()) {
		return nil, fmt.Errorf(
			"features span [%s, %s] and target spans [%s, %s], %w",
			x.Start(), x.End(), y.Start(), y.End(), ErrAlignment,
		)
	}
	if x.Start().Before(y.Start()) {
		x = x.From(y.Start())
	}
	if !allowFutureX && x.End().After(y.End()) {
		x = x.Until(y.End())
	}
	if x.Empty() {
		return nil, fmt.Errorf("no feature rows remain after trimming, %w", ErrAlignment)
	}
	return x, nil
}

// alignTarget trims the target to the range covered by every feature frame. Trimming to the first
// location alone would let the other locations start later than the target.
func alignTarget(y *timedataset.Frame, ref bounds) (*timedataset.Frame, error) {
	if ref.start.After(ref.end) {
		return nil, fmt.Errorf("feature frames share no common range, %w", ErrAlignment)
	}
	if y.Start().Before(ref.start) {
		y = y.From(ref.start)
	}
	if y.End().After(ref.end) {
		y = y.Until(ref.end)
	}
	if y.Empty() {
		return nil, fmt.Errorf("no target rows remain after trimming, %w", ErrAlignment)
	}
	return y, nil
}
