package dataset

import (
	"context"
	"fmt"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/feature"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

// PartitionedTrainingDataset is the streaming counterpart of TrainingDataset for catchments with
// many locations. Engineered features are written to a FeatureCache one location at a time and the
// feature scaler accumulates per partition ranges, so at most one location's features are held in
// memory. Results match TrainingDataset for the same inputs.
type PartitionedTrainingDataset struct {
	cache          *storage.FeatureCache
	coordinates    []catchment.Coordinate
	validationSize int
	testSize       int

	yTrain, yValidation, yTest *timedataset.Frame
	featureScaler              *MinMaxScaler
	targetScaler               *MinMaxScaler
}

// NewPartitionedTrainingDataset aligns every location like NewBaseDataset but keeps only one
// location's features in memory at a time. Features are written to cache and scalers are fit
// incrementally on the train window.
func NewPartitionedTrainingDataset(
	ctx context.Context,
	weather []catchment.WeatherDatum,
	level *timedataset.Frame,
	cache *storage.FeatureCache,
	validationSize, testSize int,
	opt *Options,
) (*PartitionedTrainingDataset, error) {
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

	p := &PartitionedTrainingDataset{
		cache:          cache,
		coordinates:    make([]catchment.Coordinate, 0, len(weather)),
		validationSize: validationSize,
		testSize:       testSize,
		featureScaler:  NewMinMaxScaler(),
		targetScaler:   NewMinMaxScaler(),
	}

	var ref bounds
	for i, datum := range weather {
		x, err := prepareFeatures(datum, set, level, opt.AllowFutureX)
		if err != nil {
			return nil, err
		}
		ref.update(x)
		if err := cache.Put(ctx, i, x); err != nil {
			return nil, fmt.Errorf("unable to cache features of %s, %w", datum.Coordinate(), err)
		}
		p.coordinates = append(p.coordinates, datum.Coordinate())
	}

	y, err := alignTarget(level, ref)
	if err != nil {
		return nil, err
	}
	if err := checkPartitionSize(y.Len(), validationSize, testSize); err != nil {
		return nil, err
	}
	p.yTrain, p.yValidation, p.yTest = splitTarget(y, validationSize, testSize)
	p.targetScaler.Fit(p.yTrain)

	for i, coord := range p.coordinates {
		x, err := cache.Get(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("unable to load cached features of %s, %w", coord, err)
		}
		if x, err = trimToTarget(x, y, opt.AllowFutureX); err != nil {
			return nil, fmt.Errorf("location %s, %w", coord, err)
		}
		x = x.Until(ref.end)
		if err := cache.Put(ctx, i, x); err != nil {
			return nil, fmt.Errorf("unable to cache features of %s, %w", coord, err)
		}
		xTrain, _, _ := splitFeatures(x, y, validationSize, testSize)
		p.featureScaler.PartialFit(xTrain)
	}
	return p, nil
}

// NumLocations returns the number of cached feature frames
func (p *PartitionedTrainingDataset) NumLocations() int {
	return len(p.coordinates)
}

// Coordinates returns a copy of the location of each cached frame
func (p *PartitionedTrainingDataset) Coordinates() []catchment.Coordinate {
	res := make([]catchment.Coordinate, len(p.coordinates))
	copy(res, p.coordinates)
	return res
}

// FeatureScaler is fit on the train window of every location
func (p *PartitionedTrainingDataset) FeatureScaler() *MinMaxScaler {
	return p.featureScaler
}

// TargetScaler is fit on the train window of the level
func (p *PartitionedTrainingDataset) TargetScaler() *MinMaxScaler {
	return p.targetScaler
}

// Location loads the unscaled split of a single location. X slices hold one frame.
func (p *PartitionedTrainingDataset) Location(ctx context.Context, i int) (*Partition, error) {
	x, err := p.cache.Get(ctx, i)
	if err != nil {
		return nil, fmt.Errorf("unable to load cached features of location %d, %w", i, err)
	}
	y, err := p.yTrain.Append(p.yValidation)
	if err != nil {
		return nil, err
	}
	if y, err = y.Append(p.yTest); err != nil {
		return nil, err
	}
	xTrain, xVal, xTest := splitFeatures(x, y, p.validationSize, p.testSize)
	return &Partition{
		XTrain:      []*timedataset.Frame{xTrain},
		XValidation: []*timedataset.Frame{xVal},
		XTest:       []*timedataset.Frame{xTest},
		YTrain:      p.yTrain,
		YValidation: p.yValidation,
		YTest:       p.yTest,
	}, nil
}

// ScaledLocation loads the split of a single location transformed by the accumulated scalers
func (p *PartitionedTrainingDataset) ScaledLocation(ctx context.Context, i int) (*Partition, error) {
	part, err := p.Location(ctx, i)
	if err != nil {
		return nil, err
	}
	return scalePartition(part, p.featureScaler, p.targetScaler)
}
