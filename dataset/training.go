package dataset

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

// Partition is the chronological train, validation and test split of an aligned dataset. Validation
// and test are always the most recent windows.
type Partition struct {
	XTrain      []*timedataset.Frame
	XValidation []*timedataset.Frame
	XTest       []*timedataset.Frame
	YTrain      *timedataset.Frame
	YValidation *timedataset.Frame
	YTest       *timedataset.Frame
}

// TrainingDataset partitions a BaseDataset and fits the feature and target scalers on the training
// window only.
type TrainingDataset struct {
	base           *BaseDataset
	validationSize int
	testSize       int

	partition     *Partition
	scaled        *Partition
	featureScaler *MinMaxScaler
	targetScaler  *MinMaxScaler
}

// NewTrainingDataset splits the dataset into train | validation | test where validation and test
// hold validationSize and testSize hourly samples from the end of the target.
func NewTrainingDataset(base *BaseDataset, validationSize, testSize int) (*TrainingDataset, error) {
	y := base.Y
	if err := checkPartitionSize(y.Len(), validationSize, testSize); err != nil {
		return nil, err
	}

	td := &TrainingDataset{
		base:           base,
		validationSize: validationSize,
		testSize:       testSize,
		featureScaler:  NewMinMaxScaler(),
		targetScaler:   NewMinMaxScaler(),
	}

	yTrain, yVal, yTest := splitTarget(y, validationSize, testSize)
	p := &Partition{
		YTrain:      yTrain,
		YValidation: yVal,
		YTest:       yTest,
	}
	for _, x := range base.X {
		xTrain, xVal, xTest := splitFeatures(x, y, validationSize, testSize)
		p.XTrain = append(p.XTrain, xTrain)
		p.XValidation = append(p.XValidation, xVal)
		p.XTest = append(p.XTest, xTest)
	}
	td.partition = p

	td.featureScaler.Fit(p.XTrain...)
	td.targetScaler.Fit(p.YTrain)

	scaled, err := scalePartition(p, td.featureScaler, td.targetScaler)
	if err != nil {
		return nil, err
	}
	td.scaled = scaled
	return td, nil
}

// Base returns the aligned dataset the partition was cut from
func (t *TrainingDataset) Base() *BaseDataset {
	return t.base
}

// Partition returns the unscaled split
func (t *TrainingDataset) Partition() *Partition {
	return t.partition
}

// ScaledPartition returns the split transformed by the scalers fit on the training window
func (t *TrainingDataset) ScaledPartition() *Partition {
	return t.scaled
}

// FeatureScaler is fit on the train features of every location
func (t *TrainingDataset) FeatureScaler() *MinMaxScaler {
	return t.featureScaler
}

// TargetScaler is fit on the train level
func (t *TrainingDataset) TargetScaler() *MinMaxScaler {
	return t.targetScaler
}

func checkPartitionSize(n, validationSize, testSize int) error {
	if validationSize < 0 || testSize < 0 || n <= validationSize+testSize {
		return fmt.Errorf(
			"series has %d samples, but validation size is %d and test size is %d, %w",
			n, validationSize, testSize, ErrPartitionSize,
		)
	}
	return nil
}

func splitTarget(y *timedataset.Frame, validationSize, testSize int) (*timedataset.Frame, *timedataset.Frame, *timedataset.Frame) {
	n := y.Len()
	trainEnd := n - validationSize - testSize
	valEnd := n - testSize
	return y.Slice(0, trainEnd), y.Slice(trainEnd, valEnd), y.Slice(valEnd, n)
}

// splitFeatures splits a feature frame at the timestamps where the target is split. Feature rows
// beyond the target end always belong to the test window.
func splitFeatures(x, y *timedataset.Frame, validationSize, testSize int) (*timedataset.Frame, *timedataset.Frame, *timedataset.Frame) {
	n := y.Len()
	boundary := func(k int) time.Time {
		if k < n {
			return y.T[k]
		}
		return y.End().Add(time.Nanosecond)
	}
	i := x.Search(boundary(n - validationSize - testSize))
	j := x.Search(boundary(n - testSize))
	return x.Slice(0, i), x.Slice(i, j), x.Slice(j, x.Len())
}

func scalePartition(p *Partition, featureScaler, targetScaler *MinMaxScaler) (*Partition, error) {
	scaled := &Partition{}
	var err error
	for _, split := range []struct {
		src []*timedataset.Frame
		dst *[]*timedataset.Frame
	}{
		{p.XTrain, &scaled.XTrain},
		{p.XValidation, &scaled.XValidation},
		{p.XTest, &scaled.XTest},
	} {
		for _, x := range split.src {
			s, err := featureScaler.Transform(x)
			if err != nil {
				return nil, fmt.Errorf("unable to scale features, %w", err)
			}
			*split.dst = append(*split.dst, s)
		}
	}

	if scaled.YTrain, err = targetScaler.Transform(p.YTrain); err != nil {
		return nil, fmt.Errorf("unable to scale target, %w", err)
	}
	if scaled.YValidation, err = targetScaler.Transform(p.YValidation); err != nil {
		return nil, fmt.Errorf("unable to scale target, %w", err)
	}
	if scaled.YTest, err = targetScaler.Transform(p.YTest); err != nil {
		return nil, fmt.Errorf("unable to scale target, %w", err)
	}
	return scaled, nil
}
