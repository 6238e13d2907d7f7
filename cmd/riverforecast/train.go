package main

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/ensemble"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

type trainCmd struct {
	Cached      bool `help:"Train on the last stored historical bundle instead of fetching."`
	Partitioned bool `help:"Keep engineered features in storage and load one location at a time."`
	Artifacts   bool `help:"Store every contributing model and its holdout predictions while fitting."`
	Quiet       bool `help:"Do not print the fitted coefficients."`
}

// trainingWindow is the scaled train and validation span the ensemble is fit on. The test span is
// left for backtesting.
type trainingWindow struct {
	coordinates   []catchment.Coordinate
	series        *timedataset.Frame
	cov           *timedataset.Frame
	featureScaler *dataset.MinMaxScaler
	targetScaler  *dataset.MinMaxScaler
}

// Run fits a new ensemble on the train and validation windows and saves it
func (t *trainCmd) Run(a *app) error {
	bundle, err := a.historical(t.Cached)
	if err != nil {
		return err
	}

	var w *trainingWindow
	if t.Partitioned {
		w, err = a.partitionedWindow(bundle)
	} else {
		w, err = a.inMemoryWindow(bundle)
	}
	if err != nil {
		return err
	}
	a.logger.Info("prepared training window",
		"locations", len(w.coordinates),
		"points", w.series.Len(),
		"features", w.cov.NumColumns(),
		"start", w.series.Start(),
		"end", w.series.End(),
	)

	e, err := a.newEnsemble(w.coordinates, t.Artifacts)
	if err != nil {
		return err
	}
	e.SetScalers(w.featureScaler, w.targetScaler)
	if err := e.Fit(a.ctx, w.series, models.Covariates{Past: w.cov, Future: w.cov}); err != nil {
		return fmt.Errorf("unable to fit ensemble, %w", err)
	}
	if err := e.Save(a.ctx, a.store, a.cfg.ArtifactPrefix); err != nil {
		return fmt.Errorf("unable to save ensemble, %w", err)
	}
	a.logger.Info("saved ensemble", "ensemble_id", e.ID().String(), "prefix", a.cfg.ArtifactPrefix)

	if t.Quiet {
		return nil
	}
	return printModels(a.out, e)
}

func (a *app) inMemoryWindow(bundle *catchment.Bundle) (*trainingWindow, error) {
	base, err := dataset.NewBaseDataset(bundle.Weather, bundle.Level, a.cfg.DatasetOptions(false))
	if err != nil {
		return nil, err
	}
	td, err := dataset.NewTrainingDataset(base, a.cfg.ValidationSize, a.cfg.TestSize)
	if err != nil {
		return nil, err
	}
	p := td.ScaledPartition()

	series, err := p.YTrain.Append(p.YValidation)
	if err != nil {
		return nil, err
	}
	xs := make([]*timedataset.Frame, len(p.XTrain))
	for i := range p.XTrain {
		if xs[i], err = p.XTrain[i].Append(p.XValidation[i]); err != nil {
			return nil, err
		}
	}
	cov, err := dataset.StackCovariates(xs)
	if err != nil {
		return nil, err
	}
	return &trainingWindow{
		coordinates:   base.Coordinates,
		series:        series,
		cov:           cov,
		featureScaler: td.FeatureScaler(),
		targetScaler:  td.TargetScaler(),
	}, nil
}

func (a *app) partitionedWindow(bundle *catchment.Bundle) (*trainingWindow, error) {
	cache := storage.NewFeatureCache(a.store, a.featureCachePrefix())
	pd, err := dataset.NewPartitionedTrainingDataset(
		a.ctx, bundle.Weather, bundle.Level, cache,
		a.cfg.ValidationSize, a.cfg.TestSize, a.cfg.DatasetOptions(false),
	)
	if err != nil {
		return nil, err
	}

	var series *timedataset.Frame
	xs := make([]*timedataset.Frame, pd.NumLocations())
	for i := range xs {
		p, err := pd.ScaledLocation(a.ctx, i)
		if err != nil {
			return nil, err
		}
		if series == nil {
			if series, err = p.YTrain.Append(p.YValidation); err != nil {
				return nil, err
			}
		}
		if xs[i], err = p.XTrain[0].Append(p.XValidation[0]); err != nil {
			return nil, err
		}
	}
	cov, err := dataset.StackCovariates(xs)
	if err != nil {
		return nil, err
	}
	return &trainingWindow{
		coordinates:   pd.Coordinates(),
		series:        series,
		cov:           cov,
		featureScaler: pd.FeatureScaler(),
		targetScaler:  pd.TargetScaler(),
	}, nil
}

// newEnsemble builds one contributing regression per location, restricted to that location's
// feature columns, and a regression combiner
func (a *app) newEnsemble(coordinates []catchment.Coordinate, artifacts bool) (*ensemble.Ensemble, error) {
	contributingOpt, err := a.cfg.ContributingOptions()
	if err != nil {
		return nil, err
	}
	combinerOpt, err := a.cfg.CombinerOptions()
	if err != nil {
		return nil, err
	}

	contributing := make([]*ensemble.ContributingModel, 0, len(coordinates))
	for _, coord := range coordinates {
		opt := *contributingOpt
		model, err := models.NewRegression(&opt)
		if err != nil {
			return nil, err
		}
		contributing = append(contributing, ensemble.NewPrefixedContributingModel(model, coord.String()))
	}
	combiner, err := models.NewRegression(combinerOpt)
	if err != nil {
		return nil, err
	}

	opt := a.cfg.EnsembleOptions(a.logger)
	if artifacts {
		opt.Artifacts = a.store
		opt.ArtifactPrefix = a.cfg.ArtifactPrefix + "_fit"
	}
	return ensemble.New(combiner, contributing, opt)
}

// printModels writes the coefficients of every regression in the ensemble
func printModels(w io.Writer, e *ensemble.Ensemble) error {
	for i, c := range e.Contributing() {
		r, ok := c.Model().(*models.Regression)
		if !ok {
			continue
		}
		prefix, _ := c.Prefix()
		fmt.Fprintf(w, "contributing %d %s\n", i, prefix)
		if err := r.Model().TablePrint(w, "", "  "); err != nil {
			return err
		}
	}
	if r, ok := e.Combiner().(*models.Regression); ok {
		fmt.Fprintln(w, "combiner")
		if err := r.Model().TablePrint(w, "", "  "); err != nil {
			return err
		}
	}
	return nil
}
