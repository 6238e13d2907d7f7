package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/ensemble"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

var (
	ErrNoForecastWindow    = errors.New("weather forecast does not extend past the latest level")
	ErrLocationCountChange = errors.New("current weather locations do not match the saved ensemble")
)

type predictCmd struct {
	NoStore bool `help:"Do not store the forecast."`
}

// Run forecasts the level over the hours covered by the current weather forecast
func (p *predictCmd) Run(a *app) error {
	e, err := a.loadEnsemble()
	if err != nil {
		return err
	}
	bundle, err := a.current()
	if err != nil {
		return err
	}
	if len(bundle.Weather) != len(e.Contributing()) {
		return fmt.Errorf(
			"got %d locations, but the ensemble has %d contributing models, %w",
			len(bundle.Weather), len(e.Contributing()), ErrLocationCountChange,
		)
	}

	base, err := dataset.NewBaseDataset(bundle.Weather, bundle.Level, a.cfg.DatasetOptions(true))
	if err != nil {
		return err
	}
	series, cov, err := scaleInputs(e, base)
	if err != nil {
		return err
	}

	n, err := forecastSteps(series, cov)
	if err != nil {
		return err
	}
	pred, err := e.Predict(a.ctx, n, series, models.Covariates{Past: cov, Future: cov})
	if err != nil {
		return fmt.Errorf("unable to predict, %w", err)
	}
	if pred, err = e.TargetScaler().InverseTransform(pred); err != nil {
		return err
	}
	a.logger.Info("forecast river level",
		"catchment", a.cfg.Catchment,
		"issue_time", pred.Start(),
		"points", pred.Len(),
	)

	if !p.NoStore {
		key := path.Join(forecastPrefix, a.cfg.Catchment, pred.Start().UTC().Format(time.RFC3339)+".json")
		if err := storage.UploadFrame(a.ctx, a.store, key, pred); err != nil {
			return err
		}
	}
	return printForecast(a.out, pred)
}

func (a *app) loadEnsemble() (*ensemble.Ensemble, error) {
	e, err := ensemble.Load(a.ctx, a.store, a.cfg.ArtifactPrefix, a.cfg.EnsembleOptions(a.logger))
	if err != nil {
		return nil, err
	}
	if e.FeatureScaler() == nil || e.TargetScaler() == nil {
		return nil, ErrMissingScalers
	}
	return e, nil
}

// scaleInputs applies the scalers saved with the ensemble to the target and stacked features
func scaleInputs(e *ensemble.Ensemble, base *dataset.BaseDataset) (*timedataset.Frame, *timedataset.Frame, error) {
	series, err := e.TargetScaler().Transform(base.Y)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to scale level, %w", err)
	}
	cov, err := base.Covariates()
	if err != nil {
		return nil, nil, err
	}
	if cov, err = e.FeatureScaler().Transform(cov); err != nil {
		return nil, nil, fmt.Errorf("unable to scale features, %w", err)
	}
	return series, cov, nil
}

// forecastSteps counts the feature rows after the last observed level
func forecastSteps(series, cov *timedataset.Frame) (int, error) {
	i, exists := cov.Index(series.End())
	if !exists {
		return 0, fmt.Errorf("no features at %s, %w", series.End(), ErrNoForecastWindow)
	}
	n := cov.Len() - i - 1
	if n <= 0 {
		return 0, ErrNoForecastWindow
	}
	return n, nil
}

func printForecast(w io.Writer, pred *timedataset.Frame) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tbl, "time\t%s\t\n", pred.Columns[0])
	for i, t := range pred.T {
		v := pred.Data[0][i]
		if math.IsNaN(v) {
			fmt.Fprintf(tbl, "%s\t-\t\n", t.UTC().Format(time.RFC3339))
			continue
		}
		fmt.Fprintf(tbl, "%s\t%.3f\t\n", t.UTC().Format(time.RFC3339), v)
	}
	return tbl.Flush()
}
