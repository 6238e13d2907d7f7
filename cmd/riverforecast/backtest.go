package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/evaluator"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

var ErrNoTestWindow = errors.New("test window is empty")

type backtestCmd struct {
	Horizon int    `help:"Hourly points forecast from every origin." default:"24"`
	Stride  int    `help:"Hourly points between forecast origins." default:"24"`
	Cached  bool   `help:"Backtest on the last stored historical bundle instead of fetching."`
	Plot    string `help:"Write an html plot of the backtest to this path." default:"backtest.html"`
}

// Run walk-forward forecasts the test window with the saved ensemble and prints the error by lead time
func (b *backtestCmd) Run(a *app) error {
	if a.cfg.TestSize <= 0 {
		return ErrNoTestWindow
	}
	e, err := a.loadEnsemble()
	if err != nil {
		return err
	}
	bundle, err := a.historical(b.Cached)
	if err != nil {
		return err
	}
	base, err := dataset.NewBaseDataset(bundle.Weather, bundle.Level, a.cfg.DatasetOptions(false))
	if err != nil {
		return err
	}
	if base.Y.Len() <= a.cfg.TestSize {
		return fmt.Errorf("got %d points, test size %d, %w", base.Y.Len(), a.cfg.TestSize, dataset.ErrPartitionSize)
	}
	series, cov, err := scaleInputs(e, base)
	if err != nil {
		return err
	}

	opt := models.NewDefaultHistoricalOptions()
	opt.StartTime = series.T[series.Len()-a.cfg.TestSize]
	opt.ForecastHorizon = b.Horizon
	opt.Stride = b.Stride
	opt.LastPointsOnly = false
	scaled, err := e.HistoricalForecasts(a.ctx, series, models.Covariates{Past: cov, Future: cov}, opt)
	if err != nil {
		return fmt.Errorf("unable to backtest, %w", err)
	}

	forecasts := make([]*timedataset.Frame, len(scaled))
	for i, f := range scaled {
		if forecasts[i], err = e.TargetScaler().InverseTransform(f); err != nil {
			return err
		}
	}
	wide, err := evaluator.FromForecasts(forecasts)
	if err != nil {
		return err
	}
	ev, err := evaluator.New(base.Y, wide)
	if err != nil {
		return err
	}
	mape, err := ev.MAPE()
	if err != nil {
		return err
	}
	scores, err := overallScores(base.Y, forecasts)
	if err != nil {
		return err
	}
	a.logger.Info("backtest complete",
		"origins", len(forecasts),
		"horizon", b.Horizon,
		"mse", scores.MSE,
		"r2", scores.R2,
	)

	if b.Plot != "" {
		if err := ev.Plot(b.Plot); err != nil {
			return err
		}
	}
	return printLeadErrors(a.out, ev.MAE(), mape, scores)
}

// overallScores pools every forecast point with an observed level
func overallScores(truth *timedataset.Frame, forecasts []*timedataset.Frame) (*evaluator.Scores, error) {
	var predicted, actual []float64
	for _, f := range forecasts {
		for i, t := range f.T {
			k, exists := truth.Index(t)
			if !exists {
				continue
			}
			predicted = append(predicted, f.Data[0][i])
			actual = append(actual, truth.Data[0][k])
		}
	}
	return evaluator.NewScores(predicted, actual)
}

func printLeadErrors(w io.Writer, mae, mape []evaluator.LeadTimeError, scores *evaluator.Scores) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "lead\tmae\tmape\tcount\t\n")
	for _, lt := range mae {
		pct := "-"
		if m, exists := evaluator.Lookup(mape, lt.LeadTime); exists {
			pct = fmt.Sprintf("%.2f%%", m.Value*100)
		}
		fmt.Fprintf(tbl, "%s\t%.3f\t%s\t%d\t\n", lt.LeadTime, lt.Value, pct, lt.Count)
	}
	if err := tbl.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "points: %d    mse: %.4f    mape: %.2f%%    r2: %.3f\n",
		scores.N, scores.MSE, scores.MAPE*100, scores.R2)
	return err
}
