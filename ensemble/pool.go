package ensemble

import (
	"context"
	"fmt"
	"path"

	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"golang.org/x/sync/errgroup"
)

// pool fans contributing model work out to a bounded number of goroutines. Each task only touches
// its own model and writes its output to the slot, and optionally the artifact key, of its index.
// Outputs are read after every task completes so results keep the contributing model order.
type pool struct {
	workers   int
	artifacts storage.Dispatcher
	prefix    string
}

func (p *pool) modelKey(i int) string {
	return path.Join(p.prefix, fmt.Sprintf("contributing_%d.json", i))
}

func (p *pool) predictionsKey(i int) string {
	return path.Join(p.prefix, fmt.Sprintf("predictions_%d.json", i))
}

// run calls task for every index in [0, n) and waits for all of them. The first error cancels the
// context passed to the remaining tasks and is returned.
func (p *pool) run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.workers, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return task(gCtx, i)
		})
	}
	return g.Wait()
}

// fit trains every contributing model on series
func (p *pool) fit(ctx context.Context, contributing []*ContributingModel, series *timedataset.Frame, cov models.Covariates) error {
	return p.run(ctx, len(contributing), func(ctx context.Context, i int) error {
		if err := contributing[i].Fit(series, cov); err != nil {
			return fmt.Errorf("unable to fit contributing model %d, %w", i, err)
		}
		if p.artifacts == nil {
			return nil
		}
		data, err := models.Marshal(contributing[i].Model())
		if err != nil {
			return fmt.Errorf("unable to encode contributing model %d, %w", i, err)
		}
		return p.artifacts.Upload(ctx, p.modelKey(i), data)
	})
}

// historicalForecasts runs the last point walk-forward of every contributing model and returns the
// prediction series in contributing model order.
func (p *pool) historicalForecasts(
	ctx context.Context,
	contributing []*ContributingModel,
	series *timedataset.Frame,
	cov models.Covariates,
	opt *models.HistoricalOptions,
) ([]*timedataset.Frame, error) {
	slots := make([]*timedataset.Frame, len(contributing))
	err := p.run(ctx, len(contributing), func(ctx context.Context, i int) error {
		res, err := contributing[i].HistoricalForecasts(series, cov, opt)
		if err != nil {
			return fmt.Errorf("unable to backtest contributing model %d, %w", i, err)
		}
		if p.artifacts != nil {
			return storage.UploadFrame(ctx, p.artifacts, p.predictionsKey(i), res[0])
		}
		slots[i] = res[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.artifacts == nil {
		return slots, nil
	}

	for i := range slots {
		if slots[i], err = storage.DownloadFrame(ctx, p.artifacts, p.predictionsKey(i)); err != nil {
			return nil, fmt.Errorf("unable to read predictions of contributing model %d, %w", i, err)
		}
	}
	return slots, nil
}
