// Package ensemble stacks the forecasts of per location contributing models into a combiner model.
// Contributing models are fit on everything but a holdout window and the combiner is fit on their
// walk-forward predictions over that holdout.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/metrics"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/stats"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/google/uuid"
)

var (
	ErrUnfitModel           = errors.New("ensemble has not been fit")
	ErrAlreadyFit           = errors.New("ensemble has already been fit")
	ErrRetrainUnsupported   = errors.New("ensemble historical forecasts cannot retrain")
	ErrNoContributingModels = errors.New("no contributing models")
	ErrNoCombiner           = errors.New("no combiner model")
	ErrHoldoutSize          = errors.New("combiner holdout must be positive and shorter than the series")
	ErrInvalidOptions       = errors.New("invalid ensemble options")
)

type Options struct {
	// CombinerHoldoutSize is the number of most recent points withheld from the contributing models
	// and used to fit the combiner
	CombinerHoldoutSize int `json:"combiner_holdout_size"`

	// TargetHorizon is the lead, in points, of the contributing predictions the combiner is fit on
	TargetHorizon int `json:"target_horizon"`

	CombinerTrainStride int `json:"combiner_train_stride"`

	// RetrainOnFullSeries refits the contributing models on the whole series after the combiner is
	// fit. The combiner is not refit.
	RetrainOnFullSeries bool `json:"retrain_on_full_series"`

	Workers int `json:"-"`

	// Artifacts, when set, receives every contributing model and its holdout predictions as the
	// pool produces them
	Artifacts      storage.Dispatcher `json:"-"`
	ArtifactPrefix string             `json:"-"`

	// LogCollinearity logs the variance inflation factor of the stacked predictions at debug level
	LogCollinearity bool `json:"-"`

	Logger *slog.Logger `json:"-"`
}

// NewDefaultOptions holds out two weeks of hourly points for the combiner
func NewDefaultOptions() *Options {
	return &Options{
		CombinerHoldoutSize: 24 * 14,
		TargetHorizon:       1,
		CombinerTrainStride: 1,
		Workers:             1,
		Logger:              slog.Default(),
	}
}

// Validate returns a validated copy of the options with defaults filled in. The receiver is not
// modified.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	v := *o
	o = &v
	if o.CombinerHoldoutSize <= 0 {
		return nil, fmt.Errorf("combiner holdout size %d, %w", o.CombinerHoldoutSize, ErrHoldoutSize)
	}
	if o.TargetHorizon <= 0 || o.CombinerTrainStride <= 0 {
		return nil, fmt.Errorf(
			"target horizon %d and combiner train stride %d must be positive, %w",
			o.TargetHorizon, o.CombinerTrainStride, ErrInvalidOptions,
		)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

// Ensemble is fit once and then predicts or backtests. Its methods must not be called concurrently.
type Ensemble struct {
	id           uuid.UUID
	opt          *Options
	combiner     models.HistoricalForecaster
	contributing []*ContributingModel

	featureScaler *dataset.MinMaxScaler
	targetScaler  *dataset.MinMaxScaler

	trainEndTime time.Time
	fitted       bool
}

// New returns an unfit ensemble. Nil options use the defaults.
func New(combiner models.HistoricalForecaster, contributing []*ContributingModel, opt *Options) (*Ensemble, error) {
	if combiner == nil {
		return nil, ErrNoCombiner
	}
	if len(contributing) == 0 {
		return nil, ErrNoContributingModels
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Ensemble{
		id:           uuid.New(),
		opt:          opt,
		combiner:     combiner,
		contributing: contributing,
	}, nil
}

// ID identifies the ensemble across save and load
func (e *Ensemble) ID() uuid.UUID {
	return e.id
}

// Fitted reports whether Fit has completed or the ensemble was loaded
func (e *Ensemble) Fitted() bool {
	return e.fitted
}

// SetScalers attaches the scalers of the training dataset so they are persisted with the models
func (e *Ensemble) SetScalers(featureScaler, targetScaler *dataset.MinMaxScaler) {
	e.featureScaler = featureScaler
	e.targetScaler = targetScaler
}

// FeatureScaler returns the scaler saved with the ensemble, if any
func (e *Ensemble) FeatureScaler() *dataset.MinMaxScaler {
	return e.featureScaler
}

// TargetScaler returns the level scaler saved with the ensemble, if any
func (e *Ensemble) TargetScaler() *dataset.MinMaxScaler {
	return e.targetScaler
}

// Combiner returns the model fit on the stacked contributing predictions
func (e *Ensemble) Combiner() models.HistoricalForecaster {
	return e.combiner
}

// Contributing returns the contributing models in stacking order
func (e *Ensemble) Contributing() []*ContributingModel {
	res := make([]*ContributingModel, len(e.contributing))
	copy(res, e.contributing)
	return res
}

func (e *Ensemble) pool() *pool {
	return &pool{
		workers:   e.opt.Workers,
		artifacts: e.opt.Artifacts,
		prefix:    e.opt.ArtifactPrefix,
	}
}

// contributingChunkLength is the longest history any contributing model needs
func (e *Ensemble) contributingChunkLength() int {
	var icl int
	for _, c := range e.contributing {
		icl = max(icl, c.InputChunkLength())
	}
	return icl
}

// InputChunkLength is the minimum series length the ensemble can predict from
func (e *Ensemble) InputChunkLength() int {
	return max(e.contributingChunkLength(), e.combiner.InputChunkLength())
}

// CombinerStart returns the first series index at which every contributing model can predict
// within the holdout window of a series of n points
func (e *Ensemble) CombinerStart(n int) int {
	return n - e.opt.CombinerHoldoutSize + e.contributingChunkLength()
}

// Fit trains the contributing models on the series before the holdout window, fits the combiner
// on their walk-forward predictions over the holdout window and optionally refits the contributing
// models on the whole series.
func (e *Ensemble) Fit(ctx context.Context, series *timedataset.Frame, cov models.Covariates) error {
	if e.fitted {
		return ErrAlreadyFit
	}
	n := series.Len()
	split := n - e.opt.CombinerHoldoutSize
	if split <= 0 {
		return fmt.Errorf(
			"series has %d points and holdout is %d, %w",
			n, e.opt.CombinerHoldoutSize, ErrHoldoutSize,
		)
	}
	p := e.pool()
	logger := e.opt.Logger.With("ensemble_id", e.id.String())

	err := observeFit("contributing", func() error {
		return p.fit(ctx, e.contributing, series.Slice(0, split), cov)
	})
	if err != nil {
		return err
	}
	logger.Info("fit contributing models", "models", len(e.contributing), "train_end", series.T[split-1])

	stacked, err := e.holdoutPredictions(ctx, series, cov)
	if err != nil {
		return err
	}
	if e.opt.LogCollinearity {
		logCollinearity(logger, stacked)
	}

	err = observeFit("combiner", func() error {
		return e.combiner.Fit(series.Intersect(stacked), models.Covariates{Future: stacked})
	})
	if err != nil {
		return fmt.Errorf("unable to fit combiner, %w", err)
	}
	logger.Info("fit combiner",
		"holdout", e.opt.CombinerHoldoutSize,
		"samples", stacked.Len(),
		"start", stacked.Start(),
	)

	if e.opt.RetrainOnFullSeries {
		err := observeFit("contributing_full", func() error {
			return p.fit(ctx, e.contributing, series, cov)
		})
		if err != nil {
			return err
		}
		logger.Info("refit contributing models on full series", "train_end", series.End())
	}

	e.trainEndTime = series.End()
	e.fitted = true
	return nil
}

// holdoutPredictions stacks the last point walk-forward predictions of every contributing model
// from the combiner start. Every origin is at or after the combiner start, so no prediction comes
// from a model that saw its timestamp during training.
func (e *Ensemble) holdoutPredictions(ctx context.Context, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	opt := &models.HistoricalOptions{
		Start:           e.CombinerStart(series.Len()),
		ForecastHorizon: e.opt.TargetHorizon,
		Stride:          e.opt.CombinerTrainStride,
		LastPointsOnly:  true,
	}
	preds, err := e.pool().historicalForecasts(ctx, e.contributing, series, cov, opt)
	if err != nil {
		return nil, err
	}
	return stackPredictions(preds)
}

// stackPredictions column stacks predictions in contributing model order. Columns are named by
// position since the combiner only relies on that order.
func stackPredictions(preds []*timedataset.Frame) (*timedataset.Frame, error) {
	renamed := make([]*timedataset.Frame, len(preds))
	for i, pred := range preds {
		columns := make([]string, len(pred.Columns))
		for c, col := range pred.Columns {
			columns[c] = fmt.Sprintf("%d_%s", i, col)
		}
		var err error
		if renamed[i], err = pred.Rename(columns); err != nil {
			return nil, err
		}
	}
	stacked, err := timedataset.Stack(renamed...)
	if err != nil {
		return nil, fmt.Errorf("unable to stack contributing predictions, %w", err)
	}
	return stacked, nil
}

// Predict forecasts the n points after series by combining the contributing model forecasts
func (e *Ensemble) Predict(ctx context.Context, n int, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	if !e.fitted {
		return nil, ErrUnfitModel
	}
	return e.predict(ctx, n, series, cov)
}

func (e *Ensemble) predict(ctx context.Context, n int, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	preds := make([]*timedataset.Frame, len(e.contributing))
	for i, c := range e.contributing {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pred, err := c.Predict(n, series, cov)
		if err != nil {
			return nil, fmt.Errorf("unable to predict with contributing model %d, %w", i, err)
		}
		preds[i] = pred
	}
	stacked, err := stackPredictions(preds)
	if err != nil {
		return nil, err
	}
	res, err := e.combiner.Predict(n, series, models.Covariates{Future: stacked})
	if err != nil {
		return nil, fmt.Errorf("unable to predict with combiner, %w", err)
	}
	return res, nil
}

// HistoricalForecasts backtests the fitted ensemble as a whole by predicting from every origin of
// series without refitting any model.
func (e *Ensemble) HistoricalForecasts(ctx context.Context, series *timedataset.Frame, cov models.Covariates, opt *models.HistoricalOptions) ([]*timedataset.Frame, error) {
	if !e.fitted {
		return nil, ErrUnfitModel
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if opt.Retrain {
		return nil, ErrRetrainUnsupported
	}

	var origins int
	res, err := models.WalkForward(series, e.InputChunkLength(), opt, func(n int, history *timedataset.Frame) (*timedataset.Frame, error) {
		origins++
		return e.predict(ctx, n, history, cov)
	})
	metrics.ForecastOriginsTotal.Add(float64(origins))
	if err != nil {
		return nil, err
	}
	e.opt.Logger.Debug("ensemble historical forecasts",
		"ensemble_id", e.id.String(),
		"origins", origins,
		"horizon", opt.ForecastHorizon,
	)
	return res, nil
}

func observeFit(stage string, fit func() error) error {
	start := time.Now()
	err := fit()
	metrics.ModelFitDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	metrics.ModelFitsTotal.WithLabelValues(stage, metrics.Status(err)).Inc()
	return err
}

func logCollinearity(logger *slog.Logger, stacked *timedataset.Frame) {
	x := stacked.Matrix()
	if x == nil {
		return
	}
	vif, err := stats.VarianceInflationFactor(x)
	if err != nil {
		logger.Debug("unable to compute variance inflation factor", "error", err)
		return
	}
	for c, v := range vif {
		logger.Debug("contributing prediction collinearity", "column", stacked.Columns[c], "vif", v)
	}
}
