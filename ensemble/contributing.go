package ensemble

import (
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/timedataset"
)

// ContributingModel restricts the covariates seen by a forecaster to the columns of one location.
// Without a prefix every column is passed through.
type ContributingModel struct {
	model     models.HistoricalForecaster
	prefix    string
	hasPrefix bool
}

// NewContributingModel wraps a model that sees every covariate column
func NewContributingModel(model models.HistoricalForecaster) *ContributingModel {
	return &ContributingModel{model: model}
}

// NewPrefixedContributingModel only passes covariate columns beginning with prefix to the model
func NewPrefixedContributingModel(model models.HistoricalForecaster, prefix string) *ContributingModel {
	return &ContributingModel{model: model, prefix: prefix, hasPrefix: true}
}

// Model returns the wrapped forecaster
func (c *ContributingModel) Model() models.HistoricalForecaster {
	return c.model
}

// Prefix returns the column prefix and whether one is set
func (c *ContributingModel) Prefix() (string, bool) {
	return c.prefix, c.hasPrefix
}

func (c *ContributingModel) filter(cov models.Covariates) models.Covariates {
	if !c.hasPrefix {
		return cov
	}
	res := models.Covariates{}
	if cov.Past != nil {
		res.Past = cov.Past.FilterPrefix(c.prefix)
	}
	if cov.Future != nil {
		res.Future = cov.Future.FilterPrefix(c.prefix)
	}
	return res
}

// Fit fits the wrapped model on the columns matching the prefix
func (c *ContributingModel) Fit(series *timedataset.Frame, cov models.Covariates) error {
	return c.model.Fit(series, c.filter(cov))
}

// Predict forecasts n points with the columns matching the prefix
func (c *ContributingModel) Predict(n int, series *timedataset.Frame, cov models.Covariates) (*timedataset.Frame, error) {
	return c.model.Predict(n, series, c.filter(cov))
}

// HistoricalForecasts backtests the wrapped model with the columns matching the prefix
func (c *ContributingModel) HistoricalForecasts(series *timedataset.Frame, cov models.Covariates, opt *models.HistoricalOptions) ([]*timedataset.Frame, error) {
	return c.model.HistoricalForecasts(series, c.filter(cov), opt)
}

// InputChunkLength is the history the wrapped model needs before its first prediction
func (c *ContributingModel) InputChunkLength() int {
	return c.model.InputChunkLength()
}
