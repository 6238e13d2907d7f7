package ensemble

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/google/uuid"
)

const (
	combinerKey = "combiner.json"
	metadataKey = "metadata.json"
)

// Metadata describes a persisted ensemble. Model types are recorded per artifact so loading
// reconstructs each model through the model type registry.
type Metadata struct {
	ID           uuid.UUID              `json:"id"`
	TrainEndTime time.Time              `json:"train_end_time"`
	SavedAt      time.Time              `json:"saved_at"`
	Options      *Options               `json:"options"`
	Combiner     models.ModelType       `json:"combiner"`
	Contributing []ContributingMetadata `json:"contributing"`

	FeatureScaler *dataset.MinMaxScaler `json:"feature_scaler,omitempty"`
	TargetScaler  *dataset.MinMaxScaler `json:"target_scaler,omitempty"`
}

type ContributingMetadata struct {
	Type      models.ModelType `json:"type"`
	Prefix    string           `json:"prefix"`
	HasPrefix bool             `json:"has_prefix"`
}

// Save writes contributing_<i>.json, combiner.json and metadata.json under prefix
func (e *Ensemble) Save(ctx context.Context, d storage.Dispatcher, prefix string) error {
	if !e.fitted {
		return ErrUnfitModel
	}
	meta := Metadata{
		ID:            e.id,
		TrainEndTime:  e.trainEndTime,
		SavedAt:       time.Now().UTC(),
		Options:       e.opt,
		Contributing:  make([]ContributingMetadata, 0, len(e.contributing)),
		FeatureScaler: e.featureScaler,
		TargetScaler:  e.targetScaler,
	}

	p := &pool{prefix: prefix}
	for i, c := range e.contributing {
		mt, err := models.TypeOf(c.Model())
		if err != nil {
			return fmt.Errorf("contributing model %d, %w", i, err)
		}
		data, err := models.Marshal(c.Model())
		if err != nil {
			return fmt.Errorf("unable to encode contributing model %d, %w", i, err)
		}
		if err := d.Upload(ctx, p.modelKey(i), data); err != nil {
			return fmt.Errorf("unable to save contributing model %d, %w", i, err)
		}
		cPrefix, hasPrefix := c.Prefix()
		meta.Contributing = append(meta.Contributing, ContributingMetadata{
			Type:      mt,
			Prefix:    cPrefix,
			HasPrefix: hasPrefix,
		})
	}

	mt, err := models.TypeOf(e.combiner)
	if err != nil {
		return fmt.Errorf("combiner, %w", err)
	}
	meta.Combiner = mt
	data, err := models.Marshal(e.combiner)
	if err != nil {
		return fmt.Errorf("unable to encode combiner, %w", err)
	}
	if err := d.Upload(ctx, path.Join(prefix, combinerKey), data); err != nil {
		return fmt.Errorf("unable to save combiner, %w", err)
	}

	if err := storage.UploadJSON(ctx, d, path.Join(prefix, metadataKey), meta); err != nil {
		return fmt.Errorf("unable to save ensemble metadata, %w", err)
	}
	e.opt.Logger.Info("saved ensemble", "ensemble_id", e.id.String(), "prefix", prefix)
	return nil
}

// Load restores a fitted ensemble saved under prefix. Runtime options such as the worker count
// and logger are taken from opt.
func Load(ctx context.Context, d storage.Dispatcher, prefix string, opt *Options) (*Ensemble, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := storage.DownloadJSON(ctx, d, path.Join(prefix, metadataKey), &meta); err != nil {
		return nil, fmt.Errorf("unable to load ensemble metadata, %w", err)
	}
	if meta.Options != nil {
		opt.CombinerHoldoutSize = meta.Options.CombinerHoldoutSize
		opt.TargetHorizon = meta.Options.TargetHorizon
		opt.CombinerTrainStride = meta.Options.CombinerTrainStride
		opt.RetrainOnFullSeries = meta.Options.RetrainOnFullSeries
	}

	p := &pool{prefix: prefix}
	contributing := make([]*ContributingModel, 0, len(meta.Contributing))
	for i, cm := range meta.Contributing {
		model, err := loadModel(ctx, d, p.modelKey(i), cm.Type)
		if err != nil {
			return nil, fmt.Errorf("contributing model %d, %w", i, err)
		}
		if cm.HasPrefix {
			contributing = append(contributing, NewPrefixedContributingModel(model, cm.Prefix))
		} else {
			contributing = append(contributing, NewContributingModel(model))
		}
	}
	combiner, err := loadModel(ctx, d, path.Join(prefix, combinerKey), meta.Combiner)
	if err != nil {
		return nil, fmt.Errorf("combiner, %w", err)
	}

	e, err := New(combiner, contributing, opt)
	if err != nil {
		return nil, err
	}
	e.id = meta.ID
	e.trainEndTime = meta.TrainEndTime
	e.SetScalers(meta.FeatureScaler, meta.TargetScaler)
	e.fitted = true
	return e, nil
}

func loadModel(ctx context.Context, d storage.Dispatcher, key string, expected models.ModelType) (models.HistoricalForecaster, error) {
	data, err := d.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	model, err := models.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	mt, err := models.TypeOf(model)
	if err != nil {
		return nil, err
	}
	if mt != expected {
		return nil, fmt.Errorf("%s artifact recorded as %s, %w", mt, expected, models.ErrUnknownModelType)
	}
	return model, nil
}
