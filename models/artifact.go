package models

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
)

// RegressionModel is the serializable form of a fitted Regression
type RegressionModel struct {
	Options       *RegressionOptions `json:"options"`
	Target        string             `json:"target"`
	PastColumns   []string           `json:"past_columns"`
	FutureColumns []string           `json:"future_columns"`
	Freq          time.Duration      `json:"freq"`
	TrainEndTime  time.Time          `json:"train_end_time"`
	Score         float64            `json:"r_squared"`
	Intercept     float64            `json:"intercept"`
	Coef          []float64          `json:"coefficients"`
}

// TablePrint writes a summary of the model options, fit score and non-zero weights
func (m RegressionModel) TablePrint(w io.Writer, prefix, indent string) error {
	r, err := NewRegressionFromModel(m)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sRegression (%s):\n", prefix, indentExpand(indent, 0), m.Options.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining End Time: %s\n", prefix, indentExpand(indent, 1), m.TrainEndTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sLags: %d    Past Lags: %d    R2: %.3f\n",
		prefix, indentExpand(indent, 1), m.Options.Lags, m.Options.PastLags, m.Score); err != nil {
		return err
	}

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sFeature\tValue\t\n", prefix, indentExpand(indent, 1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sintercept\t%.3f\t\n", prefix, indentExpand(indent, 1), m.Intercept); err != nil {
		return err
	}
	for i, label := range r.Labels() {
		val := fmt.Sprintf("%.3f", m.Coef[i])
		if m.Coef[i] == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n", prefix, indentExpand(indent, 1), label, val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

func indentExpand(indent string, growth int) string {
	return strings.Repeat(indent, growth)
}

// Artifact is the persisted form of a forecaster with its model type recorded as data
type Artifact struct {
	Type  ModelType       `json:"type"`
	Model json.RawMessage `json:"model"`
}

var registry = map[ModelType]func() HistoricalForecaster{
	ModelTypeOLS:   func() HistoricalForecaster { return new(Regression) },
	ModelTypeLasso: func() HistoricalForecaster { return new(Regression) },
}

// TypeOf returns the registered model type of a forecaster
func TypeOf(f Forecaster) (ModelType, error) {
	typed, ok := f.(interface{ Type() ModelType })
	if !ok {
		return "", fmt.Errorf("%T, %w", f, ErrUnknownModelType)
	}
	if _, exists := registry[typed.Type()]; !exists {
		return "", fmt.Errorf("%q, %w", typed.Type(), ErrUnknownModelType)
	}
	return typed.Type(), nil
}

// Marshal encodes a fitted forecaster together with its model type
func Marshal(f HistoricalForecaster) ([]byte, error) {
	mt, err := TypeOf(f)
	if err != nil {
		return nil, err
	}
	model, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s model, %w", mt, err)
	}
	return json.Marshal(Artifact{Type: mt, Model: model})
}

// Unmarshal reconstructs a forecaster by looking up the recorded model type
func Unmarshal(data []byte) (HistoricalForecaster, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unable to decode model artifact, %w", err)
	}
	newModel, exists := registry[a.Type]
	if !exists {
		return nil, fmt.Errorf("%q, %w", a.Type, ErrUnknownModelType)
	}
	f := newModel()
	if err := json.Unmarshal(a.Model, f); err != nil {
		return nil, fmt.Errorf("unable to decode %s model, %w", a.Type, err)
	}
	return f, nil
}
