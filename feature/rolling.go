package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
)

type Aggregation string

const (
	AggregationSum  Aggregation = "sum"
	AggregationMean Aggregation = "mean"
)

// Rolling aggregates a trailing window of a source column, e.g. accumulated precipitation
// over the last day.
type Rolling struct {
	Column string      `json:"column"`
	Agg    Aggregation `json:"aggregation"`
	Window int         `json:"window"`
}

// NewRolling aggregates column over a trailing window of hourly points
func NewRolling(column string, agg Aggregation, window int) *Rolling {
	return &Rolling{column, agg, window}
}

func (r Rolling) String() string {
	return fmt.Sprintf("%s_rolling_%s_%d", r.Column, r.Agg, r.Window)
}

func (r Rolling) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "column":
		return r.Column, true
	case "aggregation":
		return string(r.Agg), true
	case "window":
		return strconv.Itoa(r.Window), true
	}
	return "", false
}

func (r Rolling) Type() FeatureType {
	return FeatureTypeRolling
}

func (r Rolling) Decode() map[string]string {
	res := make(map[string]string)
	res["column"] = r.Column
	res["aggregation"] = string(r.Agg)
	res["window"] = strconv.Itoa(r.Window)
	return res
}

func (r *Rolling) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Column string      `json:"column"`
		Agg    Aggregation `json:"aggregation"`
		Window string      `json:"window"`
	}
	err := json.Unmarshal(data, &labelStr)
	if err != nil {
		return err
	}
	r.Column = labelStr.Column
	r.Agg = labelStr.Agg
	r.Window, err = strconv.Atoi(labelStr.Window)
	if err != nil {
		return err
	}
	return nil
}

func (r Rolling) Warmup() int {
	return max(r.Window-1, 0)
}

// Generate computes the trailing window aggregate ending at each point. The first Window-1
// points are NaN, as is any window containing a NaN.
func (r Rolling) Generate(f *timedataset.Frame) ([]float64, error) {
	if r.Window <= 0 {
		return nil, fmt.Errorf("%s, %w", r, ErrInvalidWindow)
	}
	if r.Agg != AggregationSum && r.Agg != AggregationMean {
		return nil, fmt.Errorf("%s, %w", r.Agg, ErrUnknownAggregation)
	}

	src, err := f.Column(r.Column)
	if err != nil {
		return nil, err
	}

	res := make([]float64, len(src))
	for i := range src {
		if i < r.Window-1 {
			res[i] = nan
			continue
		}
		val := floats.Sum(src[i-r.Window+1 : i+1])
		if r.Agg == AggregationMean {
			val /= float64(r.Window)
		}
		res[i] = val
	}
	return res, nil
}
