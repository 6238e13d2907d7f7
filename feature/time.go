package feature

import (
	"fmt"
	"strings"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
)

const (
	TimeDayOfYear = "day_of_year"
	TimeHourOfDay = "hour_of_day"
)

type Time struct {
	Name string `json:"name"`
}

// NewTime returns a calendar feature such as TimeDayOfYear
func NewTime(name string) *Time {
	return &Time{name}
}

func (t Time) String() string {
	return fmt.Sprintf("tfeat_%s", t.Name)
}

func (t Time) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return t.Name, true
	}
	return "", false
}

func (t Time) Type() FeatureType {
	return FeatureTypeTime
}

func (t Time) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = t.Name
	return res
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	t.Name = labelStr.Name
	return nil
}

func (t Time) Warmup() int {
	return 0
}

// Generate evaluates the calendar field of every timestamp in UTC
func (t Time) Generate(f *timedataset.Frame) ([]float64, error) {
	res := make([]float64, f.Len())
	switch t.Name {
	case TimeDayOfYear:
		for i, ts := range f.T {
			res[i] = float64(ts.UTC().YearDay())
		}
	case TimeHourOfDay:
		for i, ts := range f.T {
			res[i] = float64(ts.UTC().Hour())
		}
	default:
		return nil, fmt.Errorf("%s, %w", t.Name, ErrUnknownTimeFeature)
	}
	return res, nil
}
