package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
)

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

const yearDays = 365.25

// Seasonality is a fourier component of the annual cycle. It gives linear models a smooth
// representation of day of year that wraps at the new year.
type Seasonality struct {
	Name        string      `json:"name"`
	FourierComp FourierComp `json:"fourier_component"`
	Order       int         `json:"order"`
}

// NewSeasonality returns one fourier component of the named seasonality
func NewSeasonality(name string, fcomp FourierComp, order int) *Seasonality {
	return &Seasonality{name, fcomp, order}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return s.Name, true
	case "fourier_component":
		return string(s.FourierComp), true
	case "order":
		return strconv.Itoa(s.Order), true
	}
	return "", false
}

func (s Seasonality) Type() FeatureType {
	return FeatureTypeSeasonality
}

func (s Seasonality) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = s.Name
	res["fourier_component"] = string(s.FourierComp)
	res["order"] = strconv.Itoa(s.Order)
	return res
}

func (s *Seasonality) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name        string      `json:"name"`
		FourierComp FourierComp `json:"fourier_component"`
		Order       string      `json:"order"`
	}
	err := json.Unmarshal(data, &labelStr)
	if err != nil {
		return err
	}
	s.Name = labelStr.Name
	s.FourierComp = labelStr.FourierComp
	s.Order, err = strconv.Atoi(labelStr.Order)
	if err != nil {
		return err
	}
	return nil
}

func (s Seasonality) Warmup() int {
	return 0
}

// Generate evaluates the fourier component at the fractional day of year of each point
func (s Seasonality) Generate(f *timedataset.Frame) ([]float64, error) {
	fn := math.Sin
	if s.FourierComp == FourierCompCos {
		fn = math.Cos
	}
	res := make([]float64, f.Len())
	for i, ts := range f.T {
		ts = ts.UTC()
		pos := float64(ts.YearDay()-1) + float64(ts.Sub(ts.Truncate(24*time.Hour)))/float64(24*time.Hour)
		res[i] = fn(2.0 * math.Pi * float64(s.Order) * pos / yearDays)
	}
	return res, nil
}
